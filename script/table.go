package script

import "sync"

// handleTable maps integer handles to values crossing the host boundary.
// Handle 0 is never issued and always resolves as absent.
type handleTable[T any] struct {
	mu      sync.Mutex
	next    uint32
	entries map[uint32]T
}

func newHandleTable[T any]() *handleTable[T] {
	return &handleTable[T]{entries: make(map[uint32]T)}
}

func (t *handleTable[T]) insert(v T) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.entries[t.next] = v
	return t.next
}

func (t *handleTable[T]) get(h uint32) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[h]
	return v, ok
}

func (t *handleTable[T]) remove(h uint32) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[h]
	if ok {
		delete(t.entries, h)
	}
	return v, ok
}

func (t *handleTable[T]) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[uint32]T)
}

func (t *handleTable[T]) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
