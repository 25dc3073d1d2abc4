package policy

import (
	"sync"
	"weak"

	vsjet "github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine"
)

// Ref is a weak reference to a context token. The zero Ref is empty.
// Stores hold Refs rather than tokens so that a store slot is never the
// only thing keeping an execution context reachable.
type Ref = weak.Pointer[vsjet.Token]

// Store holds at most one current-context reference per storage scope.
// Stores are dumb storage: liveness checking and clearing of dead entries
// is the policy's job, and the policy serializes Set/Get under its mutex.
type Store interface {
	// Set replaces the stored reference. The zero Ref clears the slot.
	Set(Ref)

	// Get retrieves the stored reference, or the zero Ref.
	Get() Ref
}

// GlobalStore is the simplest store: one slot visible everywhere.
type GlobalStore struct {
	current Ref
}

// NewGlobalStore creates an empty global store.
func NewGlobalStore() *GlobalStore {
	return &GlobalStore{}
}

func (s *GlobalStore) Set(ref Ref) {
	s.current = ref
}

func (s *GlobalStore) Get() Ref {
	return s.current
}

// GoroutineLocalStore keeps one slot per goroutine. Slots written by
// goroutines that have since exited are not reclaimed, so long-lived
// applications should set the slot back to zero before a worker goroutine
// returns.
type GoroutineLocalStore struct {
	mu    sync.Mutex
	slots map[uint64]Ref
}

// NewGoroutineLocalStore creates an empty goroutine-local store.
func NewGoroutineLocalStore() *GoroutineLocalStore {
	return &GoroutineLocalStore{slots: make(map[uint64]Ref)}
}

func (s *GoroutineLocalStore) Set(ref Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref == (Ref{}) {
		delete(s.slots, goroutineID())
		return
	}
	s.slots[goroutineID()] = ref
}

func (s *GoroutineLocalStore) Get() Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[goroutineID()]
}

// TaskLocalStore keeps one slot per goroutine and supports handing the slot
// to child goroutines, the way cooperative-multitasking hosts expect task
// state to flow. Propagation is explicit because goroutines inherit nothing:
//
//	go store.Propagate(func() { ... })()
//
// Reuse the same TaskLocalStore when re-registering a policy; creating a new
// one per registration leaks the slots still referenced by running tasks.
type TaskLocalStore struct {
	mu    sync.Mutex
	slots map[uint64]Ref
}

// NewTaskLocalStore creates an empty task-local store.
func NewTaskLocalStore() *TaskLocalStore {
	return &TaskLocalStore{slots: make(map[uint64]Ref)}
}

func (s *TaskLocalStore) Set(ref Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref == (Ref{}) {
		delete(s.slots, goroutineID())
		return
	}
	s.slots[goroutineID()] = ref
}

func (s *TaskLocalStore) Get() Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[goroutineID()]
}

// Propagate captures the calling goroutine's slot and returns a function
// that installs the captured value in whichever goroutine runs it, then
// calls fn. The child's slot is cleared again when fn returns.
func (s *TaskLocalStore) Propagate(fn func()) func() {
	s.mu.Lock()
	ref := s.slots[goroutineID()]
	s.mu.Unlock()

	return func() {
		id := goroutineID()
		s.mu.Lock()
		parent, hadParent := s.slots[id]
		s.slots[id] = ref
		s.mu.Unlock()

		defer func() {
			s.mu.Lock()
			if hadParent {
				s.slots[id] = parent
			} else {
				delete(s.slots, id)
			}
			s.mu.Unlock()
		}()

		fn()
	}
}
