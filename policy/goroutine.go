package policy

import (
	"runtime"
	"sync"

	vsjet "github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine"
)

// goroutineID extracts the running goroutine's id from its stack header.
// The header format ("goroutine N [state]:") is stable across Go releases
// and this is the only portable way to key per-goroutine state.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	const prefix = len("goroutine ")

	var id uint64
	for _, c := range buf[prefix:n] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

// inlineSlots holds the per-goroutine inline overrides for one policy.
// It is deliberately separate from the store: overrides are invisible to
// anything but the goroutine that set them.
type inlineSlots struct {
	mu    sync.Mutex
	slots map[uint64]*vsjet.Token
}

func newInlineSlots() *inlineSlots {
	return &inlineSlots{slots: make(map[uint64]*vsjet.Token)}
}

func (s *inlineSlots) get() *vsjet.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[goroutineID()]
}

func (s *inlineSlots) set(tok *vsjet.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[goroutineID()] = tok
}

func (s *inlineSlots) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, goroutineID())
}
