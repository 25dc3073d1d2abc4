package loop

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/errors"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/future"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/policy"
)

// ErrCancelled is raised through futures whose work was abandoned before
// completion. Hosts translate it into their native cancellation error via
// EventLoop.WrapCancelled.
var ErrCancelled = errors.Cancelled(errors.PhaseLoop)

// EventLoop is implemented by hosts to bridge the engine with the event
// loop of their choice.
type EventLoop interface {
	// Attach is called when the adapter becomes current.
	Attach() error

	// Detach is called when another adapter takes over, for example when
	// the application restarts.
	Detach()

	// Schedule runs fn on the event loop. Called from engine worker
	// goroutines to move data to the loop. fn may be run inline.
	Schedule(fn func())

	// ScheduleWorker runs fn on a worker, off the loop.
	ScheduleWorker(fn func())

	// NextCycle passes control back to the event loop. With no loop
	// attached the returned future is already resolved; a real loop
	// resolves it on its next tick, never immediately.
	NextCycle() *future.Future[struct{}]

	// WrapCancelled translates ErrCancelled into the host's native
	// cancellation error. Other errors pass through unchanged.
	WrapCancelled(err error) error
}

// NoLoop is the default adapter: no event loop, everything runs inline.
var NoLoop EventLoop = noLoop{}

type noLoop struct{}

func (noLoop) Attach() error { return nil }

func (noLoop) Detach() {}

func (noLoop) Schedule(fn func()) {
	fn()
}

func (noLoop) ScheduleWorker(fn func()) {
	go fn()
}

func (noLoop) NextCycle() *future.Future[struct{}] {
	return done
}

func (noLoop) WrapCancelled(err error) error {
	if stderrors.Is(err, ErrCancelled) {
		return context.Canceled
	}
	return err
}

var done = future.Resolved(struct{}{})

var (
	mu      sync.RWMutex
	current EventLoop = NoLoop
)

// Current returns the currently installed event loop adapter.
func Current() EventLoop {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetLoop installs a new event loop adapter, detaching the previous one
// first. If attaching fails, the inline NoLoop adapter is restored and the
// attach error is returned.
func SetLoop(l EventLoop) error {
	mu.Lock()
	defer mu.Unlock()

	current.Detach()
	if err := l.Attach(); err != nil {
		current = NoLoop
		return err
	}
	current = l
	return nil
}

// FromThread runs fn inside the current event loop and returns a future for
// its outcome. Be aware that fn might be called inline.
func FromThread[T any](fn func() (T, error)) *future.Future[T] {
	f := future.New[T]()
	Current().Schedule(func() {
		completeWith(f, fn)
	})
	return f
}

// ToThread runs fn on a dedicated worker and returns a future for its
// outcome.
func ToThread[T any](fn func() (T, error)) *future.Future[T] {
	f := future.New[T]()
	Current().ScheduleWorker(func() {
		completeWith(f, fn)
	})
	return f
}

// KeepContext wraps fn so every invocation re-enters the execution context
// that p considered current at wrap time. With no current context (or an
// unregistered policy) fn is returned unchanged.
func KeepContext[T any](p *policy.Policy, fn func() (T, error)) func() (T, error) {
	tok, err := p.Current()
	if err != nil || tok == nil {
		return fn
	}
	return func() (T, error) {
		prev, perr := p.SetCurrent(tok)
		if perr == nil {
			defer p.SetCurrent(prev)
		}
		return fn()
	}
}

func completeWith[T any](f *future.Future[T], fn func() (T, error)) {
	v, err := fn()
	if err != nil {
		f.Reject(err)
		return
	}
	f.Resolve(v)
}
