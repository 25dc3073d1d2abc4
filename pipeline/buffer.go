package pipeline

import (
	"iter"
	"runtime"
	"sync"

	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/future"
)

// Buffer returns a sequence that yields the futures of src strictly in
// request order while keeping up to prefetch requests in flight and at most
// backlog undelivered entries buffered.
//
// prefetch <= 0 falls back to GOMAXPROCS; callers that know their engine's
// worker count should resolve the default themselves. backlog <= 0 selects
// the default of three times prefetch, and any backlog below prefetch is
// clamped up to prefetch, otherwise the backlog cap would starve the
// concurrency ceiling.
//
// The first failed item stops all further scheduling. Items requested before
// it are still delivered; the failure itself surfaces when the consumer
// waits on the future at the failed item's position. In-flight items past it
// are drained, never force-cancelled.
func Buffer[T any](src iter.Seq[*future.Future[T]], prefetch, backlog int) iter.Seq[*future.Future[T]] {
	if prefetch <= 0 {
		prefetch = runtime.GOMAXPROCS(0)
	}
	if backlog <= 0 {
		backlog = prefetch * 3
	}
	if backlog < prefetch {
		backlog = prefetch
	}

	return func(yield func(*future.Future[T]) bool) {
		next, stop := iter.Pull(src)

		s := &bufferState[T]{
			next:     next,
			prefetch: prefetch,
			backlog:  backlog,
			reorder:  make(map[int]*future.Future[T]),
		}
		s.cond = sync.NewCond(&s.mu)

		// The pull in flight, if any, must settle before stop: next and
		// stop share the coroutine underneath.
		defer func() {
			s.mu.Lock()
			s.finished = true
			for s.pulling {
				s.cond.Wait()
			}
			s.mu.Unlock()
			stop()
		}()

		s.refill()

		for sidx := 0; ; sidx++ {
			s.mu.Lock()
			for {
				if _, ok := s.reorder[sidx]; ok {
					break
				}
				if s.finished && s.running == 0 {
					if len(s.reorder) == 0 {
						s.mu.Unlock()
						return
					}
					// Requests are issued and delivered with contiguous
					// indices, so a missing head with entries behind it
					// means the bookkeeping is broken.
					s.mu.Unlock()
					panic("pipeline: reorder buffer lost its head-of-line entry")
				}
				s.cond.Wait()
			}

			fut := s.reorder[sidx]
			delete(s.reorder, sidx)
			s.mu.Unlock()

			s.refill()

			if !yield(fut) {
				return
			}
		}
	}
}

type bufferState[T any] struct {
	mu        sync.Mutex
	cond      *sync.Cond
	next      func() (*future.Future[T], bool)
	reorder   map[int]*future.Future[T]
	prefetch  int
	backlog   int
	requested int
	running   int
	pulling   bool
	finished  bool
}

// refill issues requests while neither the concurrency ceiling nor the
// undelivered-results backlog is exhausted. The source pull itself runs
// outside the lock: pulling an engine-backed source can block until a
// worker frees up, and that worker needs the lock to report completion.
// The pulling flag keeps the pull single-threaded; whoever holds it
// re-checks the budget on every turn, so budget freed while it pulls is
// picked up before it lets go.
func (s *bufferState[T]) refill() {
	s.mu.Lock()
	if s.pulling {
		s.mu.Unlock()
		return
	}
	s.pulling = true

	for !s.finished && s.running < s.prefetch && len(s.reorder) < s.backlog {
		idx := s.requested
		s.requested++
		s.running++
		s.mu.Unlock()

		fut, ok := s.next()

		s.mu.Lock()
		if !ok {
			s.requested--
			s.running--
			s.finished = true
			break
		}
		s.reorder[idx] = fut
		s.cond.Broadcast()
		s.mu.Unlock()

		// Registered outside the lock: an already-complete future runs the
		// callback inline, and the callback takes the lock again.
		fut.OnDone(s.completed)

		s.mu.Lock()
	}

	s.pulling = false
	s.cond.Broadcast()
	s.mu.Unlock()
}

// completed runs on whichever goroutine finished the work item.
func (s *bufferState[T]) completed(fut *future.Future[T]) {
	s.mu.Lock()
	s.running--
	if !s.finished && fut.Err() != nil {
		// First error aborts further scheduling. The failed future stays in
		// the reorder buffer and surfaces at its position in the sequence.
		s.finished = true
	}
	done := s.finished
	s.cond.Broadcast()
	s.mu.Unlock()

	if !done {
		s.refill()
	}
}
