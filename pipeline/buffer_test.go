package pipeline

import (
	"errors"
	"iter"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/future"
)

// delayedSource issues futures that resolve to their index after a
// per-index delay, tracking how many are in flight at once.
type delayedSource struct {
	issued      atomic.Int64
	completed   atomic.Int64
	maxInFlight atomic.Int64
	delay       func(i int) time.Duration
}

func (s *delayedSource) seq(n int) iter.Seq[*future.Future[int]] {
	return func(yield func(*future.Future[int]) bool) {
		for i := range n {
			fut := future.New[int]()
			inFlight := s.issued.Add(1) - s.completed.Load()
			for {
				max := s.maxInFlight.Load()
				if inFlight <= max || s.maxInFlight.CompareAndSwap(max, inFlight) {
					break
				}
			}
			go func() {
				if s.delay != nil {
					time.Sleep(s.delay(i))
				}
				s.completed.Add(1)
				fut.Resolve(i)
			}()
			if !yield(fut) {
				return
			}
		}
	}
}

func collect(t *testing.T, seq iter.Seq[*future.Future[int]]) []int {
	t.Helper()
	var out []int
	for fut := range seq {
		v, err := fut.Wait()
		if err != nil {
			t.Fatalf("unexpected failure at %d: %v", len(out), err)
		}
		out = append(out, v)
	}
	return out
}

func assertAscending(t *testing.T, got []int, n int) {
	t.Helper()
	if len(got) != n {
		t.Fatalf("yielded %d results, want %d", len(got), n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("results out of order: got %v", got)
		}
	}
}

func TestBufferOrderAgainstReversedLatency(t *testing.T) {
	const n = 8
	// Earlier items take longer, so completion order is roughly reversed.
	src := &delayedSource{delay: func(i int) time.Duration {
		return time.Duration(n-i) * 5 * time.Millisecond
	}}

	got := collect(t, Buffer(src.seq(n), 4, -1))
	assertAscending(t, got, n)
}

func TestBufferConcurrencyCeiling(t *testing.T) {
	const n, prefetch = 20, 3
	src := &delayedSource{delay: func(i int) time.Duration {
		return time.Duration(rand.Intn(5)) * time.Millisecond
	}}

	got := collect(t, Buffer(src.seq(n), prefetch, -1))
	assertAscending(t, got, n)

	if max := src.maxInFlight.Load(); max > prefetch {
		t.Errorf("observed %d requests in flight, ceiling is %d", max, prefetch)
	}
}

func TestBufferBacklogBound(t *testing.T) {
	const n, prefetch, backlog = 30, 2, 4
	src := &delayedSource{}

	var delivered atomic.Int64
	for fut := range Buffer(src.seq(n), prefetch, backlog) {
		// Buffered entries never exceed the backlog. The element in hand has
		// already left the buffer, hence the +1.
		if pending := src.issued.Load() - delivered.Load(); pending > backlog+1 {
			t.Fatalf("%d undelivered entries, backlog is %d", pending, backlog)
		}
		if _, err := fut.Wait(); err != nil {
			t.Fatal(err)
		}
		delivered.Add(1)
		// Let completions race ahead of the consumer.
		time.Sleep(time.Millisecond)
	}
	if delivered.Load() != n {
		t.Fatalf("delivered %d, want %d", delivered.Load(), n)
	}
}

func TestBufferBacklogClampedToPrefetch(t *testing.T) {
	const n = 6
	src := &delayedSource{}
	// backlog below prefetch gets clamped up rather than starving refills.
	got := collect(t, Buffer(src.seq(n), 4, 1))
	assertAscending(t, got, n)
}

func TestBufferFirstErrorAbortsScheduling(t *testing.T) {
	const n, failAt = 10, 3
	boom := errors.New("boom")

	var issued atomic.Int64
	src := func(yield func(*future.Future[int]) bool) {
		for i := range n {
			issued.Add(1)
			var fut *future.Future[int]
			if i == failAt {
				fut = future.Failed[int](boom)
			} else {
				fut = future.Resolved(i)
			}
			if !yield(fut) {
				return
			}
		}
	}

	var got []int
	var failure error
	for fut := range Buffer(src, 4, -1) {
		v, err := fut.Wait()
		if err != nil {
			failure = err
			break
		}
		got = append(got, v)
	}

	if failure != boom {
		t.Fatalf("failure = %v, want boom", failure)
	}
	// Everything before the failing index still arrived, in order.
	assertAscending(t, got, failAt)
	// Nothing was scheduled once the failure was observed: the failing item
	// completes at request time, so it is the last request issued.
	if n := issued.Load(); n != failAt+1 {
		t.Errorf("issued %d requests, want %d", n, failAt+1)
	}
}

func TestBufferEarlyStopHaltsScheduling(t *testing.T) {
	src := &delayedSource{delay: func(int) time.Duration { return time.Millisecond }}

	var got []int
	for fut := range Buffer(src.seq(100), 2, 4) {
		v, err := fut.Wait()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, v)
		if len(got) == 3 {
			break
		}
	}
	assertAscending(t, got, 3)

	after := src.issued.Load()
	time.Sleep(20 * time.Millisecond)
	if now := src.issued.Load(); now != after {
		t.Errorf("requests kept being issued after the consumer stopped: %d -> %d", after, now)
	}
}

func TestBufferSourceShorterThanPrefetch(t *testing.T) {
	src := &delayedSource{}
	got := collect(t, Buffer(src.seq(2), 8, -1))
	assertAscending(t, got, 2)
}

func TestBufferEmptySource(t *testing.T) {
	src := &delayedSource{}
	got := collect(t, Buffer(src.seq(0), 2, -1))
	if len(got) != 0 {
		t.Fatalf("yielded %d results from empty source", len(got))
	}
}

func TestBufferEndToEnd(t *testing.T) {
	const n, prefetch, backlog = 6, 2, 4
	src := &delayedSource{delay: func(int) time.Duration {
		return time.Duration(rand.Intn(50)) * time.Millisecond
	}}

	got := collect(t, Buffer(src.seq(n), prefetch, backlog))
	assertAscending(t, got, n)

	// All requests drained: nothing left running.
	deadline := time.Now().Add(time.Second)
	for src.completed.Load() != src.issued.Load() {
		if time.Now().After(deadline) {
			t.Fatalf("outstanding requests never drained: issued %d, completed %d",
				src.issued.Load(), src.completed.Load())
		}
		time.Sleep(time.Millisecond)
	}

	if max := src.maxInFlight.Load(); max > prefetch {
		t.Errorf("observed %d in flight, ceiling is %d", max, prefetch)
	}
}

func TestBufferManyConsumersIndependent(t *testing.T) {
	// Reorder state is private per invocation; two pipelines over separate
	// sources must not interfere.
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src := &delayedSource{delay: func(i int) time.Duration {
				return time.Duration(rand.Intn(3)) * time.Millisecond
			}}
			var out []int
			for fut := range Buffer(src.seq(12), 3, -1) {
				v, err := fut.Wait()
				if err != nil {
					t.Error(err)
					return
				}
				out = append(out, v)
			}
			for i, v := range out {
				if v != i {
					t.Errorf("results out of order: %v", out)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestBufferPrefetchExceedsWorkerQueue(t *testing.T) {
	// One worker behind a full-at-one task queue: the source blocks in
	// yield until the worker makes room, and the worker resolves futures
	// whose completion callbacks take the pipeline lock. The pipeline must
	// never hold its lock across a source pull, or the two block each
	// other for good.
	const n = 10
	tasks := make(chan func(), 1)
	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		for fn := range tasks {
			fn()
		}
	}()

	src := func(yield func(*future.Future[int]) bool) {
		for i := range n {
			fut := future.New[int]()
			tasks <- func() { fut.Resolve(i) }
			if !yield(fut) {
				return
			}
		}
	}

	done := make(chan []int, 1)
	go func() {
		var out []int
		for fut := range Buffer(iter.Seq[*future.Future[int]](src), 4, 12) {
			v, err := fut.Wait()
			if err != nil {
				break
			}
			out = append(out, v)
		}
		done <- out
	}()

	select {
	case got := <-done:
		assertAscending(t, got, n)
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline deadlocked against the bounded worker queue")
	}

	close(tasks)
	workers.Wait()
}
