package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	f := New[int]()
	if f.Completed() {
		t.Fatal("new future should be pending")
	}

	if !f.Resolve(42) {
		t.Fatal("first Resolve should succeed")
	}
	if f.Resolve(43) {
		t.Error("second Resolve should report false")
	}
	if f.Reject(errors.New("late")) {
		t.Error("Reject after Resolve should report false")
	}

	v, err := f.Wait()
	if err != nil || v != 42 {
		t.Errorf("Wait() = %d, %v, want 42, nil", v, err)
	}
}

func TestReject(t *testing.T) {
	boom := errors.New("boom")
	f := Failed[string](boom)

	v, err := f.Wait()
	if err != boom || v != "" {
		t.Errorf("Wait() = %q, %v, want \"\", boom", v, err)
	}
	if f.Err() != boom {
		t.Errorf("Err() = %v, want boom", f.Err())
	}
}

func TestResultContextCancel(t *testing.T) {
	f := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Result(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Result() err = %v, want context.Canceled", err)
	}

	// The future itself is untouched by consumer cancellation.
	if f.Completed() {
		t.Error("future should still be pending")
	}
}

func TestTryResult(t *testing.T) {
	f := New[int]()
	if _, _, ok := f.TryResult(); ok {
		t.Error("TryResult on pending future should report !ok")
	}
	f.Resolve(7)
	v, err, ok := f.TryResult()
	if !ok || err != nil || v != 7 {
		t.Errorf("TryResult() = %d, %v, %v", v, err, ok)
	}
}

func TestOnDoneOrder(t *testing.T) {
	f := New[int]()
	var mu sync.Mutex
	var order []int

	for i := range 3 {
		f.OnDone(func(*Future[int]) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	f.Resolve(1)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("callbacks ran out of registration order: %v", order)
	}
}

func TestOnDoneAfterCompletion(t *testing.T) {
	f := Resolved(5)
	ran := false
	f.OnDone(func(*Future[int]) { ran = true })
	if !ran {
		t.Error("OnDone on a completed future should run inline")
	}
}

func TestMap(t *testing.T) {
	f := New[int]()
	doubled := Map(f, func(v int) (int, error) { return v * 2, nil })
	f.Resolve(21)

	v, err := doubled.Wait()
	if err != nil || v != 42 {
		t.Errorf("mapped result = %d, %v, want 42, nil", v, err)
	}
}

func TestMapPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	f := Failed[int](boom)
	m := Map(f, func(v int) (int, error) { return v, nil })
	if _, err := m.Wait(); err != boom {
		t.Errorf("mapped err = %v, want boom", err)
	}

	g := Resolved(1)
	m2 := Map(g, func(int) (int, error) { return 0, boom })
	if _, err := m2.Wait(); err != boom {
		t.Errorf("mapping err = %v, want boom", err)
	}
}

func TestGo(t *testing.T) {
	f := Go(func() (int, error) {
		time.Sleep(time.Millisecond)
		return 9, nil
	})
	v, err := f.Wait()
	if err != nil || v != 9 {
		t.Errorf("Go result = %d, %v", v, err)
	}
}

func TestConcurrentResolvers(t *testing.T) {
	f := New[int]()
	var wg sync.WaitGroup
	wins := 0
	var mu sync.Mutex

	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.Resolve(i) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("exactly one resolver should win, got %d", wins)
	}
}
