package loop

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/future"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/policy"
)

// recordingLoop queues scheduled work until Tick is called.
type recordingLoop struct {
	mu        sync.Mutex
	queued    []func()
	attached  bool
	detached  bool
	attachErr error
}

func (l *recordingLoop) Attach() error {
	l.attached = true
	return l.attachErr
}

func (l *recordingLoop) Detach() {
	l.detached = true
}

func (l *recordingLoop) Schedule(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queued = append(l.queued, fn)
}

func (l *recordingLoop) ScheduleWorker(fn func()) {
	go fn()
}

func (l *recordingLoop) NextCycle() *future.Future[struct{}] {
	f := future.New[struct{}]()
	l.Schedule(func() { f.Resolve(struct{}{}) })
	return f
}

func (l *recordingLoop) WrapCancelled(err error) error {
	return err
}

func (l *recordingLoop) Tick() {
	l.mu.Lock()
	fns := l.queued
	l.queued = nil
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// restoreInline puts the inline adapter back after a test.
func restoreInline(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { SetLoop(NoLoop) })
}

func TestNoLoopRunsInline(t *testing.T) {
	ran := false
	NoLoop.Schedule(func() { ran = true })
	if !ran {
		t.Error("Schedule should run inline with no loop attached")
	}
	if !NoLoop.NextCycle().Completed() {
		t.Error("NextCycle should be resolved with no loop attached")
	}
}

func TestSetLoopAttachDetach(t *testing.T) {
	restoreInline(t)

	l := &recordingLoop{}
	if err := SetLoop(l); err != nil {
		t.Fatal(err)
	}
	if !l.attached {
		t.Error("loop was not attached")
	}
	if Current() != EventLoop(l) {
		t.Error("Current() should return the installed loop")
	}

	if err := SetLoop(NoLoop); err != nil {
		t.Fatal(err)
	}
	if !l.detached {
		t.Error("previous loop was not detached")
	}
}

func TestSetLoopAttachFailureRevertsToInline(t *testing.T) {
	restoreInline(t)

	boom := stderrors.New("attach failed")
	if err := SetLoop(&recordingLoop{attachErr: boom}); err != boom {
		t.Fatalf("SetLoop err = %v, want attach error", err)
	}

	// Back on the inline adapter: everything runs immediately.
	if !Current().NextCycle().Completed() {
		t.Error("expected inline adapter after failed attach")
	}
}

func TestFromThreadDeliversOnLoop(t *testing.T) {
	restoreInline(t)

	l := &recordingLoop{}
	if err := SetLoop(l); err != nil {
		t.Fatal(err)
	}

	f := FromThread(func() (int, error) { return 42, nil })
	if f.Completed() {
		t.Fatal("future should be pending until the loop ticks")
	}

	l.Tick()
	v, err := f.Wait()
	if err != nil || v != 42 {
		t.Errorf("FromThread result = %d, %v", v, err)
	}
}

func TestFromThreadInline(t *testing.T) {
	f := FromThread(func() (string, error) { return "now", nil })
	if !f.Completed() {
		t.Fatal("inline adapter should complete FromThread immediately")
	}
	if v, _ := f.Wait(); v != "now" {
		t.Errorf("result = %q", v)
	}
}

func TestToThread(t *testing.T) {
	f := ToThread(func() (int, error) {
		time.Sleep(time.Millisecond)
		return 7, nil
	})
	v, err := f.Wait()
	if err != nil || v != 7 {
		t.Errorf("ToThread result = %d, %v", v, err)
	}
}

func TestKeepContextPassThroughWhenUnregistered(t *testing.T) {
	p := policy.New(policy.NewGlobalStore())

	calls := 0
	fn := func() (int, error) { calls++; return calls, nil }

	wrapped := KeepContext(p, fn)
	if v, err := wrapped(); err != nil || v != 1 {
		t.Errorf("wrapped() = %d, %v", v, err)
	}
}

func TestWrapCancelled(t *testing.T) {
	if err := NoLoop.WrapCancelled(ErrCancelled); !stderrors.Is(err, context.Canceled) {
		t.Errorf("WrapCancelled(ErrCancelled) = %v, want context.Canceled", err)
	}
	other := stderrors.New("other")
	if err := NoLoop.WrapCancelled(other); err != other {
		t.Errorf("WrapCancelled(other) = %v, want passthrough", err)
	}
}
