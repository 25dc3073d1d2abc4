package policy

import (
	"runtime"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	vsjet "github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine"
)

func TestAbandonedHandleLeakWarning(t *testing.T) {
	obsCore, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(obsCore))
	defer SetLogger(zap.NewNop())

	p, eng := registeredPolicy(t)

	// Drop the handle without disposing it. The token alone keeps nothing
	// alive.
	var tok *vsjet.Token
	func() {
		ctx, err := p.NewContext()
		if err != nil {
			t.Fatal(err)
		}
		tok = ctx.Token()
	}()

	deadline := time.Now().Add(5 * time.Second)
	for logs.FilterMessageSnippet("never disposed").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no leak warning after abandoning an undisposed handle")
		}
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	eng.mu.Lock()
	alive := eng.alive[tok]
	destroyed := eng.destroyed[tok]
	eng.mu.Unlock()
	if alive {
		t.Error("leaked context still alive after the collector disposed it")
	}
	if destroyed != 1 {
		t.Errorf("context destroyed %d times, want 1", destroyed)
	}
}

func TestDisposedHandleReportsNoLeak(t *testing.T) {
	obsCore, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(obsCore))
	defer SetLogger(zap.NewNop())

	p, _ := registeredPolicy(t)

	func() {
		ctx, err := p.NewContext()
		if err != nil {
			t.Fatal(err)
		}
		if err := ctx.Dispose(); err != nil {
			t.Fatal(err)
		}
	}()

	for range 5 {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if n := logs.FilterMessageSnippet("never disposed").Len(); n != 0 {
		t.Errorf("got %d leak warnings for a disposed handle", n)
	}
}
