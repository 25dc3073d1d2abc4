package script

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"

	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/engine"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/errors"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/policy"
)

type stubProgram struct {
	runs   atomic.Int32
	closes atomic.Int32
	err    error
	body   func()
}

func (p *stubProgram) run(context.Context) error {
	p.runs.Add(1)
	if p.body != nil {
		p.body()
	}
	return p.err
}

func (p *stubProgram) close(context.Context) error {
	p.closes.Add(1)
	return nil
}

func newTestCore(t *testing.T) (*engine.Core, *policy.Policy) {
	t.Helper()
	c := engine.NewCore(engine.Config{Workers: 1})
	t.Cleanup(c.Close)

	p := policy.New(policy.NewGlobalStore())
	if err := p.Register(c); err != nil {
		t.Fatal(err)
	}
	return c, p
}

func TestRunOnce(t *testing.T) {
	c, pol := newTestCore(t)

	prog := &stubProgram{}
	s, err := newScript(prog, &Options{Core: c, Target: pol})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Dispose()

	first := s.Run()
	if got, err := first.Wait(); err != nil || got != s {
		t.Fatalf("Run() = %v, %v", got, err)
	}
	if second := s.Run(); second != first {
		t.Error("second Run returned a different future")
	}
	if n := prog.runs.Load(); n != 1 {
		t.Errorf("program ran %d times, want 1", n)
	}
}

func TestRunReportsProgramError(t *testing.T) {
	c, pol := newTestCore(t)

	boom := stderrors.New("boom")
	s, err := newScript(&stubProgram{err: boom}, &Options{Core: c, Target: pol, Inline: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Dispose()

	if _, err := s.Run().Wait(); !stderrors.Is(err, boom) {
		t.Errorf("Run err = %v, want program error", err)
	}
}

func TestRunExecutesInsideContext(t *testing.T) {
	c, pol := newTestCore(t)

	node := engine.BlankClip(c, engine.ClipConfig{Width: 1, Height: 1, Length: 1})
	prog := &stubProgram{body: func() {
		if err := c.SetOutput(0, node); err != nil {
			t.Error(err)
		}
	}}
	s, err := newScript(prog, &Options{Core: c, Target: pol, Inline: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Dispose()

	if _, err := s.Run().Wait(); err != nil {
		t.Fatal(err)
	}

	got, err := s.Output(0)
	if err != nil {
		t.Fatal(err)
	}
	if got != node {
		t.Error("output not published in the script's context")
	}

	outs, err := s.Outputs()
	if err != nil {
		t.Fatal(err)
	}
	if len(outs) != 1 {
		t.Errorf("outputs = %v", outs)
	}

	if _, err := s.Output(3); !stderrors.Is(err, errors.NotFound(errors.PhaseEngine, "", "")) {
		t.Errorf("missing output err = %v, want not_found", err)
	}
}

func TestTargetPolicyOwnsContext(t *testing.T) {
	c, pol := newTestCore(t)
	_ = c

	s, err := newScript(&stubProgram{}, &Options{Core: c, Target: pol})
	if err != nil {
		t.Fatal(err)
	}

	ctx := s.Context()
	if ctx == nil || ctx.Disposed() {
		t.Fatal("script should hold a live context")
	}

	if err := s.Dispose(); err != nil {
		t.Fatal(err)
	}
	if !ctx.Disposed() {
		t.Error("owned context should be disposed with the script")
	}
}

func TestTargetManagedContextShared(t *testing.T) {
	c, pol := newTestCore(t)

	ctx, err := pol.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	defer ctx.Dispose()

	s, err := newScript(&stubProgram{}, &Options{Core: c, Target: ctx})
	if err != nil {
		t.Fatal(err)
	}
	if s.Context() != ctx {
		t.Error("script should adopt the given context")
	}

	if err := s.Dispose(); err != nil {
		t.Fatal(err)
	}
	if ctx.Disposed() {
		t.Error("unowned context must survive script disposal")
	}
}

func TestTargetScriptShared(t *testing.T) {
	c, pol := newTestCore(t)

	first, err := newScript(&stubProgram{}, &Options{Core: c, Target: pol})
	if err != nil {
		t.Fatal(err)
	}
	defer first.Dispose()

	second, err := newScript(&stubProgram{}, &Options{Core: c, Target: first})
	if err != nil {
		t.Fatal(err)
	}
	defer second.Dispose()

	if second.Context() != first.Context() {
		t.Error("scripts should share one context")
	}
}

func TestTargetInvalid(t *testing.T) {
	c, _ := newTestCore(t)

	_, err := newScript(&stubProgram{}, &Options{Core: c, Target: 42})
	if !stderrors.Is(err, errors.InvalidInput(errors.PhaseScript, "")) {
		t.Errorf("err = %v, want invalid_input", err)
	}
}

func TestDisposeIdempotent(t *testing.T) {
	c, pol := newTestCore(t)

	prog := &stubProgram{}
	s, err := newScript(prog, &Options{Core: c, Target: pol})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Dispose(); err != nil {
		t.Fatal(err)
	}
	if err := s.Dispose(); err != nil {
		t.Fatal(err)
	}
	if n := prog.closes.Load(); n != 1 {
		t.Errorf("program closed %d times, want 1", n)
	}

	if _, err := s.Run().Wait(); !stderrors.Is(err, errors.Disposed(errors.PhaseScript, "")) {
		t.Errorf("Run after Dispose err = %v, want disposed", err)
	}
}
