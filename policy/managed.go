package policy

import (
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	vsjet "github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/errors"
)

// ManagedContext is a disposable handle over one execution context created
// through a Policy. Only disposal checks are valid after Dispose; disposing
// twice is a no-op.
type ManagedContext struct {
	policy  *Policy
	state   *ctxState
	cleanup runtime.Cleanup
}

// ctxState is shared with the leak-report cleanup, which must not reference
// the handle itself.
type ctxState struct {
	token    *vsjet.Token
	disposed atomic.Bool
}

func newManagedContext(p *Policy, tok *vsjet.Token) *ManagedContext {
	state := &ctxState{token: tok}
	m := &ManagedContext{policy: p, state: state}
	m.cleanup = runtime.AddCleanup(m, reportLeak, leakInfo{policy: p, state: state})
	return m
}

type leakInfo struct {
	policy *Policy
	state  *ctxState
}

// reportLeak runs when an undisposed handle becomes unreachable. Abandoning
// a context is a leak in the caller; the context is torn down best-effort
// and the leak is reported, not raised.
func reportLeak(info leakInfo) {
	if !info.state.disposed.CompareAndSwap(false, true) {
		return
	}
	Logger().Warn("context handle was never disposed; disposing from garbage collector",
		zap.Uint64("context", info.state.token.ID()))
	if api, err := info.policy.API(); err == nil {
		api.DestroyContext(info.state.token)
	}
}

// Token returns the context's identity token.
func (m *ManagedContext) Token() *vsjet.Token {
	return m.state.token
}

// Disposed reports whether the handle has been disposed.
func (m *ManagedContext) Disposed() bool {
	return m.state.disposed.Load()
}

// Use makes this context current and returns a function restoring whichever
// context was current before. Nested uses must restore in reverse order of
// entry; the restore functions enforce nothing beyond that contract.
// Entering and leaving are synchronous, never suspension points.
func (m *ManagedContext) Use() (restore func(), err error) {
	if m.Disposed() {
		return nil, errors.Disposed(errors.PhaseContext, "context")
	}
	prev, err := m.policy.SetCurrent(m.state.token)
	if err != nil {
		return nil, err
	}
	return func() {
		m.policy.SetCurrent(prev)
	}, nil
}

// Switch makes this context current without remembering the previous one.
// For callers that own "current" from here on out.
func (m *ManagedContext) Switch() error {
	if m.Disposed() {
		return errors.Disposed(errors.PhaseContext, "context")
	}
	_, err := m.policy.SetCurrent(m.state.token)
	return err
}

// RunInline runs fn with this context as a per-goroutine override that is
// invisible through the store. fn must not suspend and must not hand work
// to other goroutines expecting the override to follow.
func (m *ManagedContext) RunInline(fn func()) error {
	if m.Disposed() {
		return errors.Disposed(errors.PhaseContext, "context")
	}
	m.policy.inlineEnter(m.state.token)
	defer m.policy.inlineExit()
	fn()
	return nil
}

// Dispose hands the context back to the engine for teardown. Idempotent;
// the first call wins and later calls return nil without effect.
func (m *ManagedContext) Dispose() error {
	if !m.state.disposed.CompareAndSwap(false, true) {
		return nil
	}
	m.cleanup.Stop()

	api, err := m.policy.API()
	if err != nil {
		return err
	}
	Logger().Debug("disposing context", zap.Uint64("context", m.state.token.ID()))
	api.DestroyContext(m.state.token)
	return nil
}
