package policy

import (
	"sync"
	"sync/atomic"
	"weak"

	"go.uber.org/zap"

	vsjet "github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/errors"
)

// Policy mediates which execution context is current. It wraps exactly one
// Store; every read and write of the store happens under the policy mutex.
// The one exception is the inline per-goroutine override, which is checked
// first and never crosses goroutines.
//
// A Policy is inert until registered with an engine via Register.
type Policy struct {
	store  Store
	mu     sync.Mutex // guards store access
	api    atomic.Pointer[apiHolder]
	inline *inlineSlots
}

type apiHolder struct {
	api vsjet.API
}

// New creates a policy over the given store.
func New(store Store) *Policy {
	return &Policy{
		store:  store,
		inline: newInlineSlots(),
	}
}

// Register registers the policy with an engine. The engine calls back
// OnRegistered with its API handle before Register returns.
func (p *Policy) Register(r vsjet.Registrar) error {
	return r.RegisterPolicy(p)
}

// Unregister detaches the policy from its engine.
func (p *Policy) Unregister() error {
	api, err := p.API()
	if err != nil {
		return err
	}
	api.UnregisterPolicy()
	return nil
}

// API returns the engine handle for more involved interactions.
// It fails with a not_registered error while no engine is attached; that is
// a programming error in the caller, never retried.
func (p *Policy) API() (vsjet.API, error) {
	if h := p.api.Load(); h != nil {
		return h.api, nil
	}
	return nil, errors.NotRegistered(errors.PhasePolicy)
}

// OnRegistered implements vsjet.Policy.
func (p *Policy) OnRegistered(api vsjet.API) {
	p.api.Store(&apiHolder{api: api})
	Logger().Debug("policy registered with engine")
}

// OnCleared implements vsjet.Policy.
func (p *Policy) OnCleared() {
	p.api.Store(nil)
	Logger().Debug("policy cleared")
}

// Current returns the live current context, or nil if none is set.
// A stored context that turns out to be dead is logged, cleared from the
// store and reported as absent, so a second call also returns nil.
func (p *Policy) Current() (*vsjet.Token, error) {
	api, err := p.API()
	if err != nil {
		return nil, err
	}

	// Short inline sections may override the current context for this
	// goroutine without involving the store.
	if tok := p.inline.get(); tok != nil && api.IsAlive(tok) {
		return tok, nil
	}

	// The mutex ensures no observable context switch can interleave here.
	p.mu.Lock()
	defer p.mu.Unlock()

	ref := p.store.Get()
	if ref == (Ref{}) {
		return nil, nil
	}

	tok := ref.Value()
	if tok == nil {
		Logger().Warn("current context was collected; clearing store")
		p.store.Set(Ref{})
		return nil, nil
	}

	if !api.IsAlive(tok) {
		Logger().Warn("got dead context", zap.Uint64("context", tok.ID()))
		p.store.Set(Ref{})
		return nil, nil
	}

	return tok, nil
}

// SetCurrent makes tok current (nil clears) and returns whichever context
// was current before the call. A dead tok is treated as nil: the store is
// never left holding a reference to a context that no longer exists.
func (p *Policy) SetCurrent(tok *vsjet.Token) (*vsjet.Token, error) {
	api, err := p.API()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.store.Get().Value()

	switch {
	case tok == nil:
		p.store.Set(Ref{})
	case !api.IsAlive(tok):
		Logger().Warn("refusing to store dead context", zap.Uint64("context", tok.ID()))
		p.store.Set(Ref{})
	default:
		p.store.Set(weak.Make(tok))
	}

	return prev, nil
}

// IsAlive reports whether the context behind tok still exists.
func (p *Policy) IsAlive(tok *vsjet.Token) (bool, error) {
	api, err := p.API()
	if err != nil {
		return false, err
	}
	return api.IsAlive(tok), nil
}

// CurrentContext implements vsjet.Policy. Engines only call this while the
// policy is registered, so an attached API is an invariant here.
func (p *Policy) CurrentContext() *vsjet.Token {
	tok, err := p.Current()
	if err != nil {
		panic(err)
	}
	return tok
}

// SetContext implements vsjet.Policy.
func (p *Policy) SetContext(tok *vsjet.Token) *vsjet.Token {
	prev, err := p.SetCurrent(tok)
	if err != nil {
		panic(err)
	}
	return prev
}

// NewContext asks the engine for a fresh execution context and wraps it in
// a managed handle. The new context does not become current by creation.
// Call Dispose on the handle when done with it.
func (p *Policy) NewContext() (*ManagedContext, error) {
	api, err := p.API()
	if err != nil {
		return nil, err
	}

	tok, err := api.CreateContext()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseContext, errors.KindInvalidInput, err, "create context")
	}
	Logger().Debug("created new context", zap.Uint64("context", tok.ID()))

	return newManagedContext(p, tok), nil
}

// WithCurrent captures the context current at wrap time and returns a
// function that re-enters it around every invocation of fn. If no context
// is current (or the policy is unregistered), fn is returned unchanged.
func (p *Policy) WithCurrent(fn func()) func() {
	tok, err := p.Current()
	if err != nil || tok == nil {
		return fn
	}
	return func() {
		prev, err := p.SetCurrent(tok)
		if err != nil {
			fn()
			return
		}
		defer p.SetCurrent(prev)
		fn()
	}
}

// inlineEnter installs a per-goroutine override returned by Current ahead
// of the store. Strictly paired with inlineExit; the section between them
// must not suspend, or unrelated code scheduled on this goroutine would
// observe the override. Not exposed outside the package for that reason.
func (p *Policy) inlineEnter(tok *vsjet.Token) {
	p.inline.set(tok)
}

func (p *Policy) inlineExit() {
	p.inline.clear()
}
