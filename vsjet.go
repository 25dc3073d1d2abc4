package vsjet

// Token identifies one execution context. The engine allocates tokens and
// owns all context state behind them; everything else holds tokens only to
// compare identity or to ask the engine whether the context is still alive.
// Tokens are compared by pointer identity and must not be copied.
type Token struct {
	id uint64
}

// NewToken creates a token with the given engine-assigned id.
// Only engine implementations should call this.
func NewToken(id uint64) *Token {
	return &Token{id: id}
}

// ID returns the engine-assigned id, for logging.
func (t *Token) ID() uint64 {
	return t.id
}

// API is the handle an engine gives a policy on registration. It is the
// engine's context-lifecycle oracle: creation, teardown and liveness all go
// through it. All methods are safe for concurrent use.
type API interface {
	// CreateContext allocates a fresh execution context.
	CreateContext() (*Token, error)

	// DestroyContext tears the context down. Destroying an already-destroyed
	// context is a no-op.
	DestroyContext(*Token)

	// IsAlive reports whether the context behind the token still exists.
	// Pure query, no side effects.
	IsAlive(*Token) bool

	// NumWorkers returns the engine's worker count. Used as the default
	// concurrency for prefetching pipelines.
	NumWorkers() int

	// UnregisterPolicy detaches the policy this API was issued to.
	// The engine calls OnCleared on the policy before returning.
	UnregisterPolicy()
}

// Policy mediates which execution context is current. The engine consults
// CurrentContext whenever an internal call needs a context, possibly from
// any of its worker threads.
type Policy interface {
	// OnRegistered is called once when the engine accepts the policy.
	// The API handle stays valid until OnCleared.
	OnRegistered(API)

	// OnCleared is called when the policy is unregistered. The policy must
	// drop its API handle.
	OnCleared()

	// CurrentContext returns the current context, or nil if none is set or
	// the stored context died.
	CurrentContext() *Token

	// SetContext makes the given context current (nil clears) and returns
	// whichever context was current before.
	SetContext(*Token) *Token
}

// Registrar is implemented by engines that accept context policies.
// Only one policy may be registered at a time.
type Registrar interface {
	RegisterPolicy(Policy) error
}
