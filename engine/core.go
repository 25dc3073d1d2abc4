package engine

import (
	"runtime"
	"strconv"
	"sync"

	"go.uber.org/zap"

	vsjet "github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/errors"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/video"
)

// Config holds configuration for core creation.
type Config struct {
	// Workers is the size of the frame worker pool.
	// 0 means one worker per available CPU.
	Workers int
}

// Core is the reference engine. It implements vsjet.API and
// vsjet.Registrar and is safe for concurrent use.
type Core struct {
	workers    int
	tasks      chan func()
	wg         sync.WaitGroup
	submitters sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	nextID   uint64
	contexts map[uint64]*execContext
	policy   vsjet.Policy
}

// execContext is one engine-side execution context with its outputs.
type execContext struct {
	token   *vsjet.Token
	outputs map[int]video.Node
}

// NewCore creates a core and starts its worker pool.
func NewCore(cfg Config) *Core {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	c := &Core{
		workers:  workers,
		tasks:    make(chan func(), workers),
		contexts: make(map[uint64]*execContext),
	}
	c.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go c.worker()
	}

	Logger().Debug("core started", zap.Int("workers", workers))
	return c
}

func (c *Core) worker() {
	defer c.wg.Done()
	for fn := range c.tasks {
		fn()
	}
}

// submit queues fn on the worker pool. It reports false when the core is
// closed. The send happens outside the lock: a full queue blocks the
// submitter, never unrelated API calls. The submitters group keeps Close
// from closing the channel under a blocked send.
func (c *Core) submit(fn func()) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.submitters.Add(1)
	c.mu.Unlock()

	defer c.submitters.Done()
	c.tasks <- fn
	return true
}

// Close destroys all contexts, detaches the registered policy and drains
// the worker pool. In-flight frame requests finish; new ones fail.
func (c *Core) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	p := c.policy
	c.policy = nil
	n := len(c.contexts)
	c.contexts = make(map[uint64]*execContext)
	c.mu.Unlock()

	if p != nil {
		p.OnCleared()
	}

	// Blocked submitters drain into the still-open channel as workers make
	// room; only then is the channel safe to close.
	c.submitters.Wait()
	close(c.tasks)
	c.wg.Wait()

	if n > 0 {
		Logger().Warn("core closed with live contexts", zap.Int("count", n))
	}
}

// NumWorkers returns the size of the worker pool.
func (c *Core) NumWorkers() int {
	return c.workers
}

// CreateContext allocates a fresh execution context.
func (c *Core) CreateContext() (*vsjet.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.Disposed(errors.PhaseEngine, "core")
	}

	c.nextID++
	tok := vsjet.NewToken(c.nextID)
	c.contexts[c.nextID] = &execContext{
		token:   tok,
		outputs: make(map[int]video.Node),
	}
	return tok, nil
}

// DestroyContext releases the context behind tok. Unknown or already
// destroyed tokens are ignored.
func (c *Core) DestroyContext(tok *vsjet.Token) {
	if tok == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.contexts, tok.ID())
}

// IsAlive reports whether tok refers to a live context.
func (c *Core) IsAlive(tok *vsjet.Token) bool {
	if tok == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.contexts[tok.ID()]
	return ok
}

// RegisterPolicy installs p as the core's policy. Only one policy may be
// registered at a time.
func (c *Core) RegisterPolicy(p vsjet.Policy) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.Disposed(errors.PhaseEngine, "core")
	}
	if c.policy != nil {
		c.mu.Unlock()
		return errors.New(errors.PhaseEngine, errors.KindInvalidInput).
			Detail("a policy is already registered").
			Build()
	}
	c.policy = p
	c.mu.Unlock()

	p.OnRegistered(c)
	return nil
}

// UnregisterPolicy detaches the registered policy, if any.
func (c *Core) UnregisterPolicy() {
	c.mu.Lock()
	p := c.policy
	c.policy = nil
	c.mu.Unlock()

	if p != nil {
		p.OnCleared()
	}
}

// current resolves the calling goroutine's execution context through the
// registered policy.
func (c *Core) current(op string) (*execContext, error) {
	c.mu.Lock()
	p := c.policy
	c.mu.Unlock()

	if p == nil {
		return nil, errors.NotRegistered(errors.PhaseEngine)
	}
	tok := p.CurrentContext()
	if tok == nil {
		return nil, errors.NoActiveContext(errors.PhaseEngine, op)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	ec, ok := c.contexts[tok.ID()]
	if !ok {
		return nil, errors.DeadContext(errors.PhaseEngine, tok.ID())
	}
	return ec, nil
}

// SetOutput publishes node as output index of the current context.
func (c *Core) SetOutput(index int, node video.Node) error {
	ec, err := c.current("SetOutput")
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	ec.outputs[index] = node
	return nil
}

// Output returns output index of the current context.
func (c *Core) Output(index int) (video.Node, error) {
	ec, err := c.current("Output")
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	node, ok := ec.outputs[index]
	if !ok {
		return nil, errors.NotFound(errors.PhaseEngine, "output", strconv.Itoa(index))
	}
	return node, nil
}

// Outputs returns a copy of the current context's output table.
func (c *Core) Outputs() (map[int]video.Node, error) {
	ec, err := c.current("Outputs")
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]video.Node, len(ec.outputs))
	for k, v := range ec.outputs {
		out[k] = v
	}
	return out, nil
}
