// Package engine provides an in-process reference engine.
//
// The engine stands in for a native frame server: it owns a fixed worker
// pool, a table of execution contexts, and a per-context output registry.
// A single policy at a time may register with the engine through
// RegisterPolicy; all context-sensitive operations (such as SetOutput)
// resolve the current context through that policy.
//
//	core := engine.NewCore(engine.Config{Workers: 4})
//	defer core.Close()
//
//	p := policy.New(policy.NewGlobalStore())
//	if err := p.Register(core); err != nil {
//	    log.Fatal(err)
//	}
//
// Clip constructors produce synthetic video nodes whose frames are computed
// on the worker pool. They exist so the surrounding machinery can be
// exercised end-to-end without a native core.
package engine
