// Package policy implements the context-coordination layer between an
// engine and its host application: pluggable stores for "which execution
// context is current", the policy that mediates every read and write of that
// state, and managed context handles with deterministic disposal.
//
// A quick run-down (but read on to pick the right store):
//
//	core := engine.New(engine.Config{})
//	p := policy.New(policy.NewGlobalStore())
//	if err := p.Register(core); err != nil { ... }
//	defer p.Unregister()
//
//	ctx, err := p.NewContext()
//	if err != nil { ... }
//	defer ctx.Dispose()
//
//	restore, err := ctx.Use()
//	if err != nil { ... }
//	core.SetOutput(0, clip)
//	restore()
//
// # Picking a store
//
// A Store is a single slot holding a weak reference to the current context's
// token. Three implementations cover different concurrency needs:
//
//   - GlobalStore: one slot for the whole process. Correct only when a
//     single context is ever active at a time.
//   - GoroutineLocalStore: one slot per goroutine. Matches deployments that
//     dedicate a worker goroutine to each context.
//   - TaskLocalStore: one slot per goroutine plus explicit propagation to
//     child goroutines via Propagate. Use this with event-loop hosts.
//     Reuse the same TaskLocalStore across successive policies, otherwise
//     slots written under the old policy linger in the new one.
//
// The store never keeps a context alive: it holds weak references only, and
// the policy clears the slot when the engine reports the context dead.
//
// # Disposal
//
// ManagedContext handles must be disposed with Dispose when no longer
// needed. Abandoning one is reported as a leak through the package logger
// when the garbage collector finds it, and the context is then torn down
// best-effort; do not rely on that.
package policy
