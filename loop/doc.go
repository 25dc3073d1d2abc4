// Package loop integrates the engine bridge with a host event loop, be it
// GUI-based or IO-based.
//
// The library itself never implements an event loop. Hosts provide an
// EventLoop adapter and install it with SetLoop; until then the inline
// NoLoop adapter is active, which runs loop-dispatched work immediately on
// the calling goroutine and reports every cycle as already complete.
//
// Engine worker goroutines hand results to the host with FromThread, and
// blocking work is pushed off the loop with ToThread. Both return futures.
// Neither preserves the current execution context by itself; wrap the
// function with KeepContext when it must run under the context that was
// current at wrap time.
package loop
