// Package vsjet bridges a stateful frame-processing engine with Go host
// applications, whatever their concurrency model.
//
// The engine executes filter graphs inside isolated execution contexts,
// lightweight-process style: each context has its own globals and output
// registry, and a context is only ever active on one thread at a time. This
// library owns the coordination layer between such an engine and the host:
// tracking which context is current, driving many asynchronous frame requests
// concurrently while delivering results in order, and releasing frames
// deterministically as the consumer moves on.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	vsjet/            Root package with the engine-facing contracts
//	├── errors/       Structured error types for debugging
//	├── future/       Generic future/result type used by all async APIs
//	├── policy/       Context stores, the context policy and managed contexts
//	├── pipeline/     Ordered prefetch and resource-closing pipelines
//	├── loop/         Event-loop adapter for GUI / IO frameworks
//	├── engine/       Reference in-process engine implementation
//	├── video/        Frame access and Y4M rendering on top of the pipelines
//	└── script/       Loading and running user scripts in managed contexts
//
// # Quick Start
//
// Register a policy, create a context and render a clip:
//
//	core := engine.NewCore(engine.Config{})
//	defer core.Close()
//
//	p := policy.New(policy.NewGlobalStore())
//	if err := p.Register(core); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Unregister()
//
//	ctx, err := p.NewContext()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Dispose()
//
//	clip := engine.BlankClip(core, engine.ClipConfig{Width: 640, Height: 480, Length: 100})
//	ctx.RunInline(func() {
//	    core.SetOutput(0, clip)
//	})
//
//	frames, err := video.Frames(clip, ctx, video.FramesOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for fut := range frames {
//	    frame, err := fut.Wait()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // use frame; it is released once the next one is consumed
//	}
//
// # Thread Safety
//
// Policy and the stores are safe for concurrent use. A ManagedContext may be
// shared, but Use/Switch affect whichever store the policy was built with,
// so callers coordinate scope themselves. Pipelines are single-consumer;
// completion callbacks may arrive on any engine worker.
package vsjet
