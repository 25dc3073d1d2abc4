// Package video retrieves and renders frames from video nodes.
//
// The package sits on top of the pipeline package: Frames composes the
// ordered prefetch buffer with supersession-based frame release, and
// Render layers yuv4mpeg framing on top of that.
//
// Every operation takes a target that selects the execution context the
// node is evaluated in: nil keeps whatever context is current, while a
// *policy.ManagedContext (or anything else with a RunInline method, such
// as a loaded script) briefly enters its context for the duration of
// each engine call.
//
//	frames, err := video.Frames(node, ctx, video.FramesOptions{Prefetch: 4})
//	if err != nil {
//	    return err
//	}
//	for fut := range frames {
//	    frame, err := fut.Wait()
//	    if err != nil {
//	        return err
//	    }
//	    process(frame)
//	}
package video
