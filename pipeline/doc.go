// Package pipeline drives many concurrent asynchronous work items against
// an engine while preserving strict output ordering and bounding resource
// usage.
//
// Buffer is the ordered prefetch pipeline: it pulls in-flight futures from a
// lazy source, keeps up to prefetch of them running and up to backlog of
// them buffered, and re-emits them strictly in request order no matter which
// order they complete in:
//
//	src := func(yield func(*future.Future[vsjet.Frame]) bool) {
//	    for n := range clip.NumFrames() {
//	        if !yield(clip.RequestFrame(n)) {
//	            return
//	        }
//	    }
//	}
//	for fut := range pipeline.Buffer(src, 4, -1) {
//	    frame, err := fut.Wait()
//	    ...
//	}
//
// ReleaseSuperseded layers deterministic resource disposal on top: each
// yielded resource is released exactly once, as soon as the consumer moves
// past it.
//
// Neither pipeline cancels in-flight work. A consumer that stops iterating
// halts further scheduling, but items already handed to the engine run to
// completion; make the work items themselves cancellable if early
// termination must reclaim resources promptly.
package pipeline
