package pipeline

import (
	"iter"

	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/future"
)

// Resource is an acquired value with deterministic release.
// Release must tolerate being the only call ever made on the value.
type Resource interface {
	Release()
}

// ReleaseSuperseded wraps a sequence of futures of resources so that each
// resource is released exactly once when the consumer moves past it, whether
// or not the consumer ever waited on it. The consumer receives derived
// futures; a resource is never released before it has been fully produced,
// and a failed future has nothing to release.
//
// When the consumer stops early, the resource it stopped at is also released
// once produced. Consumers that need to keep a resource beyond its slot must
// copy what they need before advancing.
func ReleaseSuperseded[T Resource](src iter.Seq[*future.Future[T]]) iter.Seq[*future.Future[T]] {
	return func(yield func(*future.Future[T]) bool) {
		for fut := range src {
			derived := future.New[T]()
			fut.OnDone(func(f *future.Future[T]) {
				v, err := f.Wait()
				if err != nil {
					derived.Reject(err)
					return
				}
				derived.Resolve(v)
			})

			cont := yield(derived)

			// Superseded now, either by the next element or by the consumer
			// stopping. The release callback is registered after the derived
			// future's, so production always observes the resource first.
			releaseWhenProduced(fut)

			if !cont {
				return
			}
		}
	}
}

func releaseWhenProduced[T Resource](fut *future.Future[T]) {
	fut.OnDone(func(f *future.Future[T]) {
		if v, err := f.Wait(); err == nil {
			v.Release()
		}
	})
}
