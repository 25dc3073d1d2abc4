package video

import (
	"iter"

	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/errors"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/future"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/pipeline"
)

// Target selects the execution context an operation evaluates its node in.
// It is one of:
//
//   - nil: keep whatever context is current
//   - anything with RunInline(func()) error, such as *policy.ManagedContext
//     or *script.Script: enter that context for the duration of each call
type Target = any

type contextRunner interface {
	RunInline(fn func()) error
}

// inTarget resolves target into a function that runs fn inside it.
func inTarget(target Target) (func(fn func()) error, error) {
	switch t := target.(type) {
	case nil:
		return func(fn func()) error {
			fn()
			return nil
		}, nil
	case contextRunner:
		return t.RunInline, nil
	default:
		return nil, errors.InvalidInput(errors.PhaseRender, "target must be nil or provide RunInline")
	}
}

// workerCounter is implemented by nodes backed by an engine core. It feeds
// the default prefetch depth.
type workerCounter interface {
	NumWorkers() int
}

// GetFrame requests frame n of node inside target. The caller owns the
// returned frame and must release it.
func GetFrame(node Node, n int, target Target) *future.Future[Frame] {
	run, err := inTarget(target)
	if err != nil {
		return future.Failed[Frame](err)
	}

	var fut *future.Future[Frame]
	if terr := run(func() { fut = node.RequestFrame(n) }); terr != nil {
		return future.Failed[Frame](terr)
	}
	return fut
}

// FramesOptions tunes Frames. The zero value requests engine-default
// prefetch, a backlog of three times the prefetch, and release of each
// frame as soon as the next one is consumed.
type FramesOptions struct {
	// Prefetch is the number of frame requests kept in flight. Zero or
	// negative selects the engine's worker count.
	Prefetch int

	// Backlog bounds how many completed frames may pile up waiting for
	// an earlier one. Zero does NOT mean unbuffered: as the field's
	// default it selects three times the prefetch. Only a negative value
	// disables buffering entirely and requests frames one by one.
	Backlog int

	// KeepOpen leaves released-frame management to the caller instead of
	// releasing each frame when the next one is consumed.
	KeepOpen bool
}

// Frames returns the frames of node in order as a sequence of futures.
// Requests are pipelined ahead of consumption; see FramesOptions.
//
// Unless KeepOpen is set, each yielded frame is released when the consumer
// moves on to the next one, so a frame must be fully processed before
// advancing.
func Frames(node Node, target Target, opts FramesOptions) (iter.Seq[*future.Future[Frame]], error) {
	run, err := inTarget(target)
	if err != nil {
		return nil, err
	}

	var length int
	if terr := run(func() { length = node.NumFrames() }); terr != nil {
		return nil, terr
	}

	src := func(yield func(*future.Future[Frame]) bool) {
		for n := 0; n < length; n++ {
			if !yield(GetFrame(node, n, target)) {
				return
			}
		}
	}

	it := iter.Seq[*future.Future[Frame]](src)
	if opts.Backlog >= 0 {
		prefetch := opts.Prefetch
		if prefetch <= 0 {
			if wc, ok := node.(workerCounter); ok {
				prefetch = wc.NumWorkers()
			}
		}
		it = pipeline.Buffer(it, prefetch, opts.Backlog)
	}

	if !opts.KeepOpen {
		it = pipeline.ReleaseSuperseded(it)
	}
	return it, nil
}
