package engine

import (
	"sync/atomic"

	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/video"
)

// frame is a rendered frame owned by the engine. Plane data becomes
// inaccessible once the frame is released.
type frame struct {
	format   video.VideoFormat
	planes   [][]byte
	props    map[string]int64
	released atomic.Bool
}

func (f *frame) Format() video.VideoFormat { return f.format }

func (f *frame) Plane(i int) []byte {
	if f.released.Load() {
		return nil
	}
	return f.planes[i]
}

func (f *frame) Props() map[string]int64 {
	if f.released.Load() {
		return nil
	}
	return f.props
}

func (f *frame) Release() {
	if f.released.CompareAndSwap(false, true) {
		f.planes = nil
		f.props = nil
	}
}
