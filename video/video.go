package video

import (
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/future"
)

// ColorFamily identifies the color model of a video format.
type ColorFamily int

const (
	ColorFamilyUndefined ColorFamily = iota
	ColorFamilyGray
	ColorFamilyYUV
	ColorFamilyRGB
)

func (c ColorFamily) String() string {
	switch c {
	case ColorFamilyGray:
		return "Gray"
	case ColorFamilyYUV:
		return "YUV"
	case ColorFamilyRGB:
		return "RGB"
	default:
		return "Undefined"
	}
}

// VideoFormat describes the pixel layout of a node or frame.
type VideoFormat struct {
	ColorFamily   ColorFamily
	BitsPerSample int

	// Chroma subsampling as power-of-two shifts, YUV only.
	SubSamplingW int
	SubSamplingH int

	NumPlanes int
}

// Frame is a single decoded video frame. Frames hold engine-side resources
// and must be released when no longer needed; Release is idempotent.
type Frame interface {
	Format() VideoFormat

	// Plane returns the raw bytes of plane i. The slice is only valid
	// until Release is called.
	Plane(i int) []byte

	Props() map[string]int64

	Release()
}

// Node is a lazily evaluated video clip. Frame requests are asynchronous
// and may complete in any order.
type Node interface {
	NumFrames() int
	Format() VideoFormat
	Width() int
	Height() int

	// FrameRate returns the frame rate as a rational.
	FrameRate() (num, den int64)

	RequestFrame(n int) *future.Future[Frame]
}
