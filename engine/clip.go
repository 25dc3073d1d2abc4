package engine

import (
	"time"

	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/errors"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/future"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/video"
)

// ClipConfig describes a synthetic clip.
type ClipConfig struct {
	Width  int
	Height int
	Length int
	Format video.VideoFormat

	// FPSNum/FPSDen default to 24/1.
	FPSNum int64
	FPSDen int64

	// Color fills each plane with a constant byte, one entry per plane.
	// Missing entries fill with zero.
	Color []byte

	// Delay, if set, makes frame n take Delay(n) of worker time before it
	// resolves. Used to exercise out-of-order completion.
	Delay func(n int) time.Duration
}

// clipNode computes frames on its core's worker pool.
type clipNode struct {
	core *Core
	cfg  ClipConfig
}

// BlankClip returns a node of cfg.Length constant-color frames. Frames are
// rendered on the core's worker pool, so requests complete concurrently
// and, with a Delay function, out of order.
func BlankClip(c *Core, cfg ClipConfig) video.Node {
	if cfg.FPSNum == 0 {
		cfg.FPSNum, cfg.FPSDen = 24, 1
	}
	if cfg.Format.NumPlanes == 0 {
		cfg.Format = video.VideoFormat{
			ColorFamily:   video.ColorFamilyGray,
			BitsPerSample: 8,
			NumPlanes:     1,
		}
	}
	return &clipNode{core: c, cfg: cfg}
}

func (n *clipNode) NumFrames() int { return n.cfg.Length }

func (n *clipNode) Format() video.VideoFormat { return n.cfg.Format }

func (n *clipNode) Width() int { return n.cfg.Width }

func (n *clipNode) Height() int { return n.cfg.Height }

func (n *clipNode) FrameRate() (int64, int64) { return n.cfg.FPSNum, n.cfg.FPSDen }

// NumWorkers exposes the core's worker count as the node's natural
// request concurrency.
func (n *clipNode) NumWorkers() int { return n.core.NumWorkers() }

func (n *clipNode) RequestFrame(idx int) *future.Future[video.Frame] {
	fut := future.New[video.Frame]()
	if idx < 0 || idx >= n.cfg.Length {
		fut.Reject(errors.New(errors.PhaseEngine, errors.KindInvalidInput).
			Detail("frame %d out of range [0, %d)", idx, n.cfg.Length).
			Build())
		return fut
	}

	ok := n.core.submit(func() {
		if n.cfg.Delay != nil {
			time.Sleep(n.cfg.Delay(idx))
		}
		fut.Resolve(n.render(idx))
	})
	if !ok {
		fut.Reject(errors.Disposed(errors.PhaseEngine, "core"))
	}
	return fut
}

func (n *clipNode) render(idx int) *frame {
	f := &frame{
		format: n.cfg.Format,
		props:  map[string]int64{"_FrameNumber": int64(idx)},
	}

	bytesPerSample := (n.cfg.Format.BitsPerSample + 7) / 8
	for p := 0; p < n.cfg.Format.NumPlanes; p++ {
		w, h := n.cfg.Width, n.cfg.Height
		if p > 0 {
			w >>= n.cfg.Format.SubSamplingW
			h >>= n.cfg.Format.SubSamplingH
		}

		var fill byte
		if p < len(n.cfg.Color) {
			fill = n.cfg.Color[p]
		}
		plane := make([]byte, w*h*bytesPerSample)
		for i := range plane {
			plane[i] = fill
		}
		f.planes = append(f.planes, plane)
	}
	return f
}
