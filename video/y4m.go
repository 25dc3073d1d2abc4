package video

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/errors"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/future"
)

// Chunk is one piece of a rendered stream: the stream header at Index 0,
// then one chunk per frame.
type Chunk struct {
	Index int
	Data  []byte
}

// RenderOptions tunes Render and RenderTo.
type RenderOptions struct {
	// Prefetch and Backlog are passed through to Frames.
	Prefetch int
	Backlog  int

	// Y4M prepends a yuv4mpeg stream header and frames each chunk with a
	// FRAME marker. Only Gray and YUV formats can be framed this way.
	Y4M bool

	// Progress, if set, is called by RenderTo after each frame is
	// written.
	Progress func(frame, total int)
}

// y4mColorTag renders the C parameter of a yuv4mpeg header.
func y4mColorTag(f VideoFormat) (string, error) {
	var tag string
	switch f.ColorFamily {
	case ColorFamilyGray:
		tag = "mono"
		if f.BitsPerSample > 8 {
			tag += fmt.Sprint(f.BitsPerSample)
		}
	case ColorFamilyYUV:
		switch {
		case f.SubSamplingW == 1 && f.SubSamplingH == 1:
			tag = "420"
		case f.SubSamplingW == 1 && f.SubSamplingH == 0:
			tag = "422"
		case f.SubSamplingW == 0 && f.SubSamplingH == 0:
			tag = "444"
		case f.SubSamplingW == 2 && f.SubSamplingH == 2:
			tag = "410"
		case f.SubSamplingW == 2 && f.SubSamplingH == 0:
			tag = "411"
		case f.SubSamplingW == 0 && f.SubSamplingH == 1:
			tag = "440"
		}
		if f.BitsPerSample > 8 {
			tag += fmt.Sprintf("p%d", f.BitsPerSample)
		}
	default:
		return "", errors.Unsupported(errors.PhaseRender, "yuv4mpeg output for "+f.ColorFamily.String()+" formats")
	}
	return tag, nil
}

func y4mHeader(node Node) ([]byte, error) {
	tag, err := y4mColorTag(node.Format())
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("YUV4MPEG2 ")
	if tag != "" {
		b.WriteString("C" + tag + " ")
	}
	num, den := node.FrameRate()
	fmt.Fprintf(&b, "W%d H%d F%d:%d Ip A0:0 XLENGTH=%d\n",
		node.Width(), node.Height(), num, den, node.NumFrames())
	return []byte(b.String()), nil
}

// Render produces the byte stream of node as a sequence of chunk futures,
// in order. With Y4M set the first chunk is the stream header; frame
// chunks follow, each the concatenation of the frame's planes.
//
// Frames are released as soon as their bytes are extracted, so the
// sequence runs with the default buffered pipeline.
func Render(node Node, target Target, opts RenderOptions) (iter.Seq[*future.Future[Chunk]], error) {
	var header []byte
	if opts.Y4M {
		var err error
		if header, err = y4mHeader(node); err != nil {
			return nil, err
		}
	}

	frames, err := Frames(node, target, FramesOptions{
		Prefetch: opts.Prefetch,
		Backlog:  opts.Backlog,
		KeepOpen: true,
	})
	if err != nil {
		return nil, err
	}

	return func(yield func(*future.Future[Chunk]) bool) {
		if opts.Y4M {
			if !yield(future.Resolved(Chunk{Index: 0, Data: header})) {
				return
			}
		}

		index := 0
		for fut := range frames {
			index++
			chunk := future.Map(fut, renderFrame(index, opts.Y4M))
			if !yield(chunk) {
				return
			}
		}
	}, nil
}

// renderFrame extracts the plane bytes of a frame and releases it.
func renderFrame(index int, y4m bool) func(Frame) (Chunk, error) {
	return func(frame Frame) (Chunk, error) {
		defer frame.Release()

		var buf []byte
		if y4m {
			buf = append(buf, "FRAME\n"...)
		}
		format := frame.Format()
		for p := 0; p < format.NumPlanes; p++ {
			buf = append(buf, frame.Plane(p)...)
		}
		return Chunk{Index: index, Data: buf}, nil
	}
}

// RenderTo renders node into w, chunk by chunk and in order. The first
// failed chunk aborts the render and is returned.
func RenderTo(w io.Writer, node Node, target Target, opts RenderOptions) error {
	chunks, err := Render(node, target, opts)
	if err != nil {
		return err
	}

	total := node.NumFrames()
	for fut := range chunks {
		chunk, err := fut.Wait()
		if err != nil {
			return err
		}
		if _, err := w.Write(chunk.Data); err != nil {
			return errors.Wrap(errors.PhaseRender, errors.KindExecution, err, "writing rendered chunk")
		}
		if opts.Progress != nil && chunk.Index > 0 {
			opts.Progress(chunk.Index, total)
		}
	}
	return nil
}
