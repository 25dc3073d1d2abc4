package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/engine"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/policy"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/script"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/video"
)

func main() {
	var (
		scriptFile  = flag.String("script", "", "Path to script wasm file")
		outFile     = flag.String("o", "-", "Output file, - for stdout")
		output      = flag.Int("output", 0, "Output index to render")
		prefetch    = flag.Int("prefetch", 0, "Frame requests kept in flight (0 = worker count)")
		backlog     = flag.Int("backlog", 0, "Completed frames allowed to pile up (0 = 3x prefetch)")
		workers     = flag.Int("workers", 0, "Engine worker pool size (0 = CPU count)")
		workdir     = flag.String("workdir", "", "Directory mounted as the script's filesystem root")
		raw         = flag.Bool("raw", false, "Emit raw planes without yuv4mpeg framing")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *scriptFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: vsjet-render -script <file.wasm> [-o out.y4m] [-output n]")
		fmt.Fprintln(os.Stderr, "       vsjet-render -script <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	opts := renderJob{
		scriptFile: *scriptFile,
		outFile:    *outFile,
		output:     *output,
		prefetch:   *prefetch,
		backlog:    *backlog,
		workers:    *workers,
		workdir:    *workdir,
		y4m:        !*raw,
	}

	if *interactive {
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type renderJob struct {
	scriptFile string
	outFile    string
	output     int
	prefetch   int
	backlog    int
	workers    int
	workdir    string
	y4m        bool
}

func run(job renderJob) error {
	out, closeOut, err := openOutput(job.outFile)
	if err != nil {
		return err
	}
	defer closeOut()

	// Progress on stderr, carriage-return style, only when a human is
	// watching.
	var progress func(frame, total int)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		progress = func(frame, total int) {
			fmt.Fprintf(os.Stderr, "\rframe %d/%d", frame, total)
			if frame == total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	return render(job, out, progress)
}

// render loads the script and streams the selected output into w.
func render(job renderJob, w io.Writer, progress func(frame, total int)) error {
	core := engine.NewCore(engine.Config{Workers: job.workers})
	defer core.Close()

	pol := policy.New(policy.NewGlobalStore())
	if err := pol.Register(core); err != nil {
		return err
	}

	s, err := script.LoadScript(job.scriptFile, script.Options{
		Core:    core,
		Target:  pol,
		WorkDir: job.workdir,
		Stdout:  os.Stderr,
		Stderr:  os.Stderr,
	})
	if err != nil {
		return err
	}
	defer s.Dispose()

	if _, err := s.Run().Wait(); err != nil {
		return err
	}

	node, err := s.Output(job.output)
	if err != nil {
		return err
	}

	return video.RenderTo(w, node, s, video.RenderOptions{
		Prefetch: job.prefetch,
		Backlog:  job.backlog,
		Y4M:      job.y4m,
		Progress: progress,
	})
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, nil, fmt.Errorf("refusing to write video to a terminal, use -o or redirect stdout")
		}
		return os.Stdout, func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { f.Close() }, nil
}
