package script

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/engine"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/errors"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/video"
)

// wasmProgram executes a WASI command module with wazero. The module's
// _start export is its entry point; a "vsjet" host module lets it build
// nodes and publish outputs.
type wasmProgram struct {
	code    []byte
	core    *engine.Core
	workdir string
	stdout  io.Writer
	stderr  io.Writer

	nodes *handleTable[video.Node]

	mu      sync.Mutex
	runtime wazero.Runtime
}

func newWASMProgram(code []byte, opts *Options) *wasmProgram {
	return &wasmProgram{
		code:    code,
		core:    opts.Core,
		workdir: opts.WorkDir,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
		nodes:   newHandleTable[video.Node](),
	}
}

func (p *wasmProgram) run(ctx context.Context) error {
	r := wazero.NewRuntime(ctx)
	p.mu.Lock()
	p.runtime = r
	p.mu.Unlock()

	wasi_snapshot_preview1.MustInstantiate(ctx, r)
	if err := p.instantiateHostModule(ctx, r); err != nil {
		return errors.Wrap(errors.PhaseScript, errors.KindExecution, err, "building host module")
	}

	stdout := p.stdout
	if stdout == nil {
		stdout = io.Discard
	}
	var captured *bytes.Buffer
	stderr := p.stderr
	if stderr == nil {
		captured = &bytes.Buffer{}
		stderr = captured
	}

	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStdout(stdout).
		WithStderr(stderr)
	if p.workdir != "" {
		cfg = cfg.WithFS(os.DirFS(p.workdir))
	}

	if _, err := r.InstantiateWithConfig(ctx, p.code, cfg); err != nil {
		b := errors.New(errors.PhaseScript, errors.KindExecution).Cause(err)
		if captured != nil && captured.Len() > 0 {
			b = b.Detail("script failed: %s", captured.String())
		} else {
			b = b.Detail("script failed")
		}
		return b.Build()
	}
	return nil
}

func (p *wasmProgram) close(ctx context.Context) error {
	p.mu.Lock()
	r := p.runtime
	p.runtime = nil
	p.mu.Unlock()

	p.nodes.clear()
	if r == nil {
		return nil
	}
	return r.Close(ctx)
}

// instantiateHostModule exposes the engine to the guest as the "vsjet"
// module. Host functions run on the guest's goroutine, inside the
// script's execution context.
func (p *wasmProgram) instantiateHostModule(ctx context.Context, r wazero.Runtime) error {
	builder := r.NewHostModuleBuilder("vsjet")
	builder.NewFunctionBuilder().WithFunc(p.blankClip).Export("blank_clip")
	builder.NewFunctionBuilder().WithFunc(p.setOutput).Export("set_output")
	builder.NewFunctionBuilder().WithFunc(p.releaseNode).Export("release_node")
	_, err := builder.Instantiate(ctx)
	return err
}

// blankClip builds a constant-color clip and returns its node handle.
func (p *wasmProgram) blankClip(_ context.Context, width, height, length, fpsNum, fpsDen, color uint32) uint32 {
	if fpsDen == 0 {
		fpsNum, fpsDen = 24, 1
	}
	node := engine.BlankClip(p.core, engine.ClipConfig{
		Width:  int(width),
		Height: int(height),
		Length: int(length),
		FPSNum: int64(fpsNum),
		FPSDen: int64(fpsDen),
		Color:  []byte{byte(color)},
	})
	return p.nodes.insert(node)
}

// setOutput publishes a node as an output of the current context.
// Returns 0 on success, 1 on failure.
func (p *wasmProgram) setOutput(_ context.Context, index, handle uint32) uint32 {
	node, ok := p.nodes.get(handle)
	if !ok {
		Logger().Warn("set_output with unknown node handle", zap.Uint32("handle", handle))
		return 1
	}
	if err := p.core.SetOutput(int(index), node); err != nil {
		Logger().Warn("set_output failed", zap.Error(err))
		return 1
	}
	return 0
}

// releaseNode drops a node handle. Returns 0 on success, 1 on failure.
func (p *wasmProgram) releaseNode(_ context.Context, handle uint32) uint32 {
	if _, ok := p.nodes.remove(handle); !ok {
		return 1
	}
	return 0
}
