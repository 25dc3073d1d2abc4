package script

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/engine"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/errors"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/future"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/policy"
	"github.com/Jaded-Encoding-Thaumaturgy/vs-jet-engine/video"
)

// Options configures script loading.
type Options struct {
	// Core is the engine the script talks to. Required.
	Core *engine.Core

	// Target decides the execution context the script runs in:
	//
	//   - *policy.Policy: a fresh context, owned by the script and
	//     destroyed by Dispose
	//   - *policy.ManagedContext: that context, not owned
	//   - *Script: the other script's context, not owned
	Target any

	// WorkDir is mounted as the script's filesystem root. Empty leaves
	// the script without filesystem access.
	WorkDir string

	// Inline runs the script on the goroutine that calls Run instead of
	// a background one.
	Inline bool

	// Stdout and Stderr receive the script's output. Unset stdout is
	// discarded; unset stderr is captured and attached to execution
	// errors.
	Stdout io.Writer
	Stderr io.Writer
}

// program is the executable body of a script.
type program interface {
	run(ctx context.Context) error
	close(ctx context.Context) error
}

// Script is a loaded, not yet executed script. Scripts run at most once.
type Script struct {
	prog  program
	ctx   *policy.ManagedContext
	core  *engine.Core
	owned bool

	inline   bool
	runOnce  sync.Once
	result   *future.Future[*Script]
	disposed atomic.Bool
}

// LoadScript reads path and loads it as a script.
func LoadScript(path string, opts Options) (*Script, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseScript, errors.KindNotFound).
			Path(path).
			Cause(err).
			Detail("reading script").
			Build()
	}
	return LoadCode(code, opts)
}

// LoadCode loads a WASI command module as a script.
func LoadCode(code []byte, opts Options) (*Script, error) {
	if opts.Core == nil {
		return nil, errors.InvalidInput(errors.PhaseScript, "options require a core")
	}
	prog := newWASMProgram(code, &opts)
	return newScript(prog, &opts)
}

// newScript resolves the target and assembles a script around prog.
func newScript(prog program, opts *Options) (*Script, error) {
	s := &Script{
		prog:   prog,
		core:   opts.Core,
		inline: opts.Inline,
		result: future.New[*Script](),
	}

	switch t := opts.Target.(type) {
	case *policy.Policy:
		ctx, err := t.NewContext()
		if err != nil {
			return nil, err
		}
		s.ctx = ctx
		s.owned = true
	case *policy.ManagedContext:
		s.ctx = t
	case *Script:
		s.ctx = t.ctx
	default:
		return nil, errors.InvalidInput(errors.PhaseScript,
			"target must be a policy, a managed context or another script")
	}
	return s, nil
}

// Context returns the execution context the script runs in.
func (s *Script) Context() *policy.ManagedContext {
	return s.ctx
}

// Run executes the script and returns a future resolving to the script
// itself. Later calls return the same future without running again.
func (s *Script) Run() *future.Future[*Script] {
	s.runOnce.Do(func() {
		if s.disposed.Load() {
			s.result.Reject(errors.Disposed(errors.PhaseScript, "script"))
			return
		}
		if s.inline {
			s.execute()
		} else {
			go s.execute()
		}
	})
	return s.result
}

func (s *Script) execute() {
	var runErr error
	err := s.ctx.RunInline(func() {
		runErr = s.prog.run(context.Background())
	})
	if err == nil {
		err = runErr
	}

	if err != nil {
		Logger().Debug("script failed", zap.Error(err))
		s.result.Reject(err)
		return
	}
	s.result.Resolve(s)
}

// RunInline runs fn inside the script's execution context.
func (s *Script) RunInline(fn func()) error {
	return s.ctx.RunInline(fn)
}

// Output returns output index of the script's context.
func (s *Script) Output(index int) (video.Node, error) {
	var node video.Node
	var oerr error
	if err := s.ctx.RunInline(func() {
		node, oerr = s.core.Output(index)
	}); err != nil {
		return nil, err
	}
	return node, oerr
}

// Outputs returns the output table of the script's context.
func (s *Script) Outputs() (map[int]video.Node, error) {
	var outs map[int]video.Node
	var oerr error
	if err := s.ctx.RunInline(func() {
		outs, oerr = s.core.Outputs()
	}); err != nil {
		return nil, err
	}
	return outs, oerr
}

// Dispose releases the script and, when the script owns its execution
// context, the context along with it. Dispose is idempotent.
func (s *Script) Dispose() error {
	if !s.disposed.CompareAndSwap(false, true) {
		return nil
	}

	err := s.prog.close(context.Background())
	if s.owned {
		if derr := s.ctx.Dispose(); err == nil {
			err = derr
		}
	}
	return err
}
