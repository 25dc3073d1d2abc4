package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhasePolicy   Phase = "policy"   // policy registration and store access
	PhaseContext  Phase = "context"  // managed context lifecycle
	PhasePipeline Phase = "pipeline" // prefetch and closing pipelines
	PhaseScript   Phase = "script"   // script loading and execution
	PhaseLoop     Phase = "loop"     // event-loop adapter
	PhaseRender   Phase = "render"   // frame access and rendering
	PhaseEngine   Phase = "engine"   // engine operations
)

// Kind categorizes the error
type Kind string

const (
	// KindNotRegistered marks accessor calls on a policy that has no API
	// handle attached. These are programming errors; never retried.
	KindNotRegistered Kind = "not_registered"

	// KindNoContext marks operations that required a current execution
	// context while none was set (or the stored one died).
	KindNoContext Kind = "no_context"

	// KindDeadContext marks a liveness check failure. Mostly handled
	// internally by clearing the store; surfaces only when a caller held a
	// token it expected to stay alive.
	KindDeadContext Kind = "dead_context"

	KindDisposed     Kind = "disposed"
	KindExecution    Kind = "execution"
	KindCancelled    Kind = "cancelled"
	KindInvalidInput Kind = "invalid_input"
	KindNotFound     Kind = "not_found"
	KindUnsupported  Kind = "unsupported"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the context path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotRegistered creates an error for accessors called before a policy was
// registered with an engine.
func NotRegistered(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotRegistered,
		Detail: "no engine API attached; register the policy first",
	}
}

// NoActiveContext creates an error for operations requiring a current
// execution context when none is set.
func NoActiveContext(phase Phase, operation string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNoContext,
		Detail: fmt.Sprintf("%s requires an active execution context", operation),
	}
}

// DeadContext creates an error for tokens whose context no longer exists.
func DeadContext(phase Phase, id uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDeadContext,
		Detail: fmt.Sprintf("execution context %d no longer exists", id),
	}
}

// Disposed creates an error for operations on a disposed handle.
func Disposed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDisposed,
		Detail: fmt.Sprintf("%s has been disposed", what),
	}
}

// Execution wraps a failure raised while running a user script.
func Execution(cause error) *Error {
	return &Error{
		Phase:  PhaseScript,
		Kind:   KindExecution,
		Detail: "an error was raised while running the script",
		Cause:  cause,
	}
}

// Cancelled creates a cancellation error.
func Cancelled(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCancelled,
		Detail: "operation cancelled",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
