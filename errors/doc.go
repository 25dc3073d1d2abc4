// Package errors provides structured error types for the vs-jet-engine
// library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes a context path and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseScript, errors.KindExecution).
//		Path("script", "run").
//		Detail("entrypoint trapped").
//		Cause(trap).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotRegistered(errors.PhasePolicy)
//	err := errors.NoActiveContext(errors.PhaseEngine, "set output")
//
// All errors implement the standard error interface and support errors.Is/As.
// Two *Error values match under errors.Is when Phase and Kind both match, so
// callers can probe for a category without caring about the detail text.
package errors
