// Package future provides the generic future/result type used by every
// asynchronous API in the library.
//
// A Future[T] resolves exactly once, either with a value or with an error.
// Consumers may block on Wait, select on Done, or register completion
// callbacks with OnDone. Callbacks run in registration order on the
// goroutine that completed the future, so they must stay short and must not
// block; the ordered pipelines rely on this.
//
// Producers resolve from any goroutine:
//
//	fut := future.New[int]()
//	go func() { fut.Resolve(compute()) }()
//	v, err := fut.Result(ctx)
//
// There is no awaitable conversion layer: Result takes a context.Context and
// suspends cooperatively, which is the Go-native form of awaiting.
package future
