package core

// Result is the outcome of a ledger mutation. Failures are values so callers
// can branch on them without unwinding the request.
type Result[T any] struct {
	Success bool
	Data    T
	Err     error

	// Invalidated lists the views a successful mutation made stale.
	Invalidated []View
}

// Ok builds a successful result.
func Ok[T any](data T, invalidated ...View) Result[T] {
	return Result[T]{Success: true, Data: data, Invalidated: invalidated}
}

// Fail builds a failed result carrying err.
func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Message returns the user facing error text, empty on success.
func (r Result[T]) Message() string {
	if r.Success || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
