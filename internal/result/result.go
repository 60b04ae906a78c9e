// Package result provides a typed success-or-failure value and the
// combinators used to chain asynchronous steps without nested callbacks.
package result

import "context"

// Result holds either a value or an error, never both.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Err wraps a failure. A nil error is not a valid failure and panics.
func Err[T any](err error) Result[T] {
	if err == nil {
		panic("result: Err called with nil error")
	}
	return Result[T]{err: err}
}

// From builds a Result from a conventional (value, error) pair.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

// Get unpacks the result into the conventional (value, error) pair.
func (r Result[T]) Get() (T, error) {
	return r.value, r.err
}

func (r Result[T]) IsOk() bool { return r.err == nil }

// Err returns the failure, or nil on success.
func (r Result[T]) Err() error { return r.err }

// Then runs f on the value of a successful result. A failure short-circuits.
func Then[A, B any](r Result[A], f func(A) Result[B]) Result[B] {
	if r.err != nil {
		return Err[B](r.err)
	}
	return f(r.value)
}

// Map transforms the value of a successful result.
func Map[A, B any](r Result[A], f func(A) B) Result[B] {
	if r.err != nil {
		return Err[B](r.err)
	}
	return Ok(f(r.value))
}

// Step is one stage of a pipeline.
type Step[A, B any] func(ctx context.Context, in A) Result[B]

// Chain composes two steps. The second runs only if the first succeeded and
// ctx is still live.
func Chain[A, B, C any](first Step[A, B], second Step[B, C]) Step[A, C] {
	return func(ctx context.Context, in A) Result[C] {
		mid := first(ctx, in)
		if mid.err != nil {
			return Err[C](mid.err)
		}
		if err := ctx.Err(); err != nil {
			return Err[C](err)
		}
		return second(ctx, mid.value)
	}
}

// Lift turns a pure check into a Step.
func Lift[A, B any](f func(A) Result[B]) Step[A, B] {
	return func(_ context.Context, in A) Result[B] {
		return f(in)
	}
}
