package generic

import "fmt"

// Result holds either a value or the error explaining why there is no value.
type Result[T any] struct {
	Value T
	Error error
}

// NewResult wraps a (T, error) return value from another function call as a Result[T].
func NewResult[T any](value T, err error) Result[T] {
	return Result[T]{Value: value, Error: err}
}

// Ok wraps a value as a Result[T] containing that value.
func Ok[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

// Err wraps an error as a Result[T] containing that error.
func Err[T any](err error) Result[T] {
	return Result[T]{Error: err}
}

func (r Result[T]) IsOk() bool {
	return r.Error == nil
}

func (r Result[T]) IsErr() bool {
	return r.Error != nil
}

// Parts splits the Result[T] back into a (T, error) pair.
func (r Result[T]) Parts() (T, error) {
	return r.Value, r.Error
}

// Ok transforms the Result[T] into an Option[T], discarding any error.
func (r Result[T]) Ok() Option[T] {
	return SomeIf(r.Value, r.IsOk())
}

// Expect returns the contained value, or panics with msg and the contained error.
func (r Result[T]) Expect(msg string) T {
	if r.IsErr() {
		panic(fmt.Errorf("%s: %w", msg, r.Error))
	}
	return r.Value
}

// Unwrap is a shortcut for NewResult(...).Expect(...), for values that cannot fail in practice.
func Unwrap[T any](value T, err error) T {
	return NewResult(value, err).Expect("tried to Unwrap() an Err")
}

// Unwrap_ is like Unwrap, but for return values that are just an error.
func Unwrap_(err error) {
	NewResult(NewVoid(), err).Expect("tried to Unwrap() an Err")
}
