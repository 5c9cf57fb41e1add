package generic

// Option holds either a value or nothing.
type Option[T any] struct {
	value    T
	hasValue bool
}

// Some constructs an Option[T] that has a value.
func Some[T any](value T) Option[T] {
	return Option[T]{value: value, hasValue: true}
}

// None constructs an Option[T] that does not have a value.
func None[T any]() Option[T] {
	return Option[T]{}
}

// SomeIf is Some(value) if ok is true, otherwise None().
func SomeIf[T any](value T, ok bool) Option[T] {
	if !ok {
		return None[T]()
	}
	return Some(value)
}

// IsSome returns true if this Option[T] has a value.
func (o Option[T]) IsSome() bool {
	return o.hasValue
}

// IsNone returns true if this Option[T] does not have a value.
func (o Option[T]) IsNone() bool {
	return !o.hasValue
}

// Get returns the contained value and whether it was present, like a map lookup.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.hasValue
}

// OkOr transforms the Option[T] into a Result[T] with the contained value, or the specified error if there is no value.
func (o Option[T]) OkOr(err error) Result[T] {
	if o.hasValue {
		return Ok(o.value)
	}
	return Err[T](err)
}

// OrElse returns the option itself if it has a value, otherwise it returns the result of the callback.
func (o Option[T]) OrElse(f func() Option[T]) Option[T] {
	if o.hasValue {
		return o
	}
	return f()
}

// UnwrapOr returns the contained value, or other if there is no value.
func (o Option[T]) UnwrapOr(other T) T {
	if o.hasValue {
		return o.value
	}
	return other
}
