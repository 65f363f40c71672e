package chain

// Option is the explicit wrapped-optional returned by ledger map lookups.
// A storage map entry either holds a record (Present) or was removed
// (Absent); every unwrap site handles both cases instead of relying on
// null-like access.
type Option[T any] struct {
	value   T
	present bool
}

// Some wraps a present value.
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, present: true}
}

// None is the absent case.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Present reports whether a value is wrapped.
func (o Option[T]) Present() bool {
	return o.present
}

// Value unwraps the option. The boolean is false for the absent case, in
// which case the returned value is the zero value and must not be used.
func (o Option[T]) Value() (T, bool) {
	return o.value, o.present
}
