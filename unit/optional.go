package unit

import "reflect"

// Optional holds a unit that may be absent.
//
// The zero value is absent. Use Some and None to build one explicitly.
type Optional[F any] struct {
	fn      F
	present bool
}

// Some returns an Optional holding fn.
//
// Panics if fn is a nil function: absence must be expressed with None.
func Some[F any](fn F) Optional[F] {
	if isNil(fn) {
		panic("unit.Some: fn must not be nil, use unit.None for an absent unit")
	}
	return Optional[F]{fn: fn, present: true}
}

// None returns an absent Optional.
func None[F any]() Optional[F] {
	return Optional[F]{}
}

// Get returns the held unit and whether it is present.
func (o Optional[F]) Get() (F, bool) {
	return o.fn, o.present
}

// IsPresent reports whether a unit is held.
func (o Optional[F]) IsPresent() bool {
	return o.present
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() { //nolint:exhaustive // only nillable kinds matter
	case reflect.Func, reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
