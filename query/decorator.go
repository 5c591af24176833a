package query

import (
	"context"
	"fmt"
	"reflect"

	"github.com/rise-and-shine/persist/unit"
)

// Decorator is a query that runs business logic before and after a delegate query,
// all inside the delegate's execution context.
//
// It decouples business logic from persistence logic when the outcome of that logic decides
// whether the store operation is committed. For example, if some rule checked after a model is
// persisted fails, the error returned from Execute makes the store roll the write back.
//
// Execution order per call is strictly: pre-processing, delegate, post-processing.
// The first failure is returned unchanged and the remaining steps are skipped.
//
// A Decorator holds no mutable state. It is safe for concurrent use as long as the delegate
// and the hooks are.
type Decorator[R, C any] struct {
	delegate       Query[R, C]
	preProcessing  unit.Optional[unit.Action]
	postProcessing unit.Optional[unit.Consumer[R]]
}

// NewDecorator creates a query decorator.
//
// Both hooks are optional and independent of each other.
// Panics if delegate is nil, including a typed nil pointer or function.
func NewDecorator[R, C any](
	delegate Query[R, C],
	preProcessing unit.Optional[unit.Action],
	postProcessing unit.Optional[unit.Consumer[R]],
) *Decorator[R, C] {
	if isNil(delegate) {
		panic(fmt.Sprintf("%T : delegate must not be nil", (*Decorator[R, C])(nil)))
	}

	return &Decorator[R, C]{
		delegate:       delegate,
		preProcessing:  preProcessing,
		postProcessing: postProcessing,
	}
}

// Decorate returns a WrapFunc that wraps a query with the given hooks.
func Decorate[R, C any](
	preProcessing unit.Optional[unit.Action],
	postProcessing unit.Optional[unit.Consumer[R]],
) WrapFunc[R, C] {
	return func(next Query[R, C]) Query[R, C] {
		return NewDecorator(next, preProcessing, postProcessing)
	}
}

// PreProcessing marks a as a present pre-processing hook.
func PreProcessing(a unit.Action) unit.Optional[unit.Action] {
	return unit.Some(a)
}

// NoPreProcessing returns an absent pre-processing hook.
func NoPreProcessing() unit.Optional[unit.Action] {
	return unit.None[unit.Action]()
}

// PostProcessing marks c as a present post-processing hook.
func PostProcessing[R any](c unit.Consumer[R]) unit.Optional[unit.Consumer[R]] {
	return unit.Some(c)
}

// NoPostProcessing returns an absent post-processing hook.
func NoPostProcessing[R any]() unit.Optional[unit.Consumer[R]] {
	return unit.None[unit.Consumer[R]]()
}

// Execute runs pre-processing, the delegate and post-processing in that order.
//
// Errors from any step are returned as is, without wrapping. When post-processing fails
// the delegate result is not returned, so the caller never observes a successful call.
func (d *Decorator[R, C]) Execute(ctx context.Context, c C) (R, error) {
	var zero R

	if pre, ok := d.preProcessing.Get(); ok {
		if err := pre(ctx); err != nil {
			return zero, err
		}
	}

	result, err := d.delegate.Execute(ctx, c)
	if err != nil {
		return zero, err
	}

	if post, ok := d.postProcessing.Get(); ok {
		if err := post(ctx, result); err != nil {
			return zero, err
		}
	}

	return result, nil
}

func isNil(q any) bool {
	if q == nil {
		return true
	}
	rv := reflect.ValueOf(q)
	switch rv.Kind() { //nolint:exhaustive // only nillable kinds matter
	case reflect.Func, reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
