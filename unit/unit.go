// Package unit defines the callable-unit family used as the vocabulary for pluggable logic.
//
// The four shapes differ only in whether they take an input and whether they produce an output:
//
//	Action          func(ctx) error          // no input, no output
//	Producer[O]     func(ctx) (O, error)     // no input, output
//	Consumer[I]     func(ctx, I) error       // input, no output
//	Function[I, O]  func(ctx, I) (O, error)  // input and output
//
// The context.Context argument carries cancellation, deadlines and request metadata.
// It is never a store execution context: units stay free of any transaction handle.
//
// Failures are reported through the returned error. Units impose no restriction on
// concurrent reuse; that is a property of each concrete implementation.
package unit

import "context"

// Action is a unit with no input and no output. Typical use: pre-processing.
type Action func(ctx context.Context) error

// Producer is a unit with no input that produces a value of type O.
type Producer[O any] func(ctx context.Context) (O, error)

// Consumer is a unit that takes a value of type I and produces nothing.
// Typical use: post-processing of a query result.
type Consumer[I any] func(ctx context.Context, in I) error

// Function is a unit that takes a value of type I and produces a value of type O.
type Function[I, O any] func(ctx context.Context, in I) (O, error)

// Bind fixes the input of fn, turning it into a Producer.
func Bind[I, O any](fn Function[I, O], in I) Producer[O] {
	return func(ctx context.Context) (O, error) {
		return fn(ctx, in)
	}
}

// Discard drops the output of p, turning it into an Action.
func Discard[O any](p Producer[O]) Action {
	return func(ctx context.Context) error {
		_, err := p(ctx)
		return err
	}
}

// Ignore drops the output of fn, turning it into a Consumer.
func Ignore[I, O any](fn Function[I, O]) Consumer[I] {
	return func(ctx context.Context, in I) error {
		_, err := fn(ctx, in)
		return err
	}
}

// Sequence returns an Action that runs actions in order.
// It stops at the first failure and returns that error unchanged.
func Sequence(actions ...Action) Action {
	return func(ctx context.Context) error {
		for _, a := range actions {
			if err := a(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// ConsumeAll returns a Consumer that passes its input to every consumer in order.
// It stops at the first failure and returns that error unchanged.
func ConsumeAll[I any](consumers ...Consumer[I]) Consumer[I] {
	return func(ctx context.Context, in I) error {
		for _, c := range consumers {
			if err := c(ctx, in); err != nil {
				return err
			}
		}
		return nil
	}
}
