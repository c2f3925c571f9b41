package web2rpc

import (
	"context"
	"sync"
)

// Future is the pending result of a call started with [Send].
//
// A Future resolves exactly once, with either a value or an error, and is safe for
// concurrent use. Resolved values are never mutated.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	val    T
	err    error
	once   sync.Once
}

func newFuture[T any](cancel context.CancelFunc) *Future[T] {
	return &Future[T]{done: make(chan struct{}), cancel: cancel}
}

// Failed returns a [*Future] that is already resolved with err.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T](nil)
	f.resolve(*new(T), err)

	return f
}

// resolve sets the result. Only the first call has any effect.
func (f *Future[T]) resolve(v T, err error) bool {
	resolved := false

	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)

		resolved = true
	})

	return resolved
}

// Done returns a channel that is closed once the future has resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the future resolves and returns its result.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.val, f.err
}

// Await is [Future.Get] bounded by ctx. If ctx ends first it returns the context's
// error and the call keeps running; use [Future.Cancel] to abandon it.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel abandons the call. If the response has not been received yet the future
// resolves with [context.Canceled]. Decoding that has already started runs to completion.
func (f *Future[T]) Cancel() {
	if f.cancel != nil {
		f.cancel()
	}
}

// Then returns a future resolved with fn applied to the result of f.
// fn only runs when f succeeds; cancelling the returned future cancels f.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	next := newFuture[U](f.Cancel)

	go func() {
		v, err := f.Get()
		if err != nil {
			next.resolve(*new(U), err)
			return
		}

		next.resolve(fn(v))
	}()

	return next
}
