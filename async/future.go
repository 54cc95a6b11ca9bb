/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package async

import (
	"context"
	"sync"
)

// Future is the eventual result of an asynchronous operation.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future that is already resolved.
func Completed[T any](value T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(value, err)
	return f
}

func (f *Future[T]) resolve(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx ends. Giving up on a
// future does not cancel the operation behind it.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Go runs fn on pool and returns its future. When the task cannot be queued
// the future resolves with the submission error.
func Go[T any](ctx context.Context, pool *Pool, fn func() (T, error)) *Future[T] {
	f, err := Submit(ctx, pool, fn)
	if err != nil {
		var zero T
		f.resolve(zero, err)
	}
	return f
}

// Submit queues fn on pool. A non-nil error means fn will never run and the
// returned future stays unresolved.
func Submit[T any](ctx context.Context, pool *Pool, fn func() (T, error)) (*Future[T], error) {
	return enqueue(fn, func(task Task) error { return pool.Submit(ctx, task) })
}

// TrySubmit is Submit without waiting for queue room: a full queue fails with
// ErrQueueFull at once.
func TrySubmit[T any](pool *Pool, fn func() (T, error)) (*Future[T], error) {
	return enqueue(fn, pool.TrySubmit)
}

func enqueue[T any](fn func() (T, error), queue func(Task) error) (*Future[T], error) {
	f := newFuture[T]()
	err := queue(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				err = &PanicError{Value: r}
				f.resolve(zero, err)
			}
		}()
		value, err := fn()
		f.resolve(value, err)
		return err
	})
	return f, err
}

// Then chains next onto f without occupying a pool worker while waiting.
func Then[T, U any](f *Future[T], next func(T, error) *Future[U]) *Future[U] {
	out := newFuture[U]()
	go func() {
		<-f.done
		inner := next(f.value, f.err)
		<-inner.done
		out.resolve(inner.value, inner.err)
	}()
	return out
}

// Spawn runs fn on its own goroutine. Use it for work that waits on pool
// tasks, which must not occupy a worker.
func Spawn[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.resolve(zero, &PanicError{Value: r})
			}
		}()
		value, err := fn()
		f.resolve(value, err)
	}()
	return f
}
