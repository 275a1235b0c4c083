// Package async runs synchronous operations on their own goroutine and hands back a future.
package async

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
)

// Future is the pending result of a call started with Run.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Run starts fn on a new goroutine. The result is exactly what fn returns;
// nothing is batched, retried or deduplicated. A panic in fn is reported to
// Sentry and surfaces as an error from Await.
func Run[T any](fn func() T) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				sentry.CurrentHub().Recover(r)
				f.err = fmt.Errorf("async task panicked: %v\n%s", r, debug.Stack())
			}
		}()
		f.value = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is ready or ctx is done.
// Abandoning a future does not stop the underlying call.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
