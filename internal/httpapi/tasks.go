package httpapi

import (
	"context"
	"net/http"

	"github.com/intellibus/insights/internal/async"
)

// workContext keeps request values but not request cancellation. Sync and
// async handlers both run their model calls to completion on it, and the
// registry slot bounds them at shutdown.
func workContext(req *http.Request) context.Context {
	return context.WithoutCancel(req.Context())
}

// runTask runs fn on its own goroutine, detached from the request's
// cancellation, and releases the caller's registry slot when fn returns.
// The caller must already hold a slot from track.
func runTask[T any](r *Router, req *http.Request, fn func(context.Context) T) *async.Future[T] {
	ctx := workContext(req)
	return async.Run(func() T {
		defer r.registry.Done()
		return fn(ctx)
	})
}

// respond waits for f and writes its value as JSON.
func respond[T any](r *Router, w http.ResponseWriter, req *http.Request, f *async.Future[T]) {
	v, err := f.Await(req.Context())
	if err != nil {
		if req.Context().Err() != nil {
			r.logger.WithField("path", req.URL.Path).Debug("client went away before the task finished")
			return
		}
		// Panics were already reported to Sentry by async.Run.
		r.logger.WithError(err).WithField("path", req.URL.Path).Error("async task failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, v)
}
