package httpapi

import (
	"context"
	"sync"
	"sync/atomic"
)

// Registry tracks in-flight analysis work and supports graceful draining.
// When draining is enabled new work is rejected while running work,
// including async tasks whose caller already went away, finishes.
//
// mu makes the draining check and wg.Add in Add atomic, so no Add can slip
// in between StartDraining and Wait.
type Registry struct {
	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
	count    atomic.Int64
}

// NewRegistry creates a new Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a unit of work. Returns false if the registry is draining.
func (r *Registry) Add() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draining {
		return false
	}
	r.wg.Add(1)
	r.count.Add(1)
	return true
}

// Done marks work as completed. Must be called exactly once per successful Add.
func (r *Registry) Done() {
	r.count.Add(-1)
	r.wg.Done()
}

// StartDraining makes future Add calls return false.
func (r *Registry) StartDraining() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draining = true
}

// IsDraining reports whether the registry is in draining mode.
func (r *Registry) IsDraining() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draining
}

// ActiveCount returns the number of in-flight units of work.
func (r *Registry) ActiveCount() int64 {
	return r.count.Load()
}

// Wait blocks until every Add has been matched by Done.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// WaitContext is Wait bounded by ctx.
func (r *Registry) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
