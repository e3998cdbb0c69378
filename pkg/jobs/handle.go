package jobs

import (
	"context"
	"sync"
)

// Status is the lifecycle state of a submitted job.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Handle observes a submitted job.
type Handle struct {
	id string

	mu     sync.RWMutex
	status Status
	err    error
	done   chan struct{}
}

func newHandle(id string) *Handle {
	return &Handle{id: id, status: StatusQueued, done: make(chan struct{})}
}

// ID returns the job identifier.
func (h *Handle) ID() string { return h.id }

// Done is closed once the job succeeded or exhausted its retries.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Status returns the current lifecycle state.
func (h *Handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Err returns the final error, nil while running or after success.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Wait blocks until the job settles or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) setStatus(status Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == StatusSucceeded || h.status == StatusFailed {
		return
	}
	h.status = status
}

func (h *Handle) settle(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == StatusSucceeded || h.status == StatusFailed {
		return
	}
	h.err = err
	if err != nil {
		h.status = StatusFailed
	} else {
		h.status = StatusSucceeded
	}
	close(h.done)
}
