package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueStopped is returned when submitting to a stopped or unstarted queue.
var ErrQueueStopped = errors.New("queue not running")

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time

	handle *Handle
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	// OnFinish, when set, observes every job once it settles.
	OnFinish func(job Job, err error)
}

// Queue is an in-memory job dispatcher backed by goroutines. Every submitted
// job gets a Handle that settles after success or after its final retry.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	onFinish   func(Job, error)

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	handles map[string]*Handle
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		onFinish:   cfg.OnFinish,
		jobs:       make(chan Job, cfg.BufferSize),
		handles:    make(map[string]*Handle),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.workers)
}

// Stop cancels workers and waits for them to exit. Jobs still pending are
// settled with the cancellation error.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.started = false
	q.mu.Unlock()
	q.wg.Wait()

	q.mu.Lock()
	pending := make([]*Handle, 0, len(q.handles))
	for _, h := range q.handles {
		pending = append(pending, h)
	}
	q.handles = make(map[string]*Handle)
	q.mu.Unlock()
	for _, h := range pending {
		h.settle(fmt.Errorf("queue %s stopped: %w", q.name, context.Canceled))
	}
	q.logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Submit pushes a job onto the queue and returns its handle.
func (q *Queue) Submit(job Job) (*Handle, error) {
	if job.ID == "" {
		return nil, fmt.Errorf("job id required")
	}
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return nil, fmt.Errorf("queue %s: %w", q.name, ErrQueueStopped)
	}
	if existing, ok := q.handles[job.ID]; ok {
		q.mu.Unlock()
		return existing, nil
	}
	h := newHandle(job.ID)
	q.handles[job.ID] = h
	ctx := q.ctx
	q.mu.Unlock()

	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	job.handle = h

	select {
	case <-ctx.Done():
		q.forget(job.ID)
		h.settle(ctx.Err())
		return nil, fmt.Errorf("queue %s: %w", q.name, ErrQueueStopped)
	case q.jobs <- job:
		return h, nil
	}
}

// Lookup returns the handle of a job that has not settled yet.
func (q *Queue) Lookup(id string) (*Handle, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	h, ok := q.handles[id]
	return h, ok
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			job.handle.setStatus(StatusRunning)
			err := q.handler(q.ctx, job)
			if err == nil {
				q.finish(job, nil)
				continue
			}
			q.handleFailure(job, err)
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Sugar().Errorw("job exceeded retries", "queue", q.name, "job_id", job.ID, "type", job.Type, "error", err)
		q.finish(job, err)
		return
	}
	q.logger.Sugar().Warnw("job failed, retrying", "queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", err)
	job.handle.setStatus(StatusQueued)

	go func(j Job) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
		}
		select {
		case <-q.ctx.Done():
		case q.jobs <- j:
		}
	}(job)
}

func (q *Queue) finish(job Job, err error) {
	q.forget(job.ID)
	if q.onFinish != nil {
		q.onFinish(job, err)
	}
	job.handle.settle(err)
}

func (q *Queue) forget(id string) {
	q.mu.Lock()
	delete(q.handles, id)
	q.mu.Unlock()
}
