package queue

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Handler processes one job payload. A returned error moves the job to the
// failed area.
type Handler interface {
	Handle(ctx context.Context, payload []byte) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}

// Worker polls a Queue and invokes the registered handler for each job.
// One Worker runs one job at a time; run several Workers against the same
// Queue for parallelism.
type Worker struct {
	mu       sync.RWMutex
	queue    *Queue
	handlers map[string]Handler
	interval time.Duration
	logger   *zap.Logger
}

// NewWorker creates a worker over q, polling at the given interval when
// the queue runs empty. A zero interval defaults to one second.
func NewWorker(q *Queue, interval time.Duration, logger *zap.Logger) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:    q,
		handlers: make(map[string]Handler),
		interval: interval,
		logger:   logger,
	}
}

// Register binds a handler to a job name.
func (w *Worker) Register(name string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[name] = h
}

// RegisterFunc binds a plain function to a job name.
func (w *Worker) RegisterFunc(name string, fn func(ctx context.Context, payload []byte) error) {
	w.Register(name, HandlerFunc(fn))
}

// Run drains the queue until ctx is cancelled, sleeping for the poll
// interval whenever the queue is empty.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		worked, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("queue poll failed", zap.Error(err))
		}
		if worked {
			// Keep draining while there is work.
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce processes at most one job. It reports whether a job was taken
// off the queue; handler failures are recorded on the job, not returned.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.queue.Dequeue()
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	w.mu.RLock()
	handler, ok := w.handlers[job.Name]
	w.mu.RUnlock()

	if !ok {
		w.logger.Warn("no handler for job",
			zap.String("job", job.Name), zap.String("id", job.ID))
		if err := w.queue.Fail(job, errors.Errorf("no handler registered for %q", job.Name)); err != nil {
			return true, err
		}
		return true, nil
	}

	if err := w.run(ctx, handler, job); err != nil {
		w.logger.Warn("job failed",
			zap.String("job", job.Name), zap.String("id", job.ID), zap.Error(err))
		if failErr := w.queue.Fail(job, err); failErr != nil {
			return true, failErr
		}
		return true, nil
	}

	w.logger.Debug("job done", zap.String("job", job.Name), zap.String("id", job.ID))
	return true, nil
}

// run invokes the handler, converting a panic into a failure so one bad
// job cannot take the worker down.
func (w *Worker) run(ctx context.Context, handler Handler, job *Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("panic in job %q: %v", job.Name, rec)
		}
	}()
	return handler.Handle(ctx, job.Payload)
}
