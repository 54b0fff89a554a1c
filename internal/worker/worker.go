package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"delayed-task-queue/internal/clock"
	"delayed-task-queue/internal/store"
	"delayed-task-queue/internal/types"
	"delayed-task-queue/pkg/logger"
)

// Queue is the part of the task store a worker needs.
type Queue interface {
	ClaimNext(ctx context.Context, now time.Time) (*types.Task, error)
	Complete(ctx context.Context, id uuid.UUID) error
}

// Runner executes a claimed task.
type Runner interface {
	Execute(ctx context.Context, task types.Task) error
}

type Options struct {
	MaxConcurrentTasks int
	PollInterval       time.Duration
	Clock              clock.Clock
}

type Worker struct {
	ID string

	queue        Queue
	runner       Runner
	clock        clock.Clock
	pollInterval time.Duration
	capacity     int64
	slots        *semaphore.Weighted

	inFlight sync.WaitGroup

	claimed        atomic.Int64
	succeeded      atomic.Int64
	failed         atomic.Int64
	completeErrors atomic.Int64
}

func NewWorker(id string, q Queue, r Runner, opts Options) *Worker {
	if opts.MaxConcurrentTasks <= 0 {
		opts.MaxConcurrentTasks = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}

	return &Worker{
		ID:           id,
		queue:        q,
		runner:       r,
		clock:        opts.Clock,
		pollInterval: opts.PollInterval,
		capacity:     int64(opts.MaxConcurrentTasks),
		slots:        semaphore.NewWeighted(int64(opts.MaxConcurrentTasks)),
	}
}

// Start polls the queue until ctx is done or a claim fails. A slot is
// taken before each claim, so the worker never holds a claimed task it
// cannot run. On return every dispatched task has finished. In-flight
// tasks are not cancelled by ctx.
func (w *Worker) Start(ctx context.Context) error {
	logger.Info("Worker %s started (max_concurrent=%d, poll=%s)", w.ID, w.capacity, w.pollInterval)
	defer w.inFlight.Wait()

	for {
		if err := w.slots.Acquire(ctx, 1); err != nil {
			w.stopped()
			return nil
		}

		task, err := w.queue.ClaimNext(ctx, w.clock.Now())
		if err != nil {
			w.slots.Release(1)
			if ctx.Err() != nil {
				w.stopped()
				return nil
			}
			logger.Error("Worker %s failed to claim a task: %v", w.ID, err)
			return fmt.Errorf("claim next task: %w", err)
		}

		if task == nil {
			w.slots.Release(1)
			select {
			case <-ctx.Done():
				w.stopped()
				return nil
			case <-time.After(w.pollInterval):
			}
			continue
		}

		w.claimed.Add(1)
		w.dispatch(context.WithoutCancel(ctx), *task)
	}
}

func (w *Worker) dispatch(ctx context.Context, task types.Task) {
	w.inFlight.Add(1)
	go func() {
		defer w.inFlight.Done()
		defer w.slots.Release(1)
		w.execute(ctx, task)
	}()
}

// execute runs the task and then completes it whatever the outcome: a
// Completed task is one that no longer needs scheduling.
func (w *Worker) execute(ctx context.Context, task types.Task) {
	logger.Debug("Worker %s executing task %s (kind=%s)", w.ID, task.ID, task.Kind)

	if err := w.runner.Execute(ctx, task); err != nil {
		w.failed.Add(1)
		logger.Error("Worker %s: task %s (kind=%s) failed: %v", w.ID, task.ID, task.Kind, err)
	} else {
		w.succeeded.Add(1)
	}

	if err := w.queue.Complete(ctx, task.ID); err != nil {
		w.completeErrors.Add(1)
		if errors.Is(err, store.ErrNotInExpectedState) {
			logger.Error("Worker %s: INTEGRITY VIOLATION completing task %s: %v", w.ID, task.ID, err)
			return
		}
		logger.Error("Worker %s failed to complete task %s: %v", w.ID, task.ID, err)
		return
	}
	logger.Debug("Worker %s completed task %s", w.ID, task.ID)
}

func (w *Worker) stopped() {
	logger.Info("Worker %s stopping, waiting for in-flight tasks", w.ID)
}

type Stats struct {
	Claimed        int64
	Succeeded      int64
	Failed         int64
	CompleteErrors int64
}

func (w *Worker) Stats() Stats {
	return Stats{
		Claimed:        w.claimed.Load(),
		Succeeded:      w.succeeded.Load(),
		Failed:         w.failed.Load(),
		CompleteErrors: w.completeErrors.Load(),
	}
}
