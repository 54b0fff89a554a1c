package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"delayed-task-queue/internal/clock"
	"delayed-task-queue/internal/store"
	"delayed-task-queue/internal/types"
	"delayed-task-queue/pkg/logger"
)

// Scheduler is the producer side of the queue. It builds tasks and reads
// them back but never changes a task's status.
type Scheduler struct {
	store store.Store
	clock clock.Clock
}

func NewScheduler(st store.Store, clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Scheduler{
		store: st,
		clock: clk,
	}
}

// Submit queues a task of the given kind. The task becomes claimable at
// executeAt plus the kind's delay; a zero executeAt means now. The sum must
// lie within [types.MinProcessAt, types.MaxProcessAt].
func (s *Scheduler) Submit(ctx context.Context, kind types.TaskKind, executeAt time.Time) (*types.Task, error) {
	if _, err := types.ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if executeAt.IsZero() {
		executeAt = s.clock.Now()
	}

	task := types.NewTask(kind, executeAt)
	if err := types.CheckProcessAt(task.ProcessAt); err != nil {
		return nil, fmt.Errorf("execute_at %s plus %s delay: %w", executeAt.Format(time.RFC3339), kind, err)
	}
	if err := s.store.Insert(ctx, task); err != nil {
		return nil, err
	}

	logger.Info("Task submitted: %s (kind=%s, process_at=%s)", task.ID, task.Kind, task.ProcessAt.Format(time.RFC3339Nano))
	return task, nil
}

// List returns every task, or only those matching expr when it is not
// empty. expr uses the "status:<Status>" / "kind:<Kind>" form.
func (s *Scheduler) List(ctx context.Context, expr string) ([]types.Task, error) {
	if expr == "" {
		return s.store.List(ctx)
	}

	filter, err := types.ParseFilter(expr)
	if err != nil {
		return nil, err
	}
	return s.store.ListFiltered(ctx, filter)
}

func (s *Scheduler) Get(ctx context.Context, id uuid.UUID) (*types.Task, error) {
	return s.store.Get(ctx, id)
}

func (s *Scheduler) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("Task deleted: %s", id)
	return nil
}

func (s *Scheduler) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to collect stats: %w", err)
	}

	st := Stats{
		Pending:    counts[types.StatusPending],
		InProgress: counts[types.StatusInProgress],
		Completed:  counts[types.StatusCompleted],
	}
	st.Total = st.Pending + st.InProgress + st.Completed
	return st, nil
}
