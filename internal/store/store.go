package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"delayed-task-queue/internal/types"
)

var (
	ErrNotFound           = errors.New("task not found")
	ErrDuplicateID        = errors.New("task id already exists")
	ErrNotInExpectedState = errors.New("task is not in the expected state")
	ErrStoreUnavailable   = errors.New("task store unavailable")
)

// Store is the only component allowed to change a task's status.
type Store interface {
	// Insert persists a new Pending task.
	Insert(ctx context.Context, task *types.Task) error

	// ClaimNext atomically moves the Pending task with the smallest
	// process_at <= now to InProgress and returns it. It returns nil, nil
	// when no task is eligible. Concurrent callers never receive the same
	// task.
	ClaimNext(ctx context.Context, now time.Time) (*types.Task, error)

	// Complete moves an InProgress task to Completed and fails with
	// ErrNotInExpectedState otherwise.
	Complete(ctx context.Context, id uuid.UUID) error

	Get(ctx context.Context, id uuid.UUID) (*types.Task, error)

	// List and ListFiltered order tasks by process_at ascending.
	List(ctx context.Context) ([]types.Task, error)
	ListFiltered(ctx context.Context, filter types.Filter) ([]types.Task, error)

	// Delete removes a task in any status. Unknown ids are not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	CountByStatus(ctx context.Context) (map[types.TaskStatus]int, error)

	Close() error
}
