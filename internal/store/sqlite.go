package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"delayed-task-queue/internal/db"
	"delayed-task-queue/internal/types"
)

const taskColumns = `id, kind, process_at, status`

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open connects to the database at url, creating the schema if needed.
func Open(ctx context.Context, url string, maxConns int) (*SQLiteStore, error) {
	conn, err := db.Init(ctx, url, maxConns)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return NewSQLiteStore(conn), nil
}

func NewSQLiteStore(conn *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: conn}
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Insert(ctx context.Context, t *types.Task) error {
	if t.Status != types.StatusPending {
		return fmt.Errorf("insert task %s with status %s: %w", t.ID, t.Status, ErrNotInExpectedState)
	}
	if err := types.CheckProcessAt(t.ProcessAt); err != nil {
		return fmt.Errorf("insert task %s: %w", t.ID, err)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO tasks (id, kind, process_at, status)
VALUES (?, ?, ?, ?)`,
		t.ID.String(), string(t.Kind), t.ProcessAt.UnixNano(), string(t.Status))
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique) {
			return fmt.Errorf("insert task %s: %w", t.ID, ErrDuplicateID)
		}
		return classify("insert task", err)
	}
	return nil
}

// ClaimNext selects and updates in one statement. A separate SELECT then
// UPDATE would let two callers pick the same row before either writes.
func (s *SQLiteStore) ClaimNext(ctx context.Context, now time.Time) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx, `
UPDATE tasks
SET status = ?
WHERE status = ?
  AND id = (
    SELECT id FROM tasks
    WHERE status = ? AND process_at <= ?
    ORDER BY process_at, rowid
    LIMIT 1
  )
RETURNING `+taskColumns,
		string(types.StatusInProgress),
		string(types.StatusPending),
		string(types.StatusPending), now.UnixNano(),
	)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("claim next task", err)
	}
	return t, nil
}

func (s *SQLiteStore) Complete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE tasks SET status = ?
WHERE id = ? AND status = ?`,
		string(types.StatusCompleted), id.String(), string(types.StatusInProgress))
	if err != nil {
		return classify("complete task", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return classify("complete task", err)
	}
	if n == 0 {
		return fmt.Errorf("complete task %s: not %s: %w", id, types.StatusInProgress, ErrNotInExpectedState)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id uuid.UUID) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+taskColumns+`
FROM tasks WHERE id = ?`, id.String())

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, classify("get task", err)
	}
	return t, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]types.Task, error) {
	return s.query(ctx, `
SELECT `+taskColumns+`
FROM tasks
ORDER BY process_at, rowid`)
}

func (s *SQLiteStore) ListFiltered(ctx context.Context, f types.Filter) ([]types.Task, error) {
	switch f.Field {
	case types.FilterStatus:
		return s.query(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE status = ?
ORDER BY process_at, rowid`, string(f.Status))
	case types.FilterKind:
		return s.query(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE kind = ?
ORDER BY process_at, rowid`, string(f.Kind))
	}
	return nil, fmt.Errorf("%w: unknown field %d", types.ErrInvalidFilter, f.Field)
}

func (s *SQLiteStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String()); err != nil {
		return classify("delete task", err)
	}
	return nil
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[types.TaskStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, classify("count tasks", err)
	}
	defer rows.Close()

	out := make(map[types.TaskStatus]int, len(types.Statuses))
	for _, st := range types.Statuses {
		out[st] = 0
	}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, classify("count tasks", err)
		}
		out[types.TaskStatus(st)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, classify("count tasks", err)
	}
	return out, nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]types.Task, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify("list tasks", err)
	}
	defer rows.Close()

	out := make([]types.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, classify("list tasks", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list tasks", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*types.Task, error) {
	var (
		id, kind, status string
		processAt        int64
	)
	if err := row.Scan(&id, &kind, &processAt, &status); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt task id %q: %w", id, err)
	}
	k, err := types.ParseKind(kind)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}
	st, err := types.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}

	return &types.Task{
		ID:        parsedID,
		Kind:      k,
		ProcessAt: time.Unix(0, processAt).UTC(),
		Status:    st,
	}, nil
}

// classify wraps driver failures as ErrStoreUnavailable. Context errors
// pass through so callers can tell shutdown from outage.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func isConstraint(err error, codes ...sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	for _, c := range codes {
		if se.ExtendedCode == c {
			return true
		}
	}
	return false
}
