package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"delayed-task-queue/internal/types"
)

var t0 = time.Date(2022, 1, 2, 13, 14, 15, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "tasks.db"), 5)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustInsert(t *testing.T, s *SQLiteStore, task *types.Task) {
	t.Helper()
	if err := s.Insert(context.Background(), task); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
}

func mustClaim(t *testing.T, s *SQLiteStore, now time.Time) *types.Task {
	t.Helper()
	task, err := s.ClaimNext(context.Background(), now)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	return task
}

func TestHappyPathSingleTask(t *testing.T) {
	s := newTestStore(t)
	task := types.NewTask(types.KindBar, t0)
	mustInsert(t, s, task)

	next := mustClaim(t, s, time.Now())
	if next == nil || next.ID != task.ID {
		t.Fatalf("expected task %s, got %+v", task.ID, next)
	}
	if next.Status != types.StatusInProgress {
		t.Errorf("claimed task status = %s, want InProgress", next.Status)
	}
	if !next.ProcessAt.Equal(task.ProcessAt) {
		t.Errorf("process_at changed: %s vs %s", next.ProcessAt, task.ProcessAt)
	}
}

func TestClaimRespectsDelay(t *testing.T) {
	s := newTestStore(t)
	task := types.NewTask(types.KindFoo, t0)
	mustInsert(t, s, task)

	if got := mustClaim(t, s, t0); got != nil {
		t.Fatalf("Foo task must not be claimable before its delay, got %s", got.ID)
	}
	if got := mustClaim(t, s, t0.Add(2999*time.Millisecond)); got != nil {
		t.Fatalf("Foo task claimed early, got %s", got.ID)
	}

	got := mustClaim(t, s, t0.Add(3*time.Second))
	if got == nil || got.ID != task.ID {
		t.Fatalf("expected task at t0+3s, got %+v", got)
	}
}

func TestQueueReturnsEarliestTask(t *testing.T) {
	s := newTestStore(t)
	task1 := types.NewTask(types.KindFoo, t0)
	task2 := types.NewTask(types.KindBar, t0)
	mustInsert(t, s, task1)
	mustInsert(t, s, task2)

	if got := mustClaim(t, s, t0); got == nil || got.ID != task2.ID {
		t.Fatalf("expected task2 first, got %+v", got)
	}
	if got := mustClaim(t, s, t0); got != nil {
		t.Fatalf("task1 is not due yet, got %s", got.ID)
	}
	if got := mustClaim(t, s, t0.Add(3*time.Second)); got == nil || got.ID != task1.ID {
		t.Fatalf("expected task1 after its delay, got %+v", got)
	}
}

func TestQueueCanCompleteTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	task1 := types.NewTask(types.KindFoo, t0)
	task2 := types.NewTask(types.KindBar, t0)
	mustInsert(t, s, task1)
	mustInsert(t, s, task2)

	if got := mustClaim(t, s, time.Now()); got == nil || got.ID != task2.ID {
		t.Fatalf("expected task2, got %+v", got)
	}
	if err := s.Complete(ctx, task2.ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if got := mustClaim(t, s, time.Now()); got == nil || got.ID != task1.ID {
		t.Fatalf("expected task1 after task2 completed, got %+v", got)
	}
	if got := mustClaim(t, s, time.Now()); got != nil {
		t.Fatalf("completed task must not be claimed again, got %s", got.ID)
	}

	stored, err := s.Get(ctx, task2.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != types.StatusCompleted {
		t.Errorf("task2 status = %s, want Completed", stored.Status)
	}
}

func TestClaimNeverReturnsFutureTasks(t *testing.T) {
	s := newTestStore(t)
	offsets := []time.Duration{5 * time.Second, -time.Second, 0, 2 * time.Second, -3 * time.Second, time.Minute}
	for _, off := range offsets {
		task := types.NewTask(types.KindBaz, t0.Add(off))
		mustInsert(t, s, task)
	}

	var last time.Time
	claimed := 0
	for {
		task := mustClaim(t, s, t0.Add(2*time.Second))
		if task == nil {
			break
		}
		if task.ProcessAt.After(t0.Add(2 * time.Second)) {
			t.Fatalf("claimed task due at %s after now", task.ProcessAt)
		}
		if task.ProcessAt.Before(last) {
			t.Fatalf("claims out of order: %s after %s", task.ProcessAt, last)
		}
		last = task.ProcessAt
		claimed++
	}
	if claimed != 4 {
		t.Errorf("expected 4 eligible tasks, claimed %d", claimed)
	}
}

func TestConcurrentClaimsAreExclusive(t *testing.T) {
	const (
		tasks   = 60
		callers = 12
	)
	s := newTestStore(t)
	for i := 0; i < tasks; i++ {
		mustInsert(t, s, types.NewTask(types.KindBar, t0.Add(time.Duration(i)*time.Millisecond)))
	}

	var (
		mu      sync.Mutex
		seen    = make(map[uuid.UUID]int)
		wg      sync.WaitGroup
		start   = make(chan struct{})
		errorsC = make(chan error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for {
				task, err := s.ClaimNext(context.Background(), t0.Add(time.Hour))
				if err != nil {
					errorsC <- err
					return
				}
				if task == nil {
					return
				}
				mu.Lock()
				seen[task.ID]++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errorsC)

	for err := range errorsC {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if len(seen) != tasks {
		t.Errorf("expected %d distinct claims, got %d", tasks, len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("task %s claimed %d times", id, n)
		}
	}
}

func TestConcurrentClaimsSingleTask(t *testing.T) {
	for round := 0; round < 20; round++ {
		s := newTestStore(t)
		task := types.NewTask(types.KindBar, t0)
		mustInsert(t, s, task)

		results := make([]*types.Task, 2)
		errs := make([]error, 2)
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				results[i], errs[i] = s.ClaimNext(context.Background(), t0)
			}(i)
		}
		close(start)
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				t.Fatalf("ClaimNext failed: %v", err)
			}
		}
		got := 0
		for _, r := range results {
			if r != nil {
				if r.ID != task.ID {
					t.Fatalf("unexpected task %s", r.ID)
				}
				got++
			}
		}
		if got != 1 {
			t.Fatalf("round %d: %d callers received the only task", round, got)
		}
	}
}

func TestCompleteRequiresInProgress(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	task := types.NewTask(types.KindBar, t0)
	mustInsert(t, s, task)

	if err := s.Complete(ctx, task.ID); !errors.Is(err, ErrNotInExpectedState) {
		t.Fatalf("completing a Pending task: got %v, want ErrNotInExpectedState", err)
	}
	stored, err := s.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != types.StatusPending {
		t.Fatalf("failed Complete mutated status to %s", stored.Status)
	}

	mustClaim(t, s, t0)
	if err := s.Complete(ctx, task.ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if err := s.Complete(ctx, task.ID); !errors.Is(err, ErrNotInExpectedState) {
		t.Fatalf("completing twice: got %v, want ErrNotInExpectedState", err)
	}
	if err := s.Complete(ctx, uuid.New()); !errors.Is(err, ErrNotInExpectedState) {
		t.Fatalf("completing unknown id: got %v, want ErrNotInExpectedState", err)
	}

	stored, err = s.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != types.StatusCompleted {
		t.Errorf("status = %s, want Completed", stored.Status)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Delete(ctx, uuid.New()); err != nil {
		t.Fatalf("deleting unknown id: %v", err)
	}

	task := types.NewTask(types.KindBar, t0)
	mustInsert(t, s, task)
	mustClaim(t, s, t0)

	// InProgress tasks can be deleted too
	if err := s.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, task.ID); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: got %v, want ErrNotFound", err)
	}
}

func TestInsertRejectsDuplicatesAndNonPending(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	task := types.NewTask(types.KindFoo, t0)
	mustInsert(t, s, task)

	if err := s.Insert(ctx, task); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate insert: got %v, want ErrDuplicateID", err)
	}

	done := types.NewTask(types.KindFoo, t0)
	done.Status = types.StatusCompleted
	if err := s.Insert(ctx, done); !errors.Is(err, ErrNotInExpectedState) {
		t.Errorf("non-pending insert: got %v, want ErrNotInExpectedState", err)
	}
}

func TestGetUnknownTask(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestListOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	foo := types.NewTask(types.KindFoo, t0)                  // t0+3s
	bar := types.NewTask(types.KindBar, t0.Add(time.Second)) // t0+1s
	baz := types.NewTask(types.KindBaz, t0.Add(-time.Second))
	for _, task := range []*types.Task{foo, bar, baz} {
		mustInsert(t, s, task)
	}
	mustClaim(t, s, t0) // claims baz

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	assertIDs(t, all, baz.ID, bar.ID, foo.ID)

	pending, err := s.ListFiltered(ctx, types.StatusFilter(types.StatusPending))
	if err != nil {
		t.Fatalf("ListFiltered failed: %v", err)
	}
	assertIDs(t, pending, bar.ID, foo.ID)

	inProgress, err := s.ListFiltered(ctx, types.StatusFilter(types.StatusInProgress))
	if err != nil {
		t.Fatalf("ListFiltered failed: %v", err)
	}
	assertIDs(t, inProgress, baz.ID)

	foos, err := s.ListFiltered(ctx, types.KindFilter(types.KindFoo))
	if err != nil {
		t.Fatalf("ListFiltered failed: %v", err)
	}
	assertIDs(t, foos, foo.ID)

	completed, err := s.ListFiltered(ctx, types.StatusFilter(types.StatusCompleted))
	if err != nil {
		t.Fatalf("ListFiltered failed: %v", err)
	}
	if completed == nil || len(completed) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", completed)
	}

	if _, err := s.ListFiltered(ctx, types.Filter{}); !errors.Is(err, types.ErrInvalidFilter) {
		t.Errorf("zero filter: got %v, want ErrInvalidFilter", err)
	}
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		mustInsert(t, s, types.NewTask(types.KindBar, t0))
	}
	claimed := mustClaim(t, s, t0)
	mustClaim(t, s, t0)
	if err := s.Complete(ctx, claimed.ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	want := map[types.TaskStatus]int{
		types.StatusPending:    1,
		types.StatusInProgress: 1,
		types.StatusCompleted:  1,
	}
	for st, n := range want {
		if counts[st] != n {
			t.Errorf("%s = %d, want %d", st, counts[st], n)
		}
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "tasks.db"), 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Close()

	if _, err := s.ClaimNext(context.Background(), t0); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("ClaimNext on closed store: got %v, want ErrStoreUnavailable", err)
	}
	if err := s.Insert(context.Background(), types.NewTask(types.KindBar, t0)); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Insert on closed store: got %v, want ErrStoreUnavailable", err)
	}
}

func assertIDs(t *testing.T, tasks []types.Task, want ...uuid.UUID) {
	t.Helper()
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(want))
	}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, tasks[i].ID, id)
		}
	}
}

func TestInsertRejectsUnrepresentableProcessAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, at := range []time.Time{
		time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		task := types.NewTask(types.KindBar, at)
		if err := s.Insert(ctx, task); !errors.Is(err, types.ErrInvalidTime) {
			t.Errorf("Insert with process_at %s returned %v, want ErrInvalidTime", at, err)
		}
		if _, err := s.Get(ctx, task.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("task with process_at %s was stored: %v", at, err)
		}
	}

	if got := mustClaim(t, s, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)); got != nil {
		t.Errorf("claimed %+v from an empty queue", got)
	}

	edge := types.NewTask(types.KindBar, types.MaxProcessAt)
	mustInsert(t, s, edge)
	got, err := s.Get(ctx, edge.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.ProcessAt.Equal(types.MaxProcessAt) {
		t.Errorf("process_at round trip = %s, want %s", got.ProcessAt, types.MaxProcessAt)
	}
}
