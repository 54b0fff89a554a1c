package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"delayed-task-queue/internal/config"
	"delayed-task-queue/internal/store"
	"delayed-task-queue/internal/types"
)

func runCmd(t *testing.T, cfg config.Config, args ...string) (string, error) {
	t.Helper()
	out, _, err := runApp(t, newApp(cfg), args...)
	return out, err
}

func runApp(t *testing.T, a *app, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd(a)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := execute(a, root)
	return out.String(), errOut.String(), err
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.DatabaseURL = filepath.Join(t.TempDir(), "tasks.db")
	return cfg
}

func TestEnqueueListGetDelete(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCmd(t, cfg, "enqueue", "Foo", "--at", "2022-01-02T13:14:15Z", "--json")
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	var task types.Task
	if err := json.Unmarshal([]byte(out), &task); err != nil {
		t.Fatalf("bad enqueue output %q: %v", out, err)
	}
	if task.Kind != types.KindFoo || task.Status != types.StatusPending {
		t.Errorf("unexpected task %+v", task)
	}
	if got := task.ProcessAt.Format("15:04:05"); got != "13:14:18" {
		t.Errorf("process_at = %s, want execute_at + 3s", got)
	}

	out, err = runCmd(t, cfg, "list")
	if err != nil || !strings.Contains(out, task.ID.String()) {
		t.Errorf("list = %q, %v; want task %s", out, err, task.ID)
	}

	out, err = runCmd(t, cfg, "list", "--filter", "status:Completed")
	if err != nil || out != "" {
		t.Errorf("filtered list = %q, %v; want empty", out, err)
	}

	out, err = runCmd(t, cfg, "get", task.ID.String())
	if err != nil || !strings.Contains(out, `"status": "Pending"`) {
		t.Errorf("get = %q, %v", out, err)
	}

	if _, err := runCmd(t, cfg, "delete", task.ID.String()); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := runCmd(t, cfg, "get", task.ID.String()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete returned %v, want ErrNotFound", err)
	}
}

func TestStatusCounts(t *testing.T) {
	cfg := testConfig(t)
	for _, kind := range []string{"Bar", "Baz", "Baz"} {
		if _, err := runCmd(t, cfg, "enqueue", kind); err != nil {
			t.Fatalf("enqueue %s failed: %v", kind, err)
		}
	}

	out, err := runCmd(t, cfg, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if want := "pending=3 in_progress=0 completed=0 total=3\n"; out != want {
		t.Errorf("status = %q, want %q", out, want)
	}
}

func TestRejectsBadArguments(t *testing.T) {
	cfg := testConfig(t)

	if _, err := runCmd(t, cfg, "enqueue", "Qux"); !errors.Is(err, types.ErrInvalidKind) {
		t.Errorf("enqueue Qux returned %v, want ErrInvalidKind", err)
	}
	if _, err := runCmd(t, cfg, "enqueue", "Foo", "--at", "tomorrow"); err == nil {
		t.Error("expected error for malformed --at")
	}
	if _, err := runCmd(t, cfg, "list", "--filter", "owner:me"); !errors.Is(err, types.ErrInvalidFilter) {
		t.Errorf("list with bad filter returned %v, want ErrInvalidFilter", err)
	}
	if _, err := runCmd(t, cfg, "get", "not-a-uuid"); err == nil {
		t.Error("expected error for malformed id")
	}
}

func TestEnqueueRejectsUnrepresentableTime(t *testing.T) {
	cfg := testConfig(t)

	for _, at := range []string{"2300-01-01T00:00:00Z", "1500-01-01T00:00:00Z", "0001-01-01T00:00:00Z"} {
		if _, err := runCmd(t, cfg, "enqueue", "Bar", "--at", at); !errors.Is(err, types.ErrInvalidTime) {
			t.Errorf("enqueue --at %s returned %v, want ErrInvalidTime", at, err)
		}
	}

	out, err := runCmd(t, cfg, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if want := "pending=0 in_progress=0 completed=0 total=0\n"; out != want {
		t.Errorf("status = %q, want %q", out, want)
	}
}

func TestStoreClosedAfterFailedCommand(t *testing.T) {
	a := newApp(testConfig(t))

	_, _, err := runApp(t, a, "get", "00000000-0000-0000-0000-000000000001")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get returned %v, want ErrNotFound", err)
	}
	if a.st != nil || a.sched != nil {
		t.Error("store left open after a failed command")
	}

	if _, _, err := runApp(t, a, "list", "--filter", "owner:me"); !errors.Is(err, types.ErrInvalidFilter) {
		t.Fatalf("list returned %v, want ErrInvalidFilter", err)
	}
	if a.st != nil {
		t.Error("store left open after a failed list")
	}
}
