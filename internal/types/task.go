package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidKind   = errors.New("invalid kind")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrInvalidTime   = errors.New("time out of range")
)

// process_at is persisted as unix nanoseconds, so it must fit in an int64.
var (
	MinProcessAt = time.Unix(0, math.MinInt64).UTC()
	MaxProcessAt = time.Unix(0, math.MaxInt64).UTC()
)

// CheckProcessAt reports whether t can be stored as a process_at.
func CheckProcessAt(t time.Time) error {
	if t.Before(MinProcessAt) || t.After(MaxProcessAt) {
		return fmt.Errorf("%w: %s not within [%s, %s]", ErrInvalidTime,
			t.UTC().Format(time.RFC3339), MinProcessAt.Format(time.RFC3339), MaxProcessAt.Format(time.RFC3339))
	}
	return nil
}

type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "InProgress"
	StatusCompleted  TaskStatus = "Completed"
)

var Statuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}

func ParseStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case StatusPending, StatusInProgress, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

type TaskKind string

const (
	KindFoo TaskKind = "Foo"
	KindBar TaskKind = "Bar"
	KindBaz TaskKind = "Baz"
)

var Kinds = []TaskKind{KindFoo, KindBar, KindBaz}

func ParseKind(s string) (TaskKind, error) {
	switch k := TaskKind(s); k {
	case KindFoo, KindBar, KindBaz:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// ProcessDelay is added to the submission time to get a task's process_at.
func (k TaskKind) ProcessDelay() time.Duration {
	switch k {
	case KindFoo:
		return 3 * time.Second
	default:
		return 0
	}
}

func (k *TaskKind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := ParseKind(raw)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

type Task struct {
	ID        uuid.UUID  `json:"id"`
	Kind      TaskKind   `json:"kind"`
	ProcessAt time.Time  `json:"process_at"`
	Status    TaskStatus `json:"status"`
}

// NewTask returns a pending task that becomes claimable at base plus the
// kind's delay.
func NewTask(kind TaskKind, base time.Time) *Task {
	return &Task{
		ID:        uuid.New(),
		Kind:      kind,
		ProcessAt: base.Add(kind.ProcessDelay()).UTC(),
		Status:    StatusPending,
	}
}
