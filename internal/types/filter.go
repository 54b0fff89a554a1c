package types

import (
	"fmt"
	"strings"
)

type FilterField int

const (
	FilterStatus FilterField = iota + 1
	FilterKind
)

// Filter narrows a task listing to one status or one kind.
type Filter struct {
	Field  FilterField
	Status TaskStatus
	Kind   TaskKind
}

func StatusFilter(s TaskStatus) Filter {
	return Filter{Field: FilterStatus, Status: s}
}

func KindFilter(k TaskKind) Filter {
	return Filter{Field: FilterKind, Kind: k}
}

// ParseFilter parses "status:<Status>" or "kind:<Kind>".
func ParseFilter(s string) (Filter, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Filter{}, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}

	switch parts[0] {
	case "status":
		st, err := ParseStatus(parts[1])
		if err != nil {
			return Filter{}, err
		}
		return StatusFilter(st), nil
	case "kind":
		k, err := ParseKind(parts[1])
		if err != nil {
			return Filter{}, err
		}
		return KindFilter(k), nil
	}
	return Filter{}, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
}

func (f Filter) Matches(t Task) bool {
	switch f.Field {
	case FilterStatus:
		return t.Status == f.Status
	case FilterKind:
		return t.Kind == f.Kind
	}
	return false
}

func (f Filter) String() string {
	switch f.Field {
	case FilterStatus:
		return "status:" + string(f.Status)
	case FilterKind:
		return "kind:" + string(f.Kind)
	}
	return ""
}
