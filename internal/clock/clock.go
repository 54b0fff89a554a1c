package clock

import "time"

// Clock lets the worker and scheduler read time through an interface so
// tests can pin it.
type Clock interface {
	Now() time.Time
}

// RealClock returns the wall clock in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}
