package services

import (
	"time"
)

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	location *time.Location
}

func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return &SystemClock{location: loc}
}

func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.location)
}

// NextBusinessDay pushes a Saturday or Sunday forward to the following
// Monday. Weekdays are returned unchanged.
func NextBusinessDay(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, 2)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	default:
		return t
	}
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
