package service

import (
	"fmt"
	"time"
)

// LocalClock resolves instants in an organization's local time. Organizations
// carry a fixed UTC offset in minutes rather than an IANA zone name, so the
// zone never observes DST. The now source is injectable for tests.
type LocalClock struct {
	loc *time.Location
	now func() time.Time
}

// NewLocalClock builds a clock for the given UTC offset. A nil now source
// defaults to time.Now.
func NewLocalClock(utcOffsetMinutes int, now func() time.Time) *LocalClock {
	if now == nil {
		now = time.Now
	}
	return &LocalClock{
		loc: time.FixedZone(zoneName(utcOffsetMinutes), utcOffsetMinutes*60),
		now: now,
	}
}

func zoneName(offsetMinutes int) string {
	sign := "+"
	m := offsetMinutes
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, m/60, m%60)
}

// Now returns the current instant expressed in the organization's zone.
func (c *LocalClock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the organization's current calendar date as a date-only
// marker (midnight UTC), matching how DATE columns scan through lib/pq.
func (c *LocalClock) Today() time.Time {
	y, m, d := c.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// At combines a date marker with an HH:mm local time-of-day into a concrete
// instant in the organization's zone.
func (c *LocalClock) At(date time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time of day %q: %w", clock, err)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, parsed.Hour(), parsed.Minute(), 0, 0, c.loc), nil
}

// DayWindow returns the UTC-comparable instants bounding the local calendar
// day of the given date marker: [local midnight, next local midnight).
func (c *LocalClock) DayWindow(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, c.loc)
	return start, start.AddDate(0, 0, 1)
}

// Location exposes the organization's zone for message formatting.
func (c *LocalClock) Location() *time.Location {
	return c.loc
}

// SplitMinutes breaks a duration into whole minutes and residual seconds.
// Persisted lateness keeps only the minutes; messages may use both.
func SplitMinutes(d time.Duration) (int, int) {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	seconds := int(d/time.Second) % 60
	return minutes, seconds
}
