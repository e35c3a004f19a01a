package cycle

import "time"

// WeekNumber returns the ISO-8601 week number (1..53) of t in UTC.
func WeekNumber(t time.Time) int {
	_, week := t.UTC().ISOWeek()
	return week
}

// WeekID returns the partition key for per-owner weekly counters.
// It is isoYear*100 + isoWeek, so 2026-W02 becomes 202602.
func WeekID(t time.Time) int {
	year, week := t.UTC().ISOWeek()
	return year*100 + week
}

// WeekStart returns Monday 00:00 UTC of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

// Clock abstracts time.Now for services that partition by week.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
