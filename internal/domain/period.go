package domain

import "time"

// DayOf truncates a timestamp to day granularity in UTC. All scheduling
// decisions in the engine operate on truncated dates.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextOccurrence returns the occurrence date that follows base by intervalDays
// whole days, using calendar arithmetic so month and year boundaries roll over
// correctly (e.g. Dec 28 + 5 days = Jan 2 of the next year).
// Returns ErrInvalidInterval if intervalDays is not positive.
func NextOccurrence(base time.Time, intervalDays int32) (time.Time, error) {
	if intervalDays <= 0 {
		return time.Time{}, ErrInvalidInterval
	}
	return DayOf(base).AddDate(0, 0, int(intervalDays)), nil
}

// DaysUntil returns the signed number of whole days from one date to another.
// Negative when target is before from.
func DaysUntil(from, target time.Time) int {
	return int(DayOf(target).Sub(DayOf(from)).Hours() / 24)
}
