package calendar

import (
	"time"

	appErrors "github.com/atempo-hq/workcal-api/pkg/errors"
)

// DayFormat is the wire format for day-granular dates.
const DayFormat = "2006-01-02"

// ParseDay parses a YYYY-MM-DD string into a normalized UTC day.
func ParseDay(raw string) (time.Time, error) {
	parsed, err := time.Parse(DayFormat, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	return Normalize(parsed), nil
}

// Normalize truncates a timestamp to midnight UTC.
func Normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekBounds returns the Monday and Sunday of the ISO week containing t.
// The end bound is the last instant of Sunday so inclusive BETWEEN
// queries cover the whole day.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	day := Normalize(t)
	offset := int(day.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	start := day.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 6).Add(24*time.Hour - time.Second)
	return start, end
}

// MonthBounds returns the first and last day of the given month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

// DaysUntil returns the number of whole days from `from` to `to`,
// negative when `to` is earlier.
func DaysUntil(from, to time.Time) int {
	return int(Normalize(to).Sub(Normalize(from)).Hours() / 24)
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
