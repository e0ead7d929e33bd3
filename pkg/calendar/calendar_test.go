package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	day, err := ParseDay("2024-05-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC), day)

	_, err = ParseDay("03/05/2024")
	require.Error(t, err)

	_, err = ParseDay("")
	require.Error(t, err)
}

func TestWeekBounds(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		start string
	}{
		{"monday stays", "2024-04-01", "2024-04-01"},
		{"wednesday", "2024-04-03", "2024-04-01"},
		{"sunday belongs to previous monday", "2024-04-07", "2024-04-01"},
		{"saturday", "2024-04-06", "2024-04-01"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := ParseDay(tc.in)
			require.NoError(t, err)
			start, end := WeekBounds(in)
			assert.Equal(t, tc.start, start.Format(DayFormat))
			assert.Equal(t, time.Monday, start.Weekday())
			assert.Equal(t, time.Sunday, end.Weekday())
			assert.Equal(t, start.AddDate(0, 0, 6).Add(24*time.Hour-time.Second), end)
		})
	}
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(2024, time.February)
	assert.Equal(t, "2024-02-01", start.Format(DayFormat))
	assert.Equal(t, "2024-02-29", end.Format(DayFormat))

	start, end = MonthBounds(2023, time.December)
	assert.Equal(t, "2023-12-01", start.Format(DayFormat))
	assert.Equal(t, "2023-12-31", end.Format(DayFormat))
}

func TestDaysUntil(t *testing.T) {
	from := time.Date(2024, time.May, 1, 15, 4, 5, 0, time.UTC)
	to := time.Date(2024, time.May, 8, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 7, DaysUntil(from, to))
	assert.Equal(t, -7, DaysUntil(to, from))
	assert.Equal(t, 0, DaysUntil(from, from))
}

func TestIsWeekend(t *testing.T) {
	assert.True(t, IsWeekend(time.Date(2024, time.April, 6, 0, 0, 0, 0, time.UTC)))
	assert.True(t, IsWeekend(time.Date(2024, time.April, 7, 0, 0, 0, 0, time.UTC)))
	assert.False(t, IsWeekend(time.Date(2024, time.April, 8, 0, 0, 0, 0, time.UTC)))
}
