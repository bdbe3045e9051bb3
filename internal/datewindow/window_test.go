package datewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	// Friday March 15 2024, mid-afternoon.
	now := time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		phrase string
		start  time.Time
		end    time.Time
	}{
		{"today", date(2024, time.March, 15), date(2024, time.March, 16)},
		{"yesterday", date(2024, time.March, 14), date(2024, time.March, 15)},
		{"this week", date(2024, time.March, 11), date(2024, time.March, 18)},
		{"last week", date(2024, time.March, 4), date(2024, time.March, 11)},
		{"this month", date(2024, time.March, 1), date(2024, time.April, 1)},
		{"last month", date(2024, time.February, 1), date(2024, time.March, 1)},
		{"this year", date(2024, time.January, 1), date(2025, time.January, 1)},
		{"last year", date(2023, time.January, 1), date(2024, time.January, 1)},
		{"1 day ago", date(2024, time.March, 14), date(2024, time.March, 15)},
		{"a day ago", date(2024, time.March, 14), date(2024, time.March, 15)},
		{"2 weeks ago", date(2024, time.February, 26), date(2024, time.March, 4)},
		{"2 months ago", date(2024, time.January, 1), date(2024, time.February, 1)},
		{"a month ago", date(2024, time.February, 1), date(2024, time.March, 1)},
		{"1 year ago", date(2023, time.January, 1), date(2024, time.January, 1)},
	}
	for _, tc := range tests {
		t.Run(tc.phrase, func(t *testing.T) {
			got, err := Resolve(tc.phrase, now)
			require.NoError(t, err)
			assert.Equal(t, tc.start, got.Start)
			assert.Equal(t, tc.end, got.End)
			assert.True(t, got.End.After(got.Start))
		})
	}
}

func TestResolveOlderThan(t *testing.T) {
	now := time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)

	got, err := Resolve("older than 6 months", now)
	require.NoError(t, err)
	assert.True(t, got.Unbounded())
	assert.Equal(t, time.Date(2023, time.September, 15, 14, 30, 0, 0, time.UTC), got.End)

	got, err = Resolve("older than a year", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.March, 15, 14, 30, 0, 0, time.UTC), got.End)
}

func TestResolveWeekRealignsToMonday(t *testing.T) {
	// Wednesday: "1 week ago" must cover the previous Monday-aligned week.
	now := time.Date(2024, time.March, 13, 9, 0, 0, 0, time.UTC)
	got, err := Resolve("1 week ago", now)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 4), got.Start)
	assert.Equal(t, date(2024, time.March, 11), got.End)
	assert.Equal(t, time.Monday, got.Start.Weekday())
}

func TestResolveMonthBoundary(t *testing.T) {
	// Jan 31: month realignment must not bleed into neighboring months.
	now := time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC)
	got, err := Resolve("1 month ago", now)
	require.NoError(t, err)
	assert.Equal(t, date(2023, time.December, 1), got.Start)
	assert.Equal(t, date(2024, time.January, 1), got.End)
}

func TestResolveNotRecognized(t *testing.T) {
	now := time.Now()
	for _, phrase := range []string{"", "next week", "0 days ago", "fortnight ago", "soonish"} {
		_, err := Resolve(phrase, now)
		assert.ErrorIs(t, err, ErrNotRecognized, "phrase %q", phrase)
	}
}
