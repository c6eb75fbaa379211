package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, CampusTZ)
}

func TestStartOfDay_UsesCampusZone(t *testing.T) {
	// 20:00 UTC is already the next day in IST.
	utc := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)

	got := StartOfDay(utc)

	assert.Equal(t, day(2024, time.March, 11), got)
	assert.Equal(t, "2024-03-11", FormatDateStr(utc))
}

func TestLastNDays(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, CampusTZ)

	days := LastNDays(now, 7)

	require.Len(t, days, 7)
	assert.Equal(t, day(2024, time.March, 4), days[0])
	assert.Equal(t, day(2024, time.March, 10), days[6])
	assert.Equal(t, time.Monday, days[0].Weekday())
	assert.Nil(t, LastNDays(now, 0))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.December, 31), got)

	_, err = ParseDate("31.12.2024")
	assert.Error(t, err)
}
