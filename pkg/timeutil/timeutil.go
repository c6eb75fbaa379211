// Package timeutil pins calendar arithmetic to the campus timezone (IST,
// UTC+5:30). Grievance dates, assignment due dates and the dashboard's
// seven-day activity window are all campus-local days.
package timeutil

import (
	"time"
)

// CampusTZ is India Standard Time. India observes no DST.
var CampusTZ = time.FixedZone("Asia/Kolkata", 5*60*60+30*60)

// Common date formats.
const (
	// FormatDate is the wire format for calendar days (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is used in human-facing alert text.
	FormatDateTime = "2006-01-02 15:04"
)

// ToCampus converts a time to the campus timezone.
func ToCampus(t time.Time) time.Time {
	return t.In(CampusTZ)
}

// StartOfDay returns campus-local midnight of t's day.
func StartOfDay(t time.Time) time.Time {
	c := ToCampus(t)
	return time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, CampusTZ)
}

// LastNDays returns the starts of the n campus-local days ending with the
// day containing now, oldest first.
func LastNDays(now time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	today := StartOfDay(now)
	days := make([]time.Time, n)
	for i := 0; i < n; i++ {
		days[i] = today.AddDate(0, 0, i-(n-1))
	}
	return days
}

// FormatDateStr formats t as YYYY-MM-DD in the campus timezone.
func FormatDateStr(t time.Time) string {
	return ToCampus(t).Format(FormatDate)
}

// FormatDateTimeStr formats t as "YYYY-MM-DD HH:MM" in the campus timezone.
func FormatDateTimeStr(t time.Time) string {
	return ToCampus(t).Format(FormatDateTime)
}

// ParseDate parses YYYY-MM-DD as a campus-local day.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, CampusTZ)
}
