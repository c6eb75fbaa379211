package scheduler

import (
	"fmt"
	"time"
)

// MinInterval is the shortest interval a job may be scheduled at.
const MinInterval = time.Second

// IntervalSchedule runs a job every Interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every returns an IntervalSchedule, clamping interval to MinInterval.
func Every(interval time.Duration) IntervalSchedule {
	if interval < MinInterval {
		interval = MinInterval
	}
	return IntervalSchedule{Interval: interval}
}

// Next returns t plus the interval.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}
