// Package dashboard computes the campus overview: grievance counters,
// system health rows and the seven-day activity chart.
package dashboard

import (
	"context"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/grievance"
	"github.com/aegis-hub/aegis-portal/pkg/timeutil"
)

// ChartDays is the width of the activity chart.
const ChartDays = 7

// Stats are the headline counters.
type Stats struct {
	ActiveGrievances   int `json:"active_grievances"`
	ResolvedGrievances int `json:"resolved_grievances"`
	Students           int `json:"students"`
}

// StatsFromCounts folds per-status counts into active/resolved totals.
func StatsFromCounts(byStatus map[grievance.Status]int, students int) Stats {
	s := Stats{Students: students}
	for status, n := range byStatus {
		if status == grievance.StatusResolved {
			s.ResolvedGrievances += n
		} else {
			s.ActiveGrievances += n
		}
	}
	return s
}

// ComponentStatus is the coarse state of a monitored component.
type ComponentStatus string

const (
	ComponentOperational ComponentStatus = "Operational"
	ComponentDegraded    ComponentStatus = "Degraded"
	ComponentDown        ComponentStatus = "Down"
)

// SystemComponent is one row of the system status panel.
type SystemComponent struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Status    ComponentStatus `json:"status"`
	Health    int             `json:"health"` // 0-100
	CheckedAt time.Time       `json:"checked_at"`
}

// ActivityPoint is one day of the chart.
type ActivityPoint struct {
	Name        string `json:"name"` // weekday, e.g. "Mon"
	Date        string `json:"date"`
	Submissions int    `json:"submissions"`
	Resolved    int    `json:"resolved"`
}

// BuildActivityChart buckets grievances created in the last ChartDays campus
// days (ending today) by creation day. A grievance counts as resolved when
// its current status is Resolved, otherwise as a submission. Days are in
// chronological order and always present, even when empty.
func BuildActivityChart(items []*grievance.Grievance, now time.Time) []ActivityPoint {
	days := timeutil.LastNDays(now, ChartDays)
	points := make([]ActivityPoint, len(days))
	index := make(map[string]int, len(days))
	for i, d := range days {
		key := d.Format(timeutil.FormatDate)
		points[i] = ActivityPoint{Name: d.Weekday().String()[:3], Date: key}
		index[key] = i
	}

	for _, g := range items {
		i, ok := index[timeutil.FormatDateStr(g.CreatedAt)]
		if !ok {
			continue
		}
		if g.Status == grievance.StatusResolved {
			points[i].Resolved++
		} else {
			points[i].Submissions++
		}
	}
	return points
}

// WindowStart is the first instant included in the chart.
func WindowStart(now time.Time) time.Time {
	return timeutil.LastNDays(now, ChartDays)[0]
}

// Snapshot is the whole dashboard payload.
type Snapshot struct {
	Stats       Stats             `json:"stats"`
	Systems     []SystemComponent `json:"systems"`
	Activity    []ActivityPoint   `json:"activity"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// StatusRepository stores system status rows.
type StatusRepository interface {
	ListComponents(ctx context.Context) ([]SystemComponent, error)
	UpsertComponent(ctx context.Context, c SystemComponent) error
}

// HealthFromLatency maps a probe result to a status row. A failed probe is
// Down with zero health; slow probes degrade linearly past the budget.
func HealthFromLatency(err error, latency, budget time.Duration) (ComponentStatus, int) {
	if err != nil {
		return ComponentDown, 0
	}
	if budget <= 0 || latency <= budget {
		return ComponentOperational, 100
	}
	over := float64(latency-budget) / float64(budget)
	health := int(100 - over*50)
	if health < 10 {
		health = 10
	}
	if health >= 90 {
		return ComponentOperational, health
	}
	return ComponentDegraded, health
}

// SnapshotCache holds the latest computed snapshot.
type SnapshotCache interface {
	// GetSnapshot returns nil, nil on a miss.
	GetSnapshot(ctx context.Context) (*Snapshot, error)
	SetSnapshot(ctx context.Context, s *Snapshot) error
}
