package query

import (
	"context"
	"log/slog"

	"github.com/aegis-hub/aegis-portal/internal/domain/academics"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// AcademicsDefaults seeds the projector on the overview.
type AcademicsDefaults struct {
	CreditsCompleted int
	CreditsPlanned   int
	CurrentAverage   float64
	TargetAverage    float64
	TargetStep       float64
	Upcoming         int
}

// DefaultAcademicsDefaults returns the stock overview defaults.
func DefaultAcademicsDefaults() AcademicsDefaults {
	return AcademicsDefaults{
		CreditsCompleted: 85,
		CreditsPlanned:   20,
		CurrentAverage:   7.0,
		TargetAverage:    8.5,
		TargetStep:       0.5,
		Upcoming:         3,
	}
}

// CourseView is a course with its attendance figures resolved.
type CourseView struct {
	academics.Course
	AttendancePercent int                      `json:"attendance_percent"`
	AttendanceBand    academics.AttendanceBand `json:"attendance_band"`
}

// AcademicsOverview is the academics view payload.
type AcademicsOverview struct {
	Courses    []CourseView           `json:"courses"`
	Resources  []academics.Resource   `json:"resources"`
	Upcoming   []academics.Assignment `json:"upcoming"`
	Projection *academics.Projection  `json:"projection,omitempty"`
}

// AcademicsHandler serves the academics view.
type AcademicsHandler struct {
	repo     academics.Repository
	profiles profile.Repository
	defaults AcademicsDefaults
	logger   *slog.Logger
}

// NewAcademicsHandler creates a new AcademicsHandler.
func NewAcademicsHandler(repo academics.Repository, profiles profile.Repository, defaults AcademicsDefaults, logger *slog.Logger) *AcademicsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AcademicsHandler{repo: repo, profiles: profiles, defaults: defaults, logger: logger}
}

// Overview returns courses, resources and the next assignments. Students
// also get a projection seeded from their CGPA.
func (h *AcademicsHandler) Overview(ctx context.Context, actor profile.Actor) (*AcademicsOverview, error) {
	courses, err := h.repo.ListCourses(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "AcademicsOverview", shared.ErrServiceUnavailable, "failed to list courses", err)
	}
	resources, err := h.repo.ListResources(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "AcademicsOverview", shared.ErrServiceUnavailable, "failed to list resources", err)
	}
	upcoming, err := h.repo.ListAssignments(ctx, h.defaults.Upcoming)
	if err != nil {
		return nil, shared.WrapError("query", "AcademicsOverview", shared.ErrServiceUnavailable, "failed to list assignments", err)
	}

	out := &AcademicsOverview{
		Courses:   make([]CourseView, 0, len(courses)),
		Resources: resources,
		Upcoming:  academics.Upcoming(upcoming, h.defaults.Upcoming),
	}
	for _, c := range courses {
		out.Courses = append(out.Courses, CourseView{
			Course:            c,
			AttendancePercent: c.AttendancePercent(),
			AttendanceBand:    c.AttendanceBand(),
		})
	}
	if out.Resources == nil {
		out.Resources = []academics.Resource{}
	}

	if actor.Role == profile.RoleStudent {
		var cgpa *float64
		if u, err := h.profiles.GetByID(ctx, actor.ID); err == nil {
			cgpa = u.CGPA
		} else if !shared.IsNotFound(err) {
			h.logger.Warn("profile lookup for projection failed", "user_id", actor.ID, "error", err)
		}
		d := h.defaults
		p := academics.Project(academics.DefaultProjectionInput(
			cgpa, d.CreditsCompleted, d.CreditsPlanned, d.CurrentAverage, d.TargetAverage, d.TargetStep,
		))
		out.Projection = &p
	}
	return out, nil
}

// ProjectionQuery carries the projector inputs as entered.
type ProjectionQuery struct {
	CurrentAverage   float64
	CreditsCompleted int
	CreditsPlanned   int
	TargetAverage    float64
}

// ProjectionResult is the projection plus the user-facing message.
type ProjectionResult struct {
	academics.Projection
	Message string `json:"message"`
}

// Projection runs the target-grade projector. It never fails: every input
// is accepted and credits are clamped.
func (h *AcademicsHandler) Projection(q ProjectionQuery) ProjectionResult {
	p := academics.Project(academics.ProjectionInput{
		CurrentAverage:   q.CurrentAverage,
		CreditsCompleted: q.CreditsCompleted,
		CreditsPlanned:   q.CreditsPlanned,
		TargetAverage:    q.TargetAverage,
	})
	return ProjectionResult{Projection: p, Message: p.Outlook.Message()}
}
