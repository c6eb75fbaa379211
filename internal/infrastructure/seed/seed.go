// Package seed loads reference data (map markers, monitored components,
// courses and assignments) from YAML fixtures into the stores.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/aegis-hub/aegis-portal/internal/domain/academics"
	"github.com/aegis-hub/aegis-portal/internal/domain/campus"
	"github.com/aegis-hub/aegis-portal/internal/domain/dashboard"
	"github.com/aegis-hub/aegis-portal/pkg/timeutil"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// fixtureNamespace derives stable ids so that seeding twice updates rows
// instead of duplicating them.
var fixtureNamespace = uuid.MustParse("6f1c2a52-8d0e-4f0b-9a57-3d9b1f7a2c10")

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURE FILE
// ══════════════════════════════════════════════════════════════════════════════

// Fixtures is the YAML document.
type Fixtures struct {
	Locations   []LocationFixture   `yaml:"locations"`
	Components  []ComponentFixture  `yaml:"components"`
	Courses     []CourseFixture     `yaml:"courses"`
	Assignments []AssignmentFixture `yaml:"assignments"`
}

type LocationFixture struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Type        string  `yaml:"type"`
	Lat         float64 `yaml:"lat"`
	Lng         float64 `yaml:"lng"`
	Description string  `yaml:"description"`
}

type ComponentFixture struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Status string `yaml:"status"`
	Health int    `yaml:"health"`
}

type CourseFixture struct {
	Code         string `yaml:"code"`
	Name         string `yaml:"name"`
	Credits      int    `yaml:"credits"`
	Attended     int    `yaml:"attended"`
	TotalClasses int    `yaml:"total_classes"`
}

type AssignmentFixture struct {
	Title      string `yaml:"title"`
	CourseCode string `yaml:"course"`
	Due        string `yaml:"due"` // YYYY-MM-DD, campus time
	Type       string `yaml:"type"`
}

// Default returns the fixtures compiled into the binary.
func Default() (*Fixtures, error) {
	return Parse(defaultFixtures)
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture document. Unknown keys are rejected so a typo
// does not silently drop data.
func Parse(data []byte) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &f, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CONVERSION
// ══════════════════════════════════════════════════════════════════════════════

func stableID(kind, key string) string {
	return uuid.NewSHA1(fixtureNamespace, []byte(kind+":"+strings.ToLower(key))).String()
}

// locations converts and validates the map markers.
func (f *Fixtures) locations() ([]campus.Location, error) {
	out := make([]campus.Location, 0, len(f.Locations))
	for i, l := range f.Locations {
		loc := campus.Location{
			ID:          l.ID,
			Name:        strings.TrimSpace(l.Name),
			Type:        l.Type,
			Lat:         l.Lat,
			Lng:         l.Lng,
			Description: l.Description,
		}
		if loc.ID == "" {
			loc.ID = stableID("location", loc.Name)
		}
		if err := loc.Validate(); err != nil {
			return nil, fmt.Errorf("location %d (%q): %w", i, l.Name, err)
		}
		out = append(out, loc)
	}
	return out, nil
}

func (f *Fixtures) components() ([]dashboard.SystemComponent, error) {
	out := make([]dashboard.SystemComponent, 0, len(f.Components))
	for i, c := range f.Components {
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("component %d: id and name are required", i)
		}
		if c.Health < 0 || c.Health > 100 {
			return nil, fmt.Errorf("component %q: health %d out of range", c.ID, c.Health)
		}
		status := dashboard.ComponentStatus(c.Status)
		switch status {
		case dashboard.ComponentOperational, dashboard.ComponentDegraded, dashboard.ComponentDown:
		case "":
			status = dashboard.ComponentOperational
		default:
			return nil, fmt.Errorf("component %q: unknown status %q", c.ID, c.Status)
		}
		out = append(out, dashboard.SystemComponent{ID: c.ID, Name: c.Name, Status: status, Health: c.Health})
	}
	return out, nil
}

func (f *Fixtures) courses() ([]academics.Course, error) {
	out := make([]academics.Course, 0, len(f.Courses))
	for i, c := range f.Courses {
		code := strings.ToUpper(strings.TrimSpace(c.Code))
		if code == "" {
			return nil, fmt.Errorf("course %d: code is required", i)
		}
		if c.Credits <= 0 {
			return nil, fmt.Errorf("course %s: credits must be positive", code)
		}
		if c.Attended < 0 || c.TotalClasses < 0 || c.Attended > c.TotalClasses {
			return nil, fmt.Errorf("course %s: attended %d of %d classes", code, c.Attended, c.TotalClasses)
		}
		out = append(out, academics.Course{
			ID:           stableID("course", code),
			Code:         code,
			Name:         c.Name,
			Credits:      c.Credits,
			Attended:     c.Attended,
			TotalClasses: c.TotalClasses,
		})
	}
	return out, nil
}

func (f *Fixtures) assignments() ([]academics.Assignment, error) {
	out := make([]academics.Assignment, 0, len(f.Assignments))
	for i, a := range f.Assignments {
		if a.Title == "" {
			return nil, fmt.Errorf("assignment %d: title is required", i)
		}
		due, err := timeutil.ParseDate(a.Due)
		if err != nil {
			return nil, fmt.Errorf("assignment %q: due date: %w", a.Title, err)
		}
		code := strings.ToUpper(strings.TrimSpace(a.CourseCode))
		out = append(out, academics.Assignment{
			ID:         stableID("assignment", code+"/"+a.Title),
			Title:      a.Title,
			CourseCode: code,
			DueDate:    due,
			Type:       a.Type,
		})
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LOADER
// ══════════════════════════════════════════════════════════════════════════════

// AssignmentWriter inserts assignments; both stores implement it outside
// academics.Repository since the API never writes assignments.
type AssignmentWriter interface {
	CreateAssignment(ctx context.Context, a academics.Assignment) error
}

// Targets are the stores fixtures are written to. Nil targets are skipped.
type Targets struct {
	Locations   campus.Repository
	Status      dashboard.StatusRepository
	Academics   academics.Repository
	Assignments AssignmentWriter
}

// Result counts what was written.
type Result struct {
	Locations   int
	Components  int
	Courses     int
	Assignments int
}

// Loader writes fixtures into the stores.
type Loader struct {
	targets Targets
	logger  *slog.Logger
}

// NewLoader creates a new Loader.
func NewLoader(targets Targets, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{targets: targets, logger: logger.With("component", "seed")}
}

// Apply validates every section before writing anything, then upserts.
// Re-applying the same file is a no-op apart from refreshed timestamps.
func (l *Loader) Apply(ctx context.Context, f *Fixtures) (Result, error) {
	var res Result

	locations, err := f.locations()
	if err != nil {
		return res, err
	}
	components, err := f.components()
	if err != nil {
		return res, err
	}
	courses, err := f.courses()
	if err != nil {
		return res, err
	}
	assignments, err := f.assignments()
	if err != nil {
		return res, err
	}

	if l.targets.Locations != nil {
		for _, loc := range locations {
			if err := l.targets.Locations.Upsert(ctx, loc); err != nil {
				return res, fmt.Errorf("upsert location %q: %w", loc.Name, err)
			}
			res.Locations++
		}
	}
	if l.targets.Status != nil {
		for _, c := range components {
			if err := l.targets.Status.UpsertComponent(ctx, c); err != nil {
				return res, fmt.Errorf("upsert component %q: %w", c.ID, err)
			}
			res.Components++
		}
	}
	if l.targets.Academics != nil {
		for _, c := range courses {
			if err := l.targets.Academics.UpsertCourse(ctx, c); err != nil {
				return res, fmt.Errorf("upsert course %s: %w", c.Code, err)
			}
			res.Courses++
		}
	}
	if l.targets.Assignments != nil {
		for _, a := range assignments {
			if err := l.targets.Assignments.CreateAssignment(ctx, a); err != nil {
				return res, fmt.Errorf("create assignment %q: %w", a.Title, err)
			}
			res.Assignments++
		}
	}

	l.logger.Info("fixtures applied",
		"locations", res.Locations,
		"components", res.Components,
		"courses", res.Courses,
		"assignments", res.Assignments,
	)
	return res, nil
}
