// Package academics models courses, course material, assignments and the
// target-grade projector shown on the academics view.
package academics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceBand buckets attendance for colour coding.
type AttendanceBand string

const (
	BandGood     AttendanceBand = "good"     // above 75%
	BandWarning  AttendanceBand = "warning"  // above 60%
	BandCritical AttendanceBand = "critical" // 60% or below
	BandNone     AttendanceBand = "none"     // no classes held yet
)

// Course is an enrolled course with its attendance record.
type Course struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Credits      int    `json:"credits"`
	Attended     int    `json:"attended"`
	TotalClasses int    `json:"total_classes"`
}

// AttendancePercent rounds attended/total to a whole percent; 0 when no
// classes have been held.
func (c Course) AttendancePercent() int {
	if c.TotalClasses <= 0 {
		return 0
	}
	return int(math.Round(float64(c.Attended) / float64(c.TotalClasses) * 100))
}

// AttendanceBand classifies the rounded attendance percentage.
func (c Course) AttendanceBand() AttendanceBand {
	if c.TotalClasses <= 0 {
		return BandNone
	}
	switch pct := c.AttendancePercent(); {
	case pct > 75:
		return BandGood
	case pct > 60:
		return BandWarning
	default:
		return BandCritical
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RESOURCE
// ══════════════════════════════════════════════════════════════════════════════

// ResourceType is the kind of uploaded material.
type ResourceType string

const (
	ResourcePDF ResourceType = "PDF"
	ResourceDOC ResourceType = "DOC"
	ResourcePPT ResourceType = "PPT"
)

// IsValid reports whether t is a known resource type.
func (t ResourceType) IsValid() bool {
	switch t {
	case ResourcePDF, ResourceDOC, ResourcePPT:
		return true
	}
	return false
}

// DefaultResourceSize is shown when the uploader does not report a size.
const DefaultResourceSize = "1.2 MB"

// Resource is course material shared by faculty.
type Resource struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Type       ResourceType `json:"type"`
	Size       string       `json:"size"`
	UploadedBy string       `json:"uploaded_by"`
	URL        string       `json:"url"`
	CreatedAt  time.Time    `json:"created_at"`
}

// NewResourceParams holds the inputs for NewResource.
type NewResourceParams struct {
	Title      string
	Type       ResourceType
	SizeBytes  uint64
	UploadedBy string
	URL        string
	Now        time.Time
}

// NewResource validates an upload and fills defaults.
func NewResource(p NewResourceParams) (*Resource, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, shared.Validation("academics", "Upload", "title is required")
	}
	if p.Type == "" {
		p.Type = ResourcePDF
	}
	if !p.Type.IsValid() {
		return nil, shared.ErrInvalidResourceType
	}

	size := DefaultResourceSize
	if p.SizeBytes > 0 {
		size = humanize.Bytes(p.SizeBytes)
	}
	url := strings.TrimSpace(p.URL)
	if url == "" {
		url = "#"
	}
	if p.Now.IsZero() {
		p.Now = time.Now().UTC()
	}

	return &Resource{
		ID:         shared.NewID(),
		Title:      title,
		Type:       p.Type,
		Size:       size,
		UploadedBy: p.UploadedBy,
		URL:        url,
		CreatedAt:  p.Now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENT
// ══════════════════════════════════════════════════════════════════════════════

// Assignment is a graded task with a due date.
type Assignment struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CourseCode string    `json:"course_code"`
	DueDate    time.Time `json:"due_date"`
	Type       string    `json:"type"`
}

// Upcoming returns the first n assignments by due date, earliest first.
// The input slice is not modified.
func Upcoming(items []Assignment, n int) []Assignment {
	sorted := make([]Assignment, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DueDate.Before(sorted[j].DueDate)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
