// Package opportunity models internships, research positions and projects
// published by faculty, and student applications to them.
package opportunity

import (
	"context"
	"strings"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// Type is the kind of opening.
type Type string

const (
	TypeInternship Type = "Internship"
	TypeResearch   Type = "Research"
	TypeProject    Type = "Project"
)

// IsValid reports whether t is a known type.
func (t Type) IsValid() bool {
	switch t {
	case TypeInternship, TypeResearch, TypeProject:
		return true
	}
	return false
}

// DefaultStipend is used when faculty leave the stipend blank.
const DefaultStipend = "Unpaid"

// Opportunity is a published opening.
type Opportunity struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Professor string    `json:"professor"`
	Type      Type      `json:"type"`
	Deadline  string    `json:"deadline"` // YYYY-MM-DD
	Stipend   string    `json:"stipend"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// PublishParams holds the inputs for New.
type PublishParams struct {
	Title     string
	Professor string
	Type      Type
	Deadline  string
	Stipend   string
	// Tags is the raw comma-separated text from the form.
	Tags string
	Now  time.Time
}

// New validates a publication and fills defaults.
func New(p PublishParams) (*Opportunity, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, shared.Validation("opportunity", "Publish", "title is required")
	}
	if p.Type == "" {
		p.Type = TypeInternship
	}
	if !p.Type.IsValid() {
		return nil, shared.ErrInvalidOppType
	}
	deadline := strings.TrimSpace(p.Deadline)
	if _, err := time.Parse("2006-01-02", deadline); err != nil {
		return nil, shared.WrapError("opportunity", "Publish", shared.ErrValidation, "deadline must be YYYY-MM-DD", err)
	}
	stipend := strings.TrimSpace(p.Stipend)
	if stipend == "" {
		stipend = DefaultStipend
	}
	if p.Now.IsZero() {
		p.Now = time.Now().UTC()
	}

	return &Opportunity{
		ID:        shared.NewID(),
		Title:     title,
		Professor: p.Professor,
		Type:      p.Type,
		Deadline:  deadline,
		Stipend:   stipend,
		Tags:      ParseTags(p.Tags),
		CreatedAt: p.Now,
	}, nil
}

// ParseTags splits comma-separated text, trimming and dropping empties.
func ParseTags(raw string) []string {
	tags := make([]string, 0)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Application records a student's interest in an opportunity.
type Application struct {
	ID            string    `json:"id"`
	OpportunityID string    `json:"opportunity_id"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// Repository stores opportunities and applications.
type Repository interface {
	// List returns opportunities by deadline ascending.
	List(ctx context.Context) ([]*Opportunity, error)
	GetByID(ctx context.Context, id string) (*Opportunity, error)
	Create(ctx context.Context, o *Opportunity) error

	// CreateApplication returns ErrAlreadyApplied for a repeat application.
	CreateApplication(ctx context.Context, a *Application) error
	// AppliedIDs returns the opportunity ids userID has applied to.
	AppliedIDs(ctx context.Context, userID string) ([]string, error)
}

// ListCache holds the rendered listing between publications.
type ListCache interface {
	// GetOpportunities returns nil, nil on a miss.
	GetOpportunities(ctx context.Context) ([]*Opportunity, error)
	SetOpportunities(ctx context.Context, items []*Opportunity) error
	InvalidateOpportunities(ctx context.Context) error
}
