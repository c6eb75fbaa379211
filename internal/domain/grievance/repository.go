package grievance

import (
	"context"
	"time"
)

// Repository stores grievances.
type Repository interface {
	Create(ctx context.Context, g *Grievance) error

	// GetByID returns ErrGrievanceNotFound when missing.
	GetByID(ctx context.Context, id string) (*Grievance, error)

	// List returns grievances newest first.
	List(ctx context.Context, f Filter) ([]*Grievance, error)

	// ListByReporter matches either the reporter id or the anonymous token.
	ListByReporter(ctx context.Context, reporterID, reporterToken string) ([]*Grievance, error)

	// UpdateStatus sets the status and returns the previous one.
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (Status, error)

	// IncrementVotes adds one vote and returns the new total.
	IncrementVotes(ctx context.Context, id string) (int, error)

	// CountByStatus returns counts for every status present.
	CountByStatus(ctx context.Context) (map[Status]int, error)

	// ListCreatedSince returns grievances created at or after since.
	ListCreatedSince(ctx context.Context, since time.Time) ([]*Grievance, error)
}
