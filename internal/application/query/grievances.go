package query

import (
	"context"

	"github.com/aegis-hub/aegis-portal/internal/domain/grievance"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// ListGrievancesQuery filters the grievance board.
type ListGrievancesQuery struct {
	// Status is the UI filter value; "All" or empty lists everything.
	Status   string
	Page     int
	PageSize int
}

// ListGrievancesResult is one page of grievances.
type ListGrievancesResult struct {
	Items  []*grievance.Grievance `json:"items"`
	Status string                 `json:"status"`
	Page   int                    `json:"page"`
}

// GrievancesHandler serves grievance listings.
type GrievancesHandler struct {
	repo         grievance.Repository
	anonymityKey []byte
}

// NewGrievancesHandler creates a new GrievancesHandler.
func NewGrievancesHandler(repo grievance.Repository, anonymityKey []byte) *GrievancesHandler {
	return &GrievancesHandler{repo: repo, anonymityKey: anonymityKey}
}

// List returns grievances newest first.
func (h *GrievancesHandler) List(ctx context.Context, q ListGrievancesQuery) (*ListGrievancesResult, error) {
	status, err := grievance.ParseStatusFilter(q.Status)
	if err != nil {
		return nil, err
	}
	page := shared.NewPagination(q.Page, q.PageSize)

	items, err := h.repo.List(ctx, grievance.Filter{Status: status, Pagination: page})
	if err != nil {
		return nil, err
	}
	label := string(status)
	if label == "" {
		label = grievance.StatusAll
	}
	return &ListGrievancesResult{Items: redact(items), Status: label, Page: page.Page}, nil
}

// Mine returns grievances the actor filed, anonymous ones included.
func (h *GrievancesHandler) Mine(ctx context.Context, actor profile.Actor) ([]*grievance.Grievance, error) {
	token := grievance.ReporterToken(h.anonymityKey, actor.ID)
	items, err := h.repo.ListByReporter(ctx, actor.ID, token)
	if err != nil {
		return nil, err
	}
	return redact(items), nil
}

// redact drops the reporter id of anonymous grievances before they leave
// the service.
func redact(items []*grievance.Grievance) []*grievance.Grievance {
	for _, g := range items {
		if g.Anonymous {
			g.ReporterID = ""
		}
	}
	if items == nil {
		items = []*grievance.Grievance{}
	}
	return items
}
