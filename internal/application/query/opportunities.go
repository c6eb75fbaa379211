package query

import (
	"context"
	"log/slog"

	"github.com/aegis-hub/aegis-portal/internal/domain/opportunity"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// OpportunityListResult is the listing with the caller's applications.
type OpportunityListResult struct {
	Items      []*opportunity.Opportunity `json:"items"`
	AppliedIDs []string                   `json:"applied_ids"`
}

// OpportunitiesHandler serves the opportunity board.
type OpportunitiesHandler struct {
	repo   opportunity.Repository
	cache  opportunity.ListCache
	logger *slog.Logger
}

// NewOpportunitiesHandler creates a new OpportunitiesHandler. cache may be nil.
func NewOpportunitiesHandler(repo opportunity.Repository, cache opportunity.ListCache, logger *slog.Logger) *OpportunitiesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpportunitiesHandler{repo: repo, cache: cache, logger: logger}
}

// List returns opportunities by deadline, read through the cache.
func (h *OpportunitiesHandler) List(ctx context.Context, actor profile.Actor) (*OpportunityListResult, error) {
	items, err := h.tryGetFromCache(ctx)
	if items == nil || err != nil {
		items, err = h.repo.List(ctx)
		if err != nil {
			return nil, shared.WrapError("query", "ListOpportunities", shared.ErrServiceUnavailable, "failed to list opportunities", err)
		}
		if h.cache != nil {
			if err := h.cache.SetOpportunities(ctx, items); err != nil {
				h.logger.Warn("failed to cache opportunities", "error", err)
			}
		}
	}
	if items == nil {
		items = []*opportunity.Opportunity{}
	}

	applied := []string{}
	if actor.Role == profile.RoleStudent {
		applied, err = h.repo.AppliedIDs(ctx, actor.ID)
		if err != nil {
			return nil, shared.WrapError("query", "ListOpportunities", shared.ErrServiceUnavailable, "failed to list applications", err)
		}
	}
	return &OpportunityListResult{Items: items, AppliedIDs: applied}, nil
}

func (h *OpportunitiesHandler) tryGetFromCache(ctx context.Context) ([]*opportunity.Opportunity, error) {
	if h.cache == nil {
		return nil, nil
	}
	items, err := h.cache.GetOpportunities(ctx)
	if err != nil {
		h.logger.Warn("opportunity cache read failed", "error", err)
	}
	return items, err
}
