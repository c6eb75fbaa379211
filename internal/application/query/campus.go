package query

import (
	"context"
	"log/slog"

	"github.com/aegis-hub/aegis-portal/internal/domain/campus"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// CampusMapHandler serves the campus map markers.
type CampusMapHandler struct {
	repo   campus.Repository
	cache  campus.Cache
	logger *slog.Logger
}

// NewCampusMapHandler creates a new CampusMapHandler. cache may be nil.
func NewCampusMapHandler(repo campus.Repository, cache campus.Cache, logger *slog.Logger) *CampusMapHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CampusMapHandler{repo: repo, cache: cache, logger: logger}
}

// Handle returns the markers inside the default viewport.
func (h *CampusMapHandler) Handle(ctx context.Context) (campus.Map, error) {
	if h.cache != nil {
		items, err := h.cache.GetLocations(ctx)
		if err != nil {
			h.logger.Warn("location cache read failed", "error", err)
		} else if items != nil {
			return campus.NewMap(items), nil
		}
	}

	items, err := h.repo.List(ctx)
	if err != nil {
		return campus.Map{}, shared.WrapError("query", "GetCampusMap", shared.ErrServiceUnavailable, "failed to list locations", err)
	}
	if h.cache != nil {
		if err := h.cache.SetLocations(ctx, items); err != nil {
			h.logger.Warn("failed to cache locations", "error", err)
		}
	}
	return campus.NewMap(items), nil
}
