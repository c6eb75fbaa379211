package command

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aegis-hub/aegis-portal/internal/domain/campus"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// AddLocationCommand places a marker on the campus map.
type AddLocationCommand struct {
	Actor       profile.Actor
	Name        string
	Type        string
	Lat         float64
	Lng         float64
	Description string
}

// AddLocationHandler handles AddLocationCommand.
type AddLocationHandler struct {
	repo      campus.Repository
	cache     campus.Cache
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewAddLocationHandler creates a new AddLocationHandler. cache may be nil.
func NewAddLocationHandler(repo campus.Repository, cache campus.Cache, publisher shared.EventPublisher, logger *slog.Logger) *AddLocationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AddLocationHandler{repo: repo, cache: cache, publisher: publisher, logger: logger}
}

// Handle stores the marker. Only admins may edit the map.
func (h *AddLocationHandler) Handle(ctx context.Context, cmd AddLocationCommand) (*campus.Location, error) {
	if cmd.Actor.Role != profile.RoleAdmin {
		return nil, shared.ErrMapEditForbidden
	}

	loc := campus.Location{
		ID:          shared.NewID(),
		Name:        strings.TrimSpace(cmd.Name),
		Type:        strings.TrimSpace(cmd.Type),
		Lat:         cmd.Lat,
		Lng:         cmd.Lng,
		Description: strings.TrimSpace(cmd.Description),
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	if err := h.repo.Upsert(ctx, loc); err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.InvalidateLocations(ctx); err != nil {
			h.logger.Warn("failed to invalidate location cache", "error", err)
		}
	}

	_ = h.publisher.Publish(shared.NewLocationAddedEvent(loc.ID, loc.Name))
	return &loc, nil
}
