package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/opportunity"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUBLISH OPPORTUNITY
// ══════════════════════════════════════════════════════════════════════════════

// PublishOpportunityCommand posts a new opening.
type PublishOpportunityCommand struct {
	Actor    profile.Actor
	Title    string
	Type     string
	Deadline string
	Stipend  string
	Tags     string
}

// PublishOpportunityHandler handles PublishOpportunityCommand.
type PublishOpportunityHandler struct {
	repo      opportunity.Repository
	cache     opportunity.ListCache
	publisher shared.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewPublishOpportunityHandler creates a new PublishOpportunityHandler.
// cache may be nil.
func NewPublishOpportunityHandler(
	repo opportunity.Repository,
	cache opportunity.ListCache,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *PublishOpportunityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublishOpportunityHandler{repo: repo, cache: cache, publisher: publisher, logger: logger, now: time.Now}
}

// Handle publishes the opening under the caller's name. Only faculty may
// publish.
func (h *PublishOpportunityHandler) Handle(ctx context.Context, cmd PublishOpportunityCommand) (*opportunity.Opportunity, error) {
	if cmd.Actor.Role != profile.RoleFaculty {
		return nil, shared.ErrPublishForbidden
	}

	o, err := opportunity.New(opportunity.PublishParams{
		Title:     cmd.Title,
		Professor: cmd.Actor.Name,
		Type:      opportunity.Type(cmd.Type),
		Deadline:  cmd.Deadline,
		Stipend:   cmd.Stipend,
		Tags:      cmd.Tags,
		Now:       h.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := h.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.InvalidateOpportunities(ctx); err != nil {
			h.logger.Warn("failed to invalidate opportunity cache", "error", err)
		}
	}

	_ = h.publisher.Publish(shared.NewOpportunityPublishedEvent(o.ID, o.Title, o.Professor))
	return o, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// APPLY
// ══════════════════════════════════════════════════════════════════════════════

// ApplyOpportunityCommand records a student's application.
type ApplyOpportunityCommand struct {
	Actor         profile.Actor
	OpportunityID string
}

// ApplyOpportunityHandler handles ApplyOpportunityCommand.
type ApplyOpportunityHandler struct {
	repo opportunity.Repository
	now  func() time.Time
}

// NewApplyOpportunityHandler creates a new ApplyOpportunityHandler.
func NewApplyOpportunityHandler(repo opportunity.Repository) *ApplyOpportunityHandler {
	return &ApplyOpportunityHandler{repo: repo, now: time.Now}
}

// Handle records the application once per student.
func (h *ApplyOpportunityHandler) Handle(ctx context.Context, cmd ApplyOpportunityCommand) (*opportunity.Application, error) {
	if cmd.Actor.Role != profile.RoleStudent {
		return nil, shared.ErrApplyForbidden
	}
	if _, err := h.repo.GetByID(ctx, cmd.OpportunityID); err != nil {
		return nil, err
	}

	app := &opportunity.Application{
		ID:            shared.NewID(),
		OpportunityID: cmd.OpportunityID,
		UserID:        cmd.Actor.ID,
		UserName:      cmd.Actor.Name,
		CreatedAt:     h.now().UTC(),
	}
	if err := h.repo.CreateApplication(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}
