package command

import (
	"context"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/grievance"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT GRIEVANCE
// ══════════════════════════════════════════════════════════════════════════════

// SubmitGrievanceCommand files a new grievance.
type SubmitGrievanceCommand struct {
	Actor       profile.Actor
	Title       string
	Description string
	Category    string
	Priority    string
	Location    string
	Anonymous   bool
}

// SubmitGrievanceHandler handles SubmitGrievanceCommand.
type SubmitGrievanceHandler struct {
	repo         grievance.Repository
	publisher    shared.EventPublisher
	anonymityKey []byte
	now          func() time.Time
}

// NewSubmitGrievanceHandler creates a new SubmitGrievanceHandler.
func NewSubmitGrievanceHandler(repo grievance.Repository, publisher shared.EventPublisher, anonymityKey []byte) *SubmitGrievanceHandler {
	return &SubmitGrievanceHandler{repo: repo, publisher: publisher, anonymityKey: anonymityKey, now: time.Now}
}

// Handle executes the submit command.
func (h *SubmitGrievanceHandler) Handle(ctx context.Context, cmd SubmitGrievanceCommand) (*grievance.Grievance, error) {
	g, err := grievance.New(grievance.SubmitParams{
		Title:        cmd.Title,
		Description:  cmd.Description,
		Category:     grievance.Category(cmd.Category),
		Priority:     grievance.Priority(cmd.Priority),
		Location:     cmd.Location,
		Anonymous:    cmd.Anonymous,
		ReporterID:   cmd.Actor.ID,
		AnonymityKey: h.anonymityKey,
		Now:          h.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := h.repo.Create(ctx, g); err != nil {
		return nil, err
	}

	_ = h.publisher.Publish(shared.NewGrievanceSubmittedEvent(
		g.ID, string(g.Category), string(g.Priority), g.Anonymous,
	))
	return g, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE GRIEVANCE STATUS
// ══════════════════════════════════════════════════════════════════════════════

// UpdateGrievanceStatusCommand moves a grievance to a new status.
type UpdateGrievanceStatusCommand struct {
	Actor       profile.Actor
	GrievanceID string
	Status      string
}

// UpdateGrievanceStatusResult reports both sides of the change so a client
// that applied it optimistically can reconcile.
type UpdateGrievanceStatusResult struct {
	ID       string           `json:"id"`
	Previous grievance.Status `json:"previous"`
	Status   grievance.Status `json:"status"`
}

// UpdateGrievanceStatusHandler handles UpdateGrievanceStatusCommand.
type UpdateGrievanceStatusHandler struct {
	repo      grievance.Repository
	publisher shared.EventPublisher
	now       func() time.Time
}

// NewUpdateGrievanceStatusHandler creates a new UpdateGrievanceStatusHandler.
func NewUpdateGrievanceStatusHandler(repo grievance.Repository, publisher shared.EventPublisher) *UpdateGrievanceStatusHandler {
	return &UpdateGrievanceStatusHandler{repo: repo, publisher: publisher, now: time.Now}
}

// Handle executes the status change. Only moderators may call it.
func (h *UpdateGrievanceStatusHandler) Handle(ctx context.Context, cmd UpdateGrievanceStatusCommand) (*UpdateGrievanceStatusResult, error) {
	if !cmd.Actor.Role.IsModerator() {
		return nil, shared.ErrNotModerator
	}
	status := grievance.Status(cmd.Status)
	if !status.IsValid() {
		return nil, shared.ErrInvalidStatus
	}

	previous, err := h.repo.UpdateStatus(ctx, cmd.GrievanceID, status, h.now().UTC())
	if err != nil {
		return nil, err
	}

	if previous != status {
		_ = h.publisher.Publish(shared.NewGrievanceStatusChangedEvent(
			cmd.GrievanceID, string(previous), string(status), cmd.Actor.ID,
		))
	}
	return &UpdateGrievanceStatusResult{ID: cmd.GrievanceID, Previous: previous, Status: status}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPVOTE GRIEVANCE
// ══════════════════════════════════════════════════════════════════════════════

// UpvoteGrievanceHandler adds a vote to a grievance.
type UpvoteGrievanceHandler struct {
	repo grievance.Repository
}

// NewUpvoteGrievanceHandler creates a new UpvoteGrievanceHandler.
func NewUpvoteGrievanceHandler(repo grievance.Repository) *UpvoteGrievanceHandler {
	return &UpvoteGrievanceHandler{repo: repo}
}

// Handle increments the vote count and returns the new total.
func (h *UpvoteGrievanceHandler) Handle(ctx context.Context, grievanceID string) (int, error) {
	return h.repo.IncrementVotes(ctx, grievanceID)
}
