package command

import (
	"context"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/academics"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// UploadResourceCommand shares course material.
type UploadResourceCommand struct {
	Actor     profile.Actor
	Title     string
	Type      string
	SizeBytes uint64
	URL       string
}

// UploadResourceHandler handles UploadResourceCommand.
type UploadResourceHandler struct {
	repo academics.Repository
	now  func() time.Time
}

// NewUploadResourceHandler creates a new UploadResourceHandler.
func NewUploadResourceHandler(repo academics.Repository) *UploadResourceHandler {
	return &UploadResourceHandler{repo: repo, now: time.Now}
}

// Handle stores the resource. Only faculty may upload.
func (h *UploadResourceHandler) Handle(ctx context.Context, cmd UploadResourceCommand) (*academics.Resource, error) {
	if cmd.Actor.Role != profile.RoleFaculty {
		return nil, shared.ErrUploadForbidden
	}

	r, err := academics.NewResource(academics.NewResourceParams{
		Title:      cmd.Title,
		Type:       academics.ResourceType(cmd.Type),
		SizeBytes:  cmd.SizeBytes,
		UploadedBy: cmd.Actor.Name,
		URL:        cmd.URL,
		Now:        h.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := h.repo.CreateResource(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}
