// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGIN COMMAND
// Role-selection sign in: the caller picks a role and is signed in as the
// first profile holding it. A placeholder profile is created on first use.
// ══════════════════════════════════════════════════════════════════════════════

// LoginCommand selects the role to sign in as.
type LoginCommand struct {
	Role string
}

// LoginResult is the signed-in profile and the views it may open.
type LoginResult struct {
	User    *profile.User  `json:"user"`
	Views   []profile.View `json:"views"`
	Created bool           `json:"created"`
}

// LoginHandler handles LoginCommand.
type LoginHandler struct {
	profiles profile.Repository
	now      func() time.Time
}

// NewLoginHandler creates a new LoginHandler.
func NewLoginHandler(profiles profile.Repository) *LoginHandler {
	return &LoginHandler{profiles: profiles, now: time.Now}
}

// Handle executes the login command.
func (h *LoginHandler) Handle(ctx context.Context, cmd LoginCommand) (*LoginResult, error) {
	role, err := profile.ParseRole(cmd.Role)
	if err != nil {
		return nil, err
	}

	user, err := h.profiles.FirstByRole(ctx, role)
	if err == nil {
		return &LoginResult{User: user, Views: role.Views()}, nil
	}
	if !shared.IsNotFound(err) {
		return nil, shared.WrapError("profile", "Login", shared.ErrServiceUnavailable, "profile lookup failed", err)
	}

	user = profile.SeedUser(role, h.now().UTC())
	if err := h.profiles.Create(ctx, user); err != nil {
		return nil, shared.WrapError("profile", "Login", shared.ErrServiceUnavailable, "failed to create profile", err)
	}
	return &LoginResult{User: user, Views: role.Views(), Created: true}, nil
}
