// Package profile holds portal users, their roles and which views each role
// may open.
package profile

import (
	"context"
	"net/url"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLES AND VIEWS
// ══════════════════════════════════════════════════════════════════════════════

// Role is a portal role. Values match the stored strings.
type Role string

const (
	RoleStudent   Role = "Student"
	RoleFaculty   Role = "Faculty"
	RoleAuthority Role = "Authority"
	RoleAdmin     Role = "Admin"
)

// AllRoles lists every role.
var AllRoles = []Role{RoleStudent, RoleFaculty, RoleAuthority, RoleAdmin}

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", shared.ErrUnknownRole
	}
	return r, nil
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAuthority, RoleAdmin:
		return true
	}
	return false
}

// IsModerator reports whether r may moderate grievances and the community.
func (r Role) IsModerator() bool {
	return r == RoleAdmin || r == RoleAuthority
}

// View is a top-level portal screen.
type View string

const (
	ViewDashboard     View = "dashboard"
	ViewGrievances    View = "grievances"
	ViewAcademics     View = "academics"
	ViewOpportunities View = "opportunities"
	ViewMap           View = "map"
	ViewCommunity     View = "community"
)

// viewOrder is the navigation order.
var viewOrder = []View{ViewDashboard, ViewGrievances, ViewAcademics, ViewOpportunities, ViewMap, ViewCommunity}

var viewAccess = map[View][]Role{
	ViewDashboard:     AllRoles,
	ViewGrievances:    {RoleStudent, RoleAdmin, RoleAuthority},
	ViewAcademics:     {RoleStudent, RoleFaculty},
	ViewOpportunities: {RoleStudent, RoleFaculty},
	ViewMap:           {RoleStudent, RoleFaculty, RoleAdmin},
	ViewCommunity:     AllRoles,
}

// CanAccess reports whether r may open v.
func (r Role) CanAccess(v View) bool {
	for _, allowed := range viewAccess[v] {
		if allowed == r {
			return true
		}
	}
	return false
}

// Views returns the views r may open, in navigation order.
func (r Role) Views() []View {
	out := make([]View, 0, len(viewOrder))
	for _, v := range viewOrder {
		if r.CanAccess(v) {
			out = append(out, v)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// USER
// ══════════════════════════════════════════════════════════════════════════════

// User is a portal profile.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Avatar    string    `json:"avatar"`
	CGPA      *float64  `json:"cgpa,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SeedUser builds the placeholder profile the login stub creates when no
// profile with the role exists yet.
func SeedUser(role Role, now time.Time) *User {
	name, email := "Arjun Mehta", "b22100@students.iitmandi.ac.in"
	switch role {
	case RoleFaculty:
		name, email = "Dr. A. Sharma", "prof@iitmandi.ac.in"
	case RoleAdmin:
		name, email = "Chief Warden", "admin@iitmandi.ac.in"
	}
	return &User{
		ID:        shared.NewID(),
		Name:      name,
		Email:     email,
		Role:      role,
		Avatar:    AvatarURL(string(role)),
		CreatedAt: now,
	}
}

// AvatarURL returns a generated initials avatar.
func AvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=0ea5e9&color=fff"
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores profiles.
type Repository interface {
	// GetByID returns ErrProfileNotFound when missing.
	GetByID(ctx context.Context, id string) (*User, error)
	// FirstByRole returns the oldest profile with role, or ErrProfileNotFound.
	FirstByRole(ctx context.Context, role Role) (*User, error)
	Create(ctx context.Context, u *User) error
	CountByRole(ctx context.Context, role Role) (int, error)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// Actor returns u as an operation caller.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
