package postgres

import (
	"context"

	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// ProfileRepository implements profile.Repository using PostgreSQL.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

const profileColumns = `id::text, full_name, email, role, avatar_url, cgpa::float8, created_at`

func scanProfile(row interface{ Scan(...any) error }) (*profile.User, error) {
	var u profile.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.Avatar, &u.CGPA, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = profile.Role(role)
	return &u, nil
}

// GetByID retrieves a profile by id.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profile.User, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	u, err := scanProfile(r.conn.Pool().QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("profile", "GetByID", err, shared.ErrProfileNotFound, nil)
	}
	return u, nil
}

// FirstByRole returns the oldest profile holding role.
func (r *ProfileRepository) FirstByRole(ctx context.Context, role profile.Role) (*profile.User, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	u, err := scanProfile(r.conn.Pool().QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE role = $1 ORDER BY created_at, id LIMIT 1`, string(role)))
	if err != nil {
		return nil, mapError("profile", "FirstByRole", err, shared.ErrProfileNotFound, nil)
	}
	return u, nil
}

// Create inserts a profile.
func (r *ProfileRepository) Create(ctx context.Context, u *profile.User) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO profiles (id, full_name, email, role, avatar_url, cgpa, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, string(u.Role), u.Avatar, u.CGPA, u.CreatedAt)
	return mapError("profile", "Create", err, nil, nil)
}

// CountByRole counts profiles holding role.
func (r *ProfileRepository) CountByRole(ctx context.Context, role profile.Role) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var n int
	err := r.conn.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE role = $1`, string(role)).Scan(&n)
	if err != nil {
		return 0, mapError("profile", "CountByRole", err, nil, nil)
	}
	return n, nil
}

var _ profile.Repository = (*ProfileRepository)(nil)
