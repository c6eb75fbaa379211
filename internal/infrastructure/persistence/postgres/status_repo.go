package postgres

import (
	"context"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/dashboard"
)

// StatusRepository implements dashboard.StatusRepository using PostgreSQL.
type StatusRepository struct {
	conn *Connection
}

// NewStatusRepository creates a new StatusRepository.
func NewStatusRepository(conn *Connection) *StatusRepository {
	return &StatusRepository{conn: conn}
}

// ListComponents returns the status rows ordered by id.
func (r *StatusRepository) ListComponents(ctx context.Context) ([]dashboard.SystemComponent, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT id, name, status, health, checked_at
		FROM system_status ORDER BY id`)
	if err != nil {
		return nil, mapError("dashboard", "ListComponents", err, nil, nil)
	}
	defer rows.Close()

	out := make([]dashboard.SystemComponent, 0)
	for rows.Next() {
		var c dashboard.SystemComponent
		var status string
		if err := rows.Scan(&c.ID, &c.Name, &status, &c.Health, &c.CheckedAt); err != nil {
			return nil, mapError("dashboard", "ListComponents", err, nil, nil)
		}
		c.Status = dashboard.ComponentStatus(status)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("dashboard", "ListComponents", err, nil, nil)
	}
	return out, nil
}

// UpsertComponent writes one status row.
func (r *StatusRepository) UpsertComponent(ctx context.Context, c dashboard.SystemComponent) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	if c.CheckedAt.IsZero() {
		c.CheckedAt = time.Now().UTC()
	}
	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO system_status (id, name, status, health, checked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			health = EXCLUDED.health,
			checked_at = EXCLUDED.checked_at`,
		c.ID, c.Name, string(c.Status), c.Health, c.CheckedAt)
	return mapError("dashboard", "UpsertComponent", err, nil, nil)
}

var _ dashboard.StatusRepository = (*StatusRepository)(nil)
