package postgres

import (
	"context"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
	"github.com/aegis-hub/aegis-portal/internal/domain/sos"
)

// AlertRepository implements sos.Repository using PostgreSQL.
type AlertRepository struct {
	conn *Connection
}

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(conn *Connection) *AlertRepository {
	return &AlertRepository{conn: conn}
}

// Create inserts an alert.
func (r *AlertRepository) Create(ctx context.Context, a *sos.Alert) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO sos_alerts (id, user_id, user_name, lat, lng, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.UserID, a.UserName, a.Lat, a.Lng, string(a.Status), a.CreatedAt, a.UpdatedAt)
	return mapError("sos", "Create", err, nil, nil)
}

// GetByID retrieves an alert by id.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*sos.Alert, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var a sos.Alert
	var status string
	err := r.conn.Pool().QueryRow(ctx, `
		SELECT id::text, user_id::text, user_name, lat, lng, status, created_at, updated_at
		FROM sos_alerts WHERE id = $1`, id).
		Scan(&a.ID, &a.UserID, &a.UserName, &a.Lat, &a.Lng, &status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapError("sos", "GetByID", err, shared.ErrAlertNotFound, nil)
	}
	a.Status = sos.Status(status)
	return &a, nil
}

// TransitionStatus moves an alert to status in one conditional UPDATE, so a
// concurrent cancel and dispatch cannot overwrite each other.
func (r *AlertRepository) TransitionStatus(ctx context.Context, id string, status sos.Status, at time.Time) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	from := make([]string, 0, 2)
	for _, s := range status.AllowedFrom() {
		from = append(from, string(s))
	}

	tag, err := r.conn.Pool().Exec(ctx, `
		UPDATE sos_alerts SET status = $2, updated_at = $3
		WHERE id = $1 AND status = ANY($4)`, id, string(status), at, from)
	if err != nil {
		return mapError("sos", "TransitionStatus", err, shared.ErrAlertNotFound, nil)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = r.conn.Pool().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sos_alerts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return mapError("sos", "TransitionStatus", err, shared.ErrAlertNotFound, nil)
	}
	if !exists {
		return shared.ErrAlertNotFound
	}
	return shared.ErrAlertStateChanged
}

var _ sos.Repository = (*AlertRepository)(nil)
