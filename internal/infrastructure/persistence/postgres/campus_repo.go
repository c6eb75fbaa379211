package postgres

import (
	"context"

	"github.com/aegis-hub/aegis-portal/internal/domain/campus"
)

// LocationRepository implements campus.Repository using PostgreSQL.
type LocationRepository struct {
	conn *Connection
}

// NewLocationRepository creates a new LocationRepository.
func NewLocationRepository(conn *Connection) *LocationRepository {
	return &LocationRepository{conn: conn}
}

// List returns every marker ordered by name.
func (r *LocationRepository) List(ctx context.Context) ([]campus.Location, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT id::text, name, type, lat, lng, description
		FROM locations ORDER BY name, id`)
	if err != nil {
		return nil, mapError("campus", "List", err, nil, nil)
	}
	defer rows.Close()

	out := make([]campus.Location, 0)
	for rows.Next() {
		var l campus.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Type, &l.Lat, &l.Lng, &l.Description); err != nil {
			return nil, mapError("campus", "List", err, nil, nil)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("campus", "List", err, nil, nil)
	}
	return out, nil
}

// Upsert inserts a marker or replaces the one with the same id.
func (r *LocationRepository) Upsert(ctx context.Context, l campus.Location) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO locations (id, name, type, lat, lng, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			description = EXCLUDED.description`,
		l.ID, l.Name, l.Type, l.Lat, l.Lng, l.Description)
	return mapError("campus", "Upsert", err, nil, nil)
}

var _ campus.Repository = (*LocationRepository)(nil)
