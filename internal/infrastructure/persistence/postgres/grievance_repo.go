package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aegis-hub/aegis-portal/internal/domain/grievance"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
	"github.com/aegis-hub/aegis-portal/pkg/timeutil"
)

// GrievanceRepository implements grievance.Repository using PostgreSQL.
type GrievanceRepository struct {
	conn *Connection
}

// NewGrievanceRepository creates a new GrievanceRepository.
func NewGrievanceRepository(conn *Connection) *GrievanceRepository {
	return &GrievanceRepository{conn: conn}
}

const grievanceColumns = `
	id::text, title, category, priority, status, to_char(date, 'YYYY-MM-DD'),
	description, location, votes, is_anonymous,
	COALESCE(reporter_id::text, ''), COALESCE(reporter_token, ''),
	created_at, updated_at`

func scanGrievance(row interface{ Scan(...any) error }) (*grievance.Grievance, error) {
	var g grievance.Grievance
	var category, priority, status string
	err := row.Scan(
		&g.ID, &g.Title, &category, &priority, &status, &g.Date,
		&g.Description, &g.Location, &g.Votes, &g.Anonymous,
		&g.ReporterID, &g.ReporterToken,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.Category = grievance.Category(category)
	g.Priority = grievance.Priority(priority)
	g.Status = grievance.Status(status)
	return &g, nil
}

func collectGrievances(rows pgx.Rows) ([]*grievance.Grievance, error) {
	defer rows.Close()
	out := make([]*grievance.Grievance, 0)
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// nullIfEmpty stores empty strings as NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Create inserts a grievance.
func (r *GrievanceRepository) Create(ctx context.Context, g *grievance.Grievance) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	date, err := timeutil.ParseDate(g.Date)
	if err != nil {
		return shared.WrapError("grievance", "Create", shared.ErrValidation, "bad filing date", err)
	}

	_, err = r.conn.Pool().Exec(ctx, `
		INSERT INTO grievances (
			id, title, category, priority, status, date, description, location,
			votes, is_anonymous, reporter_id, reporter_token, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		g.ID, g.Title, string(g.Category), string(g.Priority), string(g.Status), date,
		g.Description, g.Location, g.Votes, g.Anonymous,
		nullIfEmpty(g.ReporterID), nullIfEmpty(g.ReporterToken), g.CreatedAt, g.UpdatedAt,
	)
	return mapError("grievance", "Create", err, nil, nil)
}

// GetByID retrieves a grievance by id.
func (r *GrievanceRepository) GetByID(ctx context.Context, id string) (*grievance.Grievance, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	g, err := scanGrievance(r.conn.Pool().QueryRow(ctx,
		`SELECT `+grievanceColumns+` FROM grievances WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("grievance", "GetByID", err, shared.ErrGrievanceNotFound, nil)
	}
	return g, nil
}

// List returns grievances newest first, optionally filtered by status.
func (r *GrievanceRepository) List(ctx context.Context, f grievance.Filter) ([]*grievance.Grievance, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT `+grievanceColumns+`
		FROM grievances
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		string(f.Status), f.Pagination.Limit(), f.Pagination.Offset())
	if err != nil {
		return nil, mapError("grievance", "List", err, nil, nil)
	}
	out, err := collectGrievances(rows)
	if err != nil {
		return nil, mapError("grievance", "List", err, nil, nil)
	}
	return out, nil
}

// ListByReporter returns grievances filed by reporterID openly or under
// reporterToken anonymously.
func (r *GrievanceRepository) ListByReporter(ctx context.Context, reporterID, reporterToken string) ([]*grievance.Grievance, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT `+grievanceColumns+`
		FROM grievances
		WHERE ($1::text <> '' AND reporter_id::text = $1)
		   OR ($2::text <> '' AND reporter_token = $2)
		ORDER BY created_at DESC, id`,
		reporterID, reporterToken)
	if err != nil {
		return nil, mapError("grievance", "ListByReporter", err, nil, nil)
	}
	out, err := collectGrievances(rows)
	if err != nil {
		return nil, mapError("grievance", "ListByReporter", err, nil, nil)
	}
	return out, nil
}

// UpdateStatus sets the status in one statement and returns the value it
// replaced, so concurrent moderators each see the transition they made.
func (r *GrievanceRepository) UpdateStatus(ctx context.Context, id string, status grievance.Status, at time.Time) (grievance.Status, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var previous string
	err := r.conn.Pool().QueryRow(ctx, `
		WITH prev AS (
			SELECT id, status FROM grievances WHERE id = $1 FOR UPDATE
		)
		UPDATE grievances g
		SET status = $2, updated_at = $3
		FROM prev
		WHERE g.id = prev.id
		RETURNING prev.status`,
		id, string(status), at).Scan(&previous)
	if err != nil {
		return "", mapError("grievance", "UpdateStatus", err, shared.ErrGrievanceNotFound, nil)
	}
	return grievance.Status(previous), nil
}

// IncrementVotes adds one vote atomically.
func (r *GrievanceRepository) IncrementVotes(ctx context.Context, id string) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var votes int
	err := r.conn.Pool().QueryRow(ctx,
		`UPDATE grievances SET votes = votes + 1 WHERE id = $1 RETURNING votes`, id).Scan(&votes)
	if err != nil {
		return 0, mapError("grievance", "IncrementVotes", err, shared.ErrGrievanceNotFound, nil)
	}
	return votes, nil
}

// CountByStatus groups grievances by status.
func (r *GrievanceRepository) CountByStatus(ctx context.Context) (map[grievance.Status]int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx, `SELECT status, COUNT(*) FROM grievances GROUP BY status`)
	if err != nil {
		return nil, mapError("grievance", "CountByStatus", err, nil, nil)
	}
	defer rows.Close()

	out := make(map[grievance.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, mapError("grievance", "CountByStatus", err, nil, nil)
		}
		out[grievance.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("grievance", "CountByStatus", err, nil, nil)
	}
	return out, nil
}

// ListCreatedSince returns grievances created at or after since.
func (r *GrievanceRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]*grievance.Grievance, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT `+grievanceColumns+`
		FROM grievances
		WHERE created_at >= $1
		ORDER BY created_at DESC, id`, since)
	if err != nil {
		return nil, mapError("grievance", "ListCreatedSince", err, nil, nil)
	}
	out, err := collectGrievances(rows)
	if err != nil {
		return nil, mapError("grievance", "ListCreatedSince", err, nil, nil)
	}
	return out, nil
}

var _ grievance.Repository = (*GrievanceRepository)(nil)
