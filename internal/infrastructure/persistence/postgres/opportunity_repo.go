package postgres

import (
	"context"

	"github.com/aegis-hub/aegis-portal/internal/domain/opportunity"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
	"github.com/aegis-hub/aegis-portal/pkg/timeutil"
)

// OpportunityRepository implements opportunity.Repository using PostgreSQL.
type OpportunityRepository struct {
	conn *Connection
}

// NewOpportunityRepository creates a new OpportunityRepository.
func NewOpportunityRepository(conn *Connection) *OpportunityRepository {
	return &OpportunityRepository{conn: conn}
}

const opportunityColumns = `id::text, title, professor, type, to_char(deadline, 'YYYY-MM-DD'), stipend, tags, created_at`

func scanOpportunity(row interface{ Scan(...any) error }) (*opportunity.Opportunity, error) {
	var o opportunity.Opportunity
	var typ string
	if err := row.Scan(&o.ID, &o.Title, &o.Professor, &typ, &o.Deadline, &o.Stipend, &o.Tags, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Type = opportunity.Type(typ)
	if o.Tags == nil {
		o.Tags = []string{}
	}
	return &o, nil
}

// List returns opportunities by deadline ascending.
func (r *OpportunityRepository) List(ctx context.Context) ([]*opportunity.Opportunity, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities ORDER BY deadline, created_at, id`)
	if err != nil {
		return nil, mapError("opportunity", "List", err, nil, nil)
	}
	defer rows.Close()

	out := make([]*opportunity.Opportunity, 0)
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, mapError("opportunity", "List", err, nil, nil)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("opportunity", "List", err, nil, nil)
	}
	return out, nil
}

// GetByID retrieves an opportunity by id.
func (r *OpportunityRepository) GetByID(ctx context.Context, id string) (*opportunity.Opportunity, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	o, err := scanOpportunity(r.conn.Pool().QueryRow(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("opportunity", "GetByID", err, shared.ErrOpportunityNotFound, nil)
	}
	return o, nil
}

// Create inserts an opportunity.
func (r *OpportunityRepository) Create(ctx context.Context, o *opportunity.Opportunity) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	deadline, err := timeutil.ParseDate(o.Deadline)
	if err != nil {
		return shared.WrapError("opportunity", "Create", shared.ErrValidation, "deadline must be YYYY-MM-DD", err)
	}
	tags := o.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err = r.conn.Pool().Exec(ctx, `
		INSERT INTO opportunities (id, title, professor, type, deadline, stipend, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.Title, o.Professor, string(o.Type), deadline, o.Stipend, tags, o.CreatedAt)
	return mapError("opportunity", "Create", err, nil, nil)
}

// CreateApplication records an application. The unique constraint on
// (opportunity_id, user_id) turns a repeat into ErrAlreadyApplied.
func (r *OpportunityRepository) CreateApplication(ctx context.Context, a *opportunity.Application) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO applications (id, opportunity_id, user_id, user_name, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.OpportunityID, a.UserID, a.UserName, a.CreatedAt)
	if IsForeignKeyViolation(err) {
		return shared.ErrOpportunityNotFound
	}
	return mapError("opportunity", "CreateApplication", err, nil, shared.ErrAlreadyApplied)
}

// AppliedIDs returns the opportunity ids userID has applied to.
func (r *OpportunityRepository) AppliedIDs(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT opportunity_id::text FROM applications
		WHERE user_id::text = $1
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, mapError("opportunity", "AppliedIDs", err, nil, nil)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError("opportunity", "AppliedIDs", err, nil, nil)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("opportunity", "AppliedIDs", err, nil, nil)
	}
	return out, nil
}

var _ opportunity.Repository = (*OpportunityRepository)(nil)
