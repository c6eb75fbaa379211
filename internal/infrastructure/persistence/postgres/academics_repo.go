package postgres

import (
	"context"

	"github.com/aegis-hub/aegis-portal/internal/domain/academics"
)

// AcademicsRepository implements academics.Repository using PostgreSQL.
type AcademicsRepository struct {
	conn *Connection
}

// NewAcademicsRepository creates a new AcademicsRepository.
func NewAcademicsRepository(conn *Connection) *AcademicsRepository {
	return &AcademicsRepository{conn: conn}
}

// ListCourses returns courses ordered by code.
func (r *AcademicsRepository) ListCourses(ctx context.Context) ([]academics.Course, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT id::text, code, name, credits, attended, total_classes
		FROM courses ORDER BY code`)
	if err != nil {
		return nil, mapError("academics", "ListCourses", err, nil, nil)
	}
	defer rows.Close()

	out := make([]academics.Course, 0)
	for rows.Next() {
		var c academics.Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Credits, &c.Attended, &c.TotalClasses); err != nil {
			return nil, mapError("academics", "ListCourses", err, nil, nil)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("academics", "ListCourses", err, nil, nil)
	}
	return out, nil
}

// UpsertCourse inserts a course or replaces the one with the same code.
func (r *AcademicsRepository) UpsertCourse(ctx context.Context, c academics.Course) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO courses (id, code, name, credits, attended, total_classes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			credits = EXCLUDED.credits,
			attended = EXCLUDED.attended,
			total_classes = EXCLUDED.total_classes`,
		c.ID, c.Code, c.Name, c.Credits, c.Attended, c.TotalClasses)
	return mapError("academics", "UpsertCourse", err, nil, nil)
}

// ListResources returns uploads newest first.
func (r *AcademicsRepository) ListResources(ctx context.Context) ([]academics.Resource, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT id::text, title, type, size, uploaded_by, url, created_at
		FROM resources ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, mapError("academics", "ListResources", err, nil, nil)
	}
	defer rows.Close()

	out := make([]academics.Resource, 0)
	for rows.Next() {
		var res academics.Resource
		var typ string
		if err := rows.Scan(&res.ID, &res.Title, &typ, &res.Size, &res.UploadedBy, &res.URL, &res.CreatedAt); err != nil {
			return nil, mapError("academics", "ListResources", err, nil, nil)
		}
		res.Type = academics.ResourceType(typ)
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("academics", "ListResources", err, nil, nil)
	}
	return out, nil
}

// CreateResource inserts an upload.
func (r *AcademicsRepository) CreateResource(ctx context.Context, res *academics.Resource) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO resources (id, title, type, size, uploaded_by, url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		res.ID, res.Title, string(res.Type), res.Size, res.UploadedBy, res.URL, res.CreatedAt)
	return mapError("academics", "CreateResource", err, nil, nil)
}

// ListAssignments returns assignments by due date; limit <= 0 means all.
func (r *AcademicsRepository) ListAssignments(ctx context.Context, limit int) ([]academics.Assignment, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := r.conn.Pool().Query(ctx, `
		SELECT id::text, title, course_code, due_date, type
		FROM assignments ORDER BY due_date, id
		LIMIT $1`, lim)
	if err != nil {
		return nil, mapError("academics", "ListAssignments", err, nil, nil)
	}
	defer rows.Close()

	out := make([]academics.Assignment, 0)
	for rows.Next() {
		var a academics.Assignment
		if err := rows.Scan(&a.ID, &a.Title, &a.CourseCode, &a.DueDate, &a.Type); err != nil {
			return nil, mapError("academics", "ListAssignments", err, nil, nil)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("academics", "ListAssignments", err, nil, nil)
	}
	return out, nil
}

// CreateAssignment inserts an assignment. Only fixtures write assignments.
func (r *AcademicsRepository) CreateAssignment(ctx context.Context, a academics.Assignment) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO assignments (id, title, course_code, due_date, type)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		a.ID, a.Title, a.CourseCode, a.DueDate, a.Type)
	return mapError("academics", "CreateAssignment", err, nil, nil)
}

var _ academics.Repository = (*AcademicsRepository)(nil)
