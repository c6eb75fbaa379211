package academics

import "context"

// Repository is the academics store. Implementations live in
// infrastructure/persistence.
type Repository interface {
	ListCourses(ctx context.Context) ([]Course, error)
	UpsertCourse(ctx context.Context, c Course) error

	ListResources(ctx context.Context) ([]Resource, error)
	// CreateResource stores a new upload.
	CreateResource(ctx context.Context, r *Resource) error

	// ListAssignments returns assignments ordered by due date ascending.
	ListAssignments(ctx context.Context, limit int) ([]Assignment, error)
}
