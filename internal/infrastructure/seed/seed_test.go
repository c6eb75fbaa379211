package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hub/aegis-portal/internal/infrastructure/persistence/memory"
)

func memoryTargets(s *memory.Store) Targets {
	return Targets{
		Locations:   s.Locations(),
		Status:      s.Status(),
		Academics:   s.Academics(),
		Assignments: s,
	}
}

func TestDefault_Parses(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)
	assert.NotEmpty(t, f.Locations)
	assert.NotEmpty(t, f.Components)
	assert.NotEmpty(t, f.Courses)
	assert.NotEmpty(t, f.Assignments)
}

func TestApply_WritesEverySection(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	f, err := Default()
	require.NoError(t, err)

	res, err := NewLoader(memoryTargets(store), nil).Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, len(f.Locations), res.Locations)
	assert.Equal(t, len(f.Components), res.Components)
	assert.Equal(t, len(f.Courses), res.Courses)
	assert.Equal(t, len(f.Assignments), res.Assignments)

	locs, _ := store.Locations().List(ctx)
	assert.Len(t, locs, len(f.Locations))

	courses, _ := store.Academics().ListCourses(ctx)
	require.NotEmpty(t, courses)
	assert.Equal(t, "CS-304", courses[0].Code)

	assignments, _ := store.Academics().ListAssignments(ctx, 0)
	require.Len(t, assignments, len(f.Assignments))
	assert.Equal(t, "2026-11-04", assignments[0].DueDate.Format("2006-01-02"))
}

func TestApply_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	f, err := Default()
	require.NoError(t, err)
	loader := NewLoader(memoryTargets(store), nil)

	_, err = loader.Apply(ctx, f)
	require.NoError(t, err)
	_, err = loader.Apply(ctx, f)
	require.NoError(t, err)

	locs, _ := store.Locations().List(ctx)
	assert.Len(t, locs, len(f.Locations))
	courses, _ := store.Academics().ListCourses(ctx)
	assert.Len(t, courses, len(f.Courses))
	assignments, _ := store.Academics().ListAssignments(ctx, 0)
	assert.Len(t, assignments, len(f.Assignments))
}

func TestApply_ValidatesBeforeWriting(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	f, err := Parse([]byte(`
locations:
  - name: Library
    lat: 31.7
    lng: 76.9
courses:
  - code: cs-101
    name: Intro
    credits: 0
`))
	require.NoError(t, err)

	_, err = NewLoader(memoryTargets(store), nil).Apply(ctx, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CS-101")

	locs, _ := store.Locations().List(ctx)
	assert.Empty(t, locs)
}

func TestApply_RejectsBadCoordinates(t *testing.T) {
	f, err := Parse([]byte(`
locations:
  - name: Nowhere
    lat: 120
    lng: 0
`))
	require.NoError(t, err)

	_, err = NewLoader(Targets{}, nil).Apply(context.Background(), f)
	assert.Error(t, err)
}

func TestApply_RejectsUnknownComponentStatus(t *testing.T) {
	f, err := Parse([]byte(`
components:
  - id: db
    name: Database
    status: Sleepy
    health: 50
`))
	require.NoError(t, err)

	_, err = NewLoader(Targets{}, nil).Apply(context.Background(), f)
	assert.Error(t, err)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("locatoins: []\n"))
	assert.Error(t, err)
}

func TestParse_EmptyDocument(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, f.Locations)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
assignments:
  - title: Lab 1
    course: cs-101
    due: "2026-01-15"
    type: Lab
`), 0o600))

	f, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, f.Assignments, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
