package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hub/aegis-portal/internal/domain/academics"
	"github.com/aegis-hub/aegis-portal/internal/domain/campus"
	"github.com/aegis-hub/aegis-portal/internal/domain/community"
	"github.com/aegis-hub/aegis-portal/internal/domain/dashboard"
	"github.com/aegis-hub/aegis-portal/internal/domain/grievance"
	"github.com/aegis-hub/aegis-portal/internal/domain/opportunity"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/persistence/memory"
)

var (
	student = profile.Actor{ID: "u-student", Name: "Arjun Mehta", Email: "b22100@students.iitmandi.ac.in", Role: profile.RoleStudent}
	faculty = profile.Actor{ID: "u-faculty", Name: "Dr. A. Sharma", Email: "prof@iitmandi.ac.in", Role: profile.RoleFaculty}
)

func mustGrievance(t *testing.T, repo grievance.Repository, p grievance.SubmitParams) *grievance.Grievance {
	t.Helper()
	if p.Title == "" {
		p.Title = "title"
	}
	if p.Description == "" {
		p.Description = "description"
	}
	g, err := grievance.New(p)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), g))
	return g
}

func TestGetDashboard(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := memory.NewCache()
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC) // Tue 11:30 IST

	repo := store.Grievances()
	mustGrievance(t, repo, grievance.SubmitParams{Now: now.Add(-time.Hour)})
	resolved := mustGrievance(t, repo, grievance.SubmitParams{Now: now.Add(-24 * time.Hour)})
	_, err := repo.UpdateStatus(ctx, resolved.ID, grievance.StatusResolved, now)
	require.NoError(t, err)
	mustGrievance(t, repo, grievance.SubmitParams{Now: now.Add(-30 * 24 * time.Hour)})

	require.NoError(t, store.Profiles().Create(ctx, &profile.User{ID: "s1", Role: profile.RoleStudent}))
	require.NoError(t, store.Profiles().Create(ctx, &profile.User{ID: "f1", Role: profile.RoleFaculty}))
	require.NoError(t, store.Status().UpsertComponent(ctx, dashboard.SystemComponent{ID: "db", Name: "Database", Status: dashboard.ComponentOperational, Health: 100}))

	h := NewGetDashboardHandler(repo, store.Profiles(), store.Status(), cache, nil)
	h.now = func() time.Time { return now }

	res, err := h.Handle(ctx, GetDashboardQuery{})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, dashboard.Stats{ActiveGrievances: 2, ResolvedGrievances: 1, Students: 1}, res.Stats)
	assert.Len(t, res.Systems, 1)
	require.Len(t, res.Activity, dashboard.ChartDays)
	assert.Equal(t, "Tue", res.Activity[6].Name)
	assert.Equal(t, 1, res.Activity[6].Submissions)
	assert.Equal(t, 1, res.Activity[5].Resolved)

	_, err = h.Refresh(ctx)
	require.NoError(t, err)
	res, err = h.Handle(ctx, GetDashboardQuery{})
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	res, err = h.Handle(ctx, GetDashboardQuery{SkipCache: true})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
}

type failingStatus struct{}

func (failingStatus) ListComponents(context.Context) ([]dashboard.SystemComponent, error) {
	return nil, errors.New("connection refused")
}
func (failingStatus) UpsertComponent(context.Context, dashboard.SystemComponent) error { return nil }

func TestGetDashboard_PropagatesErrors(t *testing.T) {
	store := memory.NewStore()
	h := NewGetDashboardHandler(store.Grievances(), store.Profiles(), failingStatus{}, nil, nil)

	_, err := h.Handle(context.Background(), GetDashboardQuery{})
	require.Error(t, err)
	assert.True(t, shared.IsExternalService(err))
}

func TestListGrievances(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := store.Grievances()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	older := mustGrievance(t, repo, grievance.SubmitParams{Title: "older", Now: base})
	newer := mustGrievance(t, repo, grievance.SubmitParams{Title: "newer", Now: base.Add(time.Hour)})
	_, err := repo.UpdateStatus(ctx, older.ID, grievance.StatusInProgress, base)
	require.NoError(t, err)

	h := NewGrievancesHandler(repo, []byte("k"))

	all, err := h.List(ctx, ListGrievancesQuery{Status: "All"})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	assert.Equal(t, newer.ID, all.Items[0].ID)
	assert.Equal(t, "All", all.Status)

	inProgress, err := h.List(ctx, ListGrievancesQuery{Status: "In Progress"})
	require.NoError(t, err)
	require.Len(t, inProgress.Items, 1)
	assert.Equal(t, older.ID, inProgress.Items[0].ID)

	_, err = h.List(ctx, ListGrievancesQuery{Status: "Closed"})
	assert.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestMyGrievances(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := store.Grievances()
	key := []byte("anon")

	mustGrievance(t, repo, grievance.SubmitParams{ReporterID: student.ID})
	mustGrievance(t, repo, grievance.SubmitParams{ReporterID: student.ID, Anonymous: true, AnonymityKey: key})
	mustGrievance(t, repo, grievance.SubmitParams{ReporterID: "someone-else"})

	mine, err := NewGrievancesHandler(repo, key).Mine(ctx, student)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	// A different key cannot link anonymous grievances back.
	mine, err = NewGrievancesHandler(repo, []byte("other")).Mine(ctx, student)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestAcademicsOverview(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := store.Academics()
	require.NoError(t, repo.UpsertCourse(ctx, academics.Course{ID: "c1", Code: "CS101", Credits: 4, Attended: 20, TotalClasses: 24}))
	require.NoError(t, repo.UpsertCourse(ctx, academics.Course{ID: "c2", Code: "MA101", Credits: 4}))
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"d", "a", "c", "b"} {
		offset := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4}[title]
		store.AddAssignment(academics.Assignment{ID: string(rune('0' + i)), Title: title, DueDate: base.AddDate(0, 0, offset)})
	}

	cgpa := 8.0
	require.NoError(t, store.Profiles().Create(ctx, &profile.User{ID: student.ID, Role: profile.RoleStudent, CGPA: &cgpa}))

	h := NewAcademicsHandler(repo, store.Profiles(), DefaultAcademicsDefaults(), nil)

	out, err := h.Overview(ctx, student)
	require.NoError(t, err)
	require.Len(t, out.Courses, 2)
	assert.Equal(t, 83, out.Courses[0].AttendancePercent)
	assert.Equal(t, academics.BandGood, out.Courses[0].AttendanceBand)
	assert.Equal(t, academics.BandNone, out.Courses[1].AttendanceBand)
	require.Len(t, out.Upcoming, 3)
	assert.Equal(t, "a", out.Upcoming[0].Title)
	assert.Equal(t, "c", out.Upcoming[2].Title)
	require.NotNil(t, out.Projection)
	assert.Equal(t, 8.0, out.Projection.CurrentAverage)
	assert.Equal(t, 8.5, out.Projection.TargetAverage)

	t.Run("no CGPA on file uses fallbacks", func(t *testing.T) {
		out, err := h.Overview(ctx, profile.Actor{ID: "new-student", Role: profile.RoleStudent})
		require.NoError(t, err)
		require.NotNil(t, out.Projection)
		assert.Equal(t, 7.0, out.Projection.CurrentAverage)
		assert.Equal(t, 8.5, out.Projection.TargetAverage)
		assert.Equal(t, 85, out.Projection.CreditsCompleted)
		assert.Equal(t, 20, out.Projection.CreditsPlanned)
	})

	t.Run("faculty get no projection", func(t *testing.T) {
		out, err := h.Overview(ctx, faculty)
		require.NoError(t, err)
		assert.Nil(t, out.Projection)
	})
}

func TestProjectionQuery(t *testing.T) {
	h := NewAcademicsHandler(nil, nil, DefaultAcademicsDefaults(), nil)

	res := h.Projection(ProjectionQuery{CurrentAverage: 7.0, CreditsCompleted: 85, CreditsPlanned: 20, TargetAverage: 7.5})
	assert.InDelta(t, 9.625, res.RequiredTermAverage, 1e-9)
	assert.True(t, res.Achievable)
	assert.Equal(t, academics.OutlookEffortNeeded, res.Outlook)
	assert.Equal(t, academics.OutlookEffortNeeded.Message(), res.Message)

	res = h.Projection(ProjectionQuery{CurrentAverage: 7.0, CreditsCompleted: -5, CreditsPlanned: 0, TargetAverage: 8.0})
	assert.Equal(t, 0, res.CreditsCompleted)
	assert.Equal(t, 1, res.CreditsPlanned)
	assert.InDelta(t, 8.0, res.RequiredTermAverage, 1e-9)
}

func TestListOpportunities(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := memory.NewCache()
	repo := store.Opportunities()

	late, err := opportunity.New(opportunity.PublishParams{Title: "late", Deadline: "2026-06-01"})
	require.NoError(t, err)
	early, err := opportunity.New(opportunity.PublishParams{Title: "early", Deadline: "2026-04-01"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, late))
	require.NoError(t, repo.Create(ctx, early))
	require.NoError(t, repo.CreateApplication(ctx, &opportunity.Application{ID: "a1", OpportunityID: late.ID, UserID: student.ID}))

	h := NewOpportunitiesHandler(repo, cache, nil)

	res, err := h.List(ctx, student)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "early", res.Items[0].Title)
	assert.Equal(t, []string{late.ID}, res.AppliedIDs)

	cached, err := cache.GetOpportunities(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	// Served from cache: a repo write without invalidation is not visible.
	extra, err := opportunity.New(opportunity.PublishParams{Title: "extra", Deadline: "2026-05-01"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, extra))
	res, err = h.List(ctx, faculty)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Empty(t, res.AppliedIDs)
}

func TestCampusMap(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := memory.NewCache()
	h := NewCampusMapHandler(store.Locations(), cache, nil)

	m, err := h.Handle(ctx)
	require.NoError(t, err)
	assert.Equal(t, [2]float64{campus.CenterLat, campus.CenterLng}, m.Center)
	assert.Equal(t, campus.DefaultZoom, m.Zoom)
	assert.Empty(t, m.Locations)

	require.NoError(t, store.Locations().Upsert(ctx, campus.Location{ID: "l1", Name: "Library"}))
	m, err = h.Handle(ctx)
	require.NoError(t, err)
	assert.Empty(t, m.Locations, "empty listing is cached too")

	require.NoError(t, cache.InvalidateLocations(ctx))
	m, err = h.Handle(ctx)
	require.NoError(t, err)
	assert.Len(t, m.Locations, 1)
}

func TestCommunityQueries(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	posts := store.Posts()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	author := community.Author{ID: student.ID, Name: student.Name}

	p1, err := community.NewPost(author, "", "first", base)
	require.NoError(t, err)
	p2, err := community.NewPost(author, "", "second", base.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, posts.CreatePost(ctx, p1))
	require.NoError(t, posts.CreatePost(ctx, p2))

	c2, err := community.NewComment(p1.ID, author, "later", base.Add(2*time.Minute))
	require.NoError(t, err)
	c1, err := community.NewComment(p1.ID, author, "earlier", base.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, posts.CreateComment(ctx, c2))
	require.NoError(t, posts.CreateComment(ctx, c1))

	h := NewCommunityHandler(posts, store.Bans(), memory.NewCache())

	list, err := h.ListPosts(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, p2.ID, list[0].ID)

	comments, err := h.ListComments(ctx, p1.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "earlier", comments[0].Content)

	_, err = h.ListComments(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrPostNotFound)

	status, err := h.BanStatus(ctx, student)
	require.NoError(t, err)
	assert.False(t, status.Banned)

	require.NoError(t, store.Bans().CreateBan(ctx, &community.Ban{Email: "x@y.z", Reason: "spam"}))
	status, err = h.BanStatus(ctx, profile.Actor{Email: "X@Y.Z "})
	require.NoError(t, err)
	assert.Equal(t, community.BanStatus{Banned: true, Reason: "spam"}, status)
}
