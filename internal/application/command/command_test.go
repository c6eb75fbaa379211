package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hub/aegis-portal/internal/domain/grievance"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
	"github.com/aegis-hub/aegis-portal/internal/domain/sos"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/persistence/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

var (
	student   = profile.Actor{ID: "u-student", Name: "Arjun Mehta", Email: "b22100@students.iitmandi.ac.in", Role: profile.RoleStudent}
	faculty   = profile.Actor{ID: "u-faculty", Name: "Dr. A. Sharma", Email: "prof@iitmandi.ac.in", Role: profile.RoleFaculty}
	authority = profile.Actor{ID: "u-authority", Name: "Dean", Email: "dean@iitmandi.ac.in", Role: profile.RoleAuthority}
	admin     = profile.Actor{ID: "u-admin", Name: "Chief Warden", Email: "admin@iitmandi.ac.in", Role: profile.RoleAdmin}
)

func fixedNow() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

func TestLogin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	h := NewLoginHandler(store.Profiles())

	first, err := h.Handle(ctx, LoginCommand{Role: "Faculty"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "Dr. A. Sharma", first.User.Name)
	assert.Equal(t, "prof@iitmandi.ac.in", first.User.Email)
	assert.Contains(t, first.Views, profile.ViewAcademics)

	again, err := h.Handle(ctx, LoginCommand{Role: "Faculty"})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.User.ID, again.User.ID)

	_, err = h.Handle(ctx, LoginCommand{Role: "Janitor"})
	assert.ErrorIs(t, err, shared.ErrUnknownRole)
}

func TestSubmitGrievance(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	h := NewSubmitGrievanceHandler(store.Grievances(), pub, []byte("anon-key"))
	h.now = fixedNow

	t.Run("named", func(t *testing.T) {
		g, err := h.Handle(ctx, SubmitGrievanceCommand{
			Actor: student, Title: "Broken tap", Description: "Hostel B2 washroom", Location: "B2",
		})
		require.NoError(t, err)
		assert.Equal(t, grievance.StatusSubmitted, g.Status)
		assert.Equal(t, student.ID, g.ReporterID)
		assert.Equal(t, "2026-03-10", g.Date)
	})

	t.Run("anonymous keeps only the token", func(t *testing.T) {
		g, err := h.Handle(ctx, SubmitGrievanceCommand{
			Actor: student, Title: "Ragging", Description: "Night of 9th", Anonymous: true,
		})
		require.NoError(t, err)
		assert.Empty(t, g.ReporterID)
		assert.Equal(t, grievance.ReporterToken([]byte("anon-key"), student.ID), g.ReporterToken)

		mine, err := store.Grievances().ListByReporter(ctx, student.ID, g.ReporterToken)
		require.NoError(t, err)
		assert.Len(t, mine, 2)
	})

	t.Run("title required", func(t *testing.T) {
		_, err := h.Handle(ctx, SubmitGrievanceCommand{Actor: student, Description: "x"})
		assert.True(t, shared.IsValidation(err))
	})

	assert.Equal(t, []shared.EventType{shared.EventGrievanceSubmitted, shared.EventGrievanceSubmitted}, pub.types())
}

func TestUpdateGrievanceStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	submit := NewSubmitGrievanceHandler(store.Grievances(), shared.NopPublisher{}, []byte("k"))
	g, err := submit.Handle(ctx, SubmitGrievanceCommand{Actor: student, Title: "Wifi", Description: "down"})
	require.NoError(t, err)

	h := NewUpdateGrievanceStatusHandler(store.Grievances(), pub)

	_, err = h.Handle(ctx, UpdateGrievanceStatusCommand{Actor: student, GrievanceID: g.ID, Status: "Resolved"})
	assert.ErrorIs(t, err, shared.ErrNotModerator)

	_, err = h.Handle(ctx, UpdateGrievanceStatusCommand{Actor: authority, GrievanceID: g.ID, Status: "Done"})
	assert.ErrorIs(t, err, shared.ErrInvalidStatus)

	res, err := h.Handle(ctx, UpdateGrievanceStatusCommand{Actor: authority, GrievanceID: g.ID, Status: "Resolved"})
	require.NoError(t, err)
	assert.Equal(t, grievance.StatusSubmitted, res.Previous)
	assert.Equal(t, grievance.StatusResolved, res.Status)

	// Authorities may move a grievance backwards.
	res, err = h.Handle(ctx, UpdateGrievanceStatusCommand{Actor: admin, GrievanceID: g.ID, Status: "Under Review"})
	require.NoError(t, err)
	assert.Equal(t, grievance.StatusResolved, res.Previous)

	_, err = h.Handle(ctx, UpdateGrievanceStatusCommand{Actor: admin, GrievanceID: "missing", Status: "Resolved"})
	assert.True(t, shared.IsNotFound(err))

	assert.Len(t, pub.types(), 2)
}

func TestUpvoteGrievance(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	submit := NewSubmitGrievanceHandler(store.Grievances(), shared.NopPublisher{}, []byte("k"))
	g, err := submit.Handle(ctx, SubmitGrievanceCommand{Actor: student, Title: "Mess food", Description: "cold"})
	require.NoError(t, err)

	h := NewUpvoteGrievanceHandler(store.Grievances())
	n, err := h.Handle(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = h.Handle(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUploadResource(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	h := NewUploadResourceHandler(store.Academics())

	_, err := h.Handle(ctx, UploadResourceCommand{Actor: student, Title: "Notes"})
	assert.ErrorIs(t, err, shared.ErrUploadForbidden)

	r, err := h.Handle(ctx, UploadResourceCommand{Actor: faculty, Title: "Lecture 4", Type: "PPT", SizeBytes: 2_500_000})
	require.NoError(t, err)
	assert.Equal(t, "Dr. A. Sharma", r.UploadedBy)
	assert.Equal(t, "2.5 MB", r.Size)
	assert.Equal(t, "#", r.URL)

	list, err := store.Academics().ListResources(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPublishAndApply(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := memory.NewCache()
	pub := &recordingPublisher{}
	require.NoError(t, cache.SetOpportunities(ctx, nil))

	publish := NewPublishOpportunityHandler(store.Opportunities(), cache, pub, nil)
	_, err := publish.Handle(ctx, PublishOpportunityCommand{Actor: student, Title: "x", Deadline: "2026-05-01"})
	assert.ErrorIs(t, err, shared.ErrPublishForbidden)

	o, err := publish.Handle(ctx, PublishOpportunityCommand{
		Actor: faculty, Title: "ML Research Intern", Type: "Research", Deadline: "2026-05-01", Tags: "ml, , python ",
	})
	require.NoError(t, err)
	assert.Equal(t, faculty.Name, o.Professor)
	assert.Equal(t, "Unpaid", o.Stipend)
	assert.Equal(t, []string{"ml", "python"}, o.Tags)

	cached, err := cache.GetOpportunities(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached, "publish must invalidate the listing cache")
	assert.Equal(t, []shared.EventType{shared.EventOpportunityPublished}, pub.types())

	apply := NewApplyOpportunityHandler(store.Opportunities())
	_, err = apply.Handle(ctx, ApplyOpportunityCommand{Actor: faculty, OpportunityID: o.ID})
	assert.ErrorIs(t, err, shared.ErrApplyForbidden)

	_, err = apply.Handle(ctx, ApplyOpportunityCommand{Actor: student, OpportunityID: o.ID})
	require.NoError(t, err)
	_, err = apply.Handle(ctx, ApplyOpportunityCommand{Actor: student, OpportunityID: o.ID})
	assert.True(t, shared.IsAlreadyExists(err))

	_, err = apply.Handle(ctx, ApplyOpportunityCommand{Actor: student, OpportunityID: "nope"})
	assert.True(t, shared.IsNotFound(err))
}

func TestAddLocation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := memory.NewCache()
	require.NoError(t, cache.SetLocations(ctx, nil))
	h := NewAddLocationHandler(store.Locations(), cache, shared.NopPublisher{}, nil)

	_, err := h.Handle(ctx, AddLocationCommand{Actor: faculty, Name: "Library", Lat: 31.78, Lng: 76.99})
	assert.ErrorIs(t, err, shared.ErrMapEditForbidden)

	_, err = h.Handle(ctx, AddLocationCommand{Actor: admin, Name: "Library", Lat: 91, Lng: 76.99})
	assert.ErrorIs(t, err, shared.ErrInvalidLatitude)

	loc, err := h.Handle(ctx, AddLocationCommand{Actor: admin, Name: " Library ", Type: "academic", Lat: 31.78, Lng: 76.99})
	require.NoError(t, err)
	assert.Equal(t, "Library", loc.Name)

	cached, err := cache.GetLocations(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestCommunity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := memory.NewCache()
	pub := &recordingPublisher{}

	require.NoError(t, store.Profiles().Create(ctx, &profile.User{ID: student.ID, Name: student.Name, Email: student.Email, Role: student.Role}))

	h := NewCommunityHandler(CommunityDeps{
		Posts:     store.Posts(),
		Bans:      store.Bans(),
		BanCache:  cache,
		Profiles:  store.Profiles(),
		Publisher: pub,
	})

	post, err := h.CreatePost(ctx, CreatePostCommand{Actor: student, Content: "  Lost my ID card  "})
	require.NoError(t, err)
	assert.Equal(t, "Lost my ID card", post.Content)
	assert.Equal(t, "Student", post.AuthorRole)

	_, err = h.CreatePost(ctx, CreatePostCommand{Actor: student, Title: "only title"})
	assert.True(t, shared.IsValidation(err))

	_, err = h.AddComment(ctx, AddCommentCommand{Actor: faculty, PostID: post.ID, Content: "   "})
	assert.ErrorIs(t, err, shared.ErrEmptyComment)

	c, err := h.AddComment(ctx, AddCommentCommand{Actor: faculty, PostID: post.ID, Content: "Check the lost and found"})
	require.NoError(t, err)

	likes, err := h.LikePost(ctx, faculty, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, likes)

	require.NoError(t, h.FlagPost(ctx, faculty, post.ID))

	t.Run("moderation requires a moderator", func(t *testing.T) {
		assert.ErrorIs(t, h.DeletePost(ctx, student, post.ID), shared.ErrModeratorOnly)
		assert.ErrorIs(t, h.DeleteComment(ctx, faculty, c.ID), shared.ErrModeratorOnly)
		_, err := h.BanAuthor(ctx, BanAuthorCommand{Actor: faculty, PostID: post.ID})
		assert.ErrorIs(t, err, shared.ErrModeratorOnly)
	})

	t.Run("ban author", func(t *testing.T) {
		// Warm the cache with "not banned" so the ban must invalidate it.
		_, err := bannedNow(ctx, h, student.Email)
		require.NoError(t, err)

		ban, err := h.BanAuthor(ctx, BanAuthorCommand{Actor: authority, PostID: post.ID})
		require.NoError(t, err)
		assert.Equal(t, "Violation of Citadel Protocols", ban.Reason)
		assert.Equal(t, student.Email, ban.Email)

		_, err = h.CreatePost(ctx, CreatePostCommand{Actor: student, Content: "hello?"})
		assert.ErrorIs(t, err, shared.ErrUserBanned)
		_, err = h.AddComment(ctx, AddCommentCommand{Actor: student, PostID: post.ID, Content: "hello?"})
		assert.ErrorIs(t, err, shared.ErrUserBanned)
		assert.ErrorIs(t, h.FlagPost(ctx, student, post.ID), shared.ErrUserBanned)

		_, err = h.BanAuthor(ctx, BanAuthorCommand{Actor: authority, PostID: post.ID})
		assert.True(t, shared.IsAlreadyExists(err))
	})

	t.Run("unknown author", func(t *testing.T) {
		orphan, err := h.CreatePost(ctx, CreatePostCommand{Actor: profile.Actor{ID: "ghost", Email: "ghost@x"}, Content: "boo"})
		require.NoError(t, err)
		_, err = h.BanAuthor(ctx, BanAuthorCommand{Actor: admin, PostID: orphan.ID})
		assert.ErrorIs(t, err, shared.ErrAuthorNotLocated)
	})

	t.Run("delete cascades comments", func(t *testing.T) {
		require.NoError(t, h.DeletePost(ctx, admin, post.ID))
		comments, err := store.Posts().ListComments(ctx, post.ID)
		require.NoError(t, err)
		assert.Empty(t, comments)
	})

	assert.Contains(t, pub.types(), shared.EventUserBanned)
	assert.Contains(t, pub.types(), shared.EventPostFlagged)
}

func bannedNow(ctx context.Context, h *CommunityHandler, email string) (bool, error) {
	s, err := h.lookup.Status(ctx, email)
	return s.Banned, err
}

func TestSOS(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	h := NewSOSHandler(store.Alerts(), pub, 2*time.Minute)
	now := fixedNow()
	h.now = func() time.Time { return now }

	_, err := h.Raise(ctx, RaiseSOSCommand{Actor: student, Lat: 120, Lng: 0})
	assert.ErrorIs(t, err, shared.ErrInvalidLatitude)

	alert, err := h.Raise(ctx, RaiseSOSCommand{Actor: student, Lat: 31.78, Lng: 76.99})
	require.NoError(t, err)
	assert.Equal(t, sos.StatusPending, alert.Status)

	_, err = h.Cancel(ctx, faculty, alert.ID)
	assert.ErrorIs(t, err, shared.ErrAlertNotOwned)

	cancelled, err := h.Cancel(ctx, student, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, sos.StatusCancelled, cancelled.Status)

	_, err = h.Cancel(ctx, student, alert.ID)
	assert.ErrorIs(t, err, shared.ErrAlertFinal)

	late, err := h.Raise(ctx, RaiseSOSCommand{Actor: student, Lat: 31.78, Lng: 76.99})
	require.NoError(t, err)
	now = now.Add(3 * time.Minute)
	_, err = h.Cancel(ctx, student, late.ID)
	assert.ErrorIs(t, err, shared.ErrCancelWindowClosed)

	assert.Equal(t, []shared.EventType{shared.EventSOSRaised, shared.EventSOSCancelled, shared.EventSOSRaised}, pub.types())
}
