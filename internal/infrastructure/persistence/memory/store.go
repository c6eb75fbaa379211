// Package memory provides in-process implementations of every repository
// and cache port. It backs DATABASE_DRIVER=memory for local runs and the
// application and HTTP tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/academics"
	"github.com/aegis-hub/aegis-portal/internal/domain/campus"
	"github.com/aegis-hub/aegis-portal/internal/domain/community"
	"github.com/aegis-hub/aegis-portal/internal/domain/dashboard"
	"github.com/aegis-hub/aegis-portal/internal/domain/grievance"
	"github.com/aegis-hub/aegis-portal/internal/domain/opportunity"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
	"github.com/aegis-hub/aegis-portal/internal/domain/sos"
)

// Store holds all portal data behind one lock.
type Store struct {
	mu sync.RWMutex

	profiles     map[string]*profile.User
	grievances   map[string]*grievance.Grievance
	courses      map[string]academics.Course
	resources    []academics.Resource
	assignments  []academics.Assignment
	opps         map[string]*opportunity.Opportunity
	applications map[string]*opportunity.Application // key: opportunity|user
	locations    map[string]campus.Location
	posts        map[string]*community.Post
	comments     map[string]*community.Comment
	bans         map[string]*community.Ban
	alerts       map[string]*sos.Alert
	components   map[string]dashboard.SystemComponent
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		profiles:     make(map[string]*profile.User),
		grievances:   make(map[string]*grievance.Grievance),
		courses:      make(map[string]academics.Course),
		opps:         make(map[string]*opportunity.Opportunity),
		applications: make(map[string]*opportunity.Application),
		locations:    make(map[string]campus.Location),
		posts:        make(map[string]*community.Post),
		comments:     make(map[string]*community.Comment),
		bans:         make(map[string]*community.Ban),
		alerts:       make(map[string]*sos.Alert),
		components:   make(map[string]dashboard.SystemComponent),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// ──────────────────────────────────────────────────────────────────────────────
// Profiles
// ──────────────────────────────────────────────────────────────────────────────

// Profiles returns the profile repository view of the store.
func (s *Store) Profiles() profile.Repository { return profileRepo{s} }

type profileRepo struct{ s *Store }

func (r profileRepo) GetByID(_ context.Context, id string) (*profile.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.profiles[id]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	cp := *u
	return &cp, nil
}

func (r profileRepo) FirstByRole(_ context.Context, role profile.Role) (*profile.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var first *profile.User
	for _, u := range r.s.profiles {
		if u.Role != role {
			continue
		}
		if first == nil || u.CreatedAt.Before(first.CreatedAt) {
			first = u
		}
	}
	if first == nil {
		return nil, shared.ErrProfileNotFound
	}
	cp := *first
	return &cp, nil
}

func (r profileRepo) Create(_ context.Context, u *profile.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.profiles[u.ID]; ok {
		return shared.NewDomainError("profile", "Create", shared.ErrAlreadyExists, "profile already exists")
	}
	cp := *u
	r.s.profiles[u.ID] = &cp
	return nil
}

func (r profileRepo) CountByRole(_ context.Context, role profile.Role) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, u := range r.s.profiles {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Grievances
// ──────────────────────────────────────────────────────────────────────────────

// Grievances returns the grievance repository view of the store.
func (s *Store) Grievances() grievance.Repository { return grievanceRepo{s} }

type grievanceRepo struct{ s *Store }

func (r grievanceRepo) Create(_ context.Context, g *grievance.Grievance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *g
	r.s.grievances[g.ID] = &cp
	return nil
}

func (r grievanceRepo) GetByID(_ context.Context, id string) (*grievance.Grievance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	g, ok := r.s.grievances[id]
	if !ok {
		return nil, shared.ErrGrievanceNotFound
	}
	cp := *g
	return &cp, nil
}

func (r grievanceRepo) sorted(keep func(*grievance.Grievance) bool) []*grievance.Grievance {
	out := make([]*grievance.Grievance, 0)
	for _, g := range r.s.grievances {
		if keep(g) {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r grievanceRepo) List(_ context.Context, f grievance.Filter) ([]*grievance.Grievance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.sorted(func(g *grievance.Grievance) bool { return f.Status == "" || g.Status == f.Status })
	return page(out, f.Pagination), nil
}

func (r grievanceRepo) ListByReporter(_ context.Context, reporterID, reporterToken string) ([]*grievance.Grievance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(g *grievance.Grievance) bool {
		return (reporterID != "" && g.ReporterID == reporterID) ||
			(reporterToken != "" && g.ReporterToken == reporterToken)
	}), nil
}

func (r grievanceRepo) UpdateStatus(_ context.Context, id string, status grievance.Status, at time.Time) (grievance.Status, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.grievances[id]
	if !ok {
		return "", shared.ErrGrievanceNotFound
	}
	prev := g.Status
	if err := g.SetStatus(status, at); err != nil {
		return "", err
	}
	return prev, nil
}

func (r grievanceRepo) IncrementVotes(_ context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.grievances[id]
	if !ok {
		return 0, shared.ErrGrievanceNotFound
	}
	g.Votes++
	return g.Votes, nil
}

func (r grievanceRepo) CountByStatus(context.Context) (map[grievance.Status]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[grievance.Status]int)
	for _, g := range r.s.grievances {
		out[g.Status]++
	}
	return out, nil
}

func (r grievanceRepo) ListCreatedSince(_ context.Context, since time.Time) ([]*grievance.Grievance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(g *grievance.Grievance) bool { return !g.CreatedAt.Before(since) }), nil
}

func page[T any](items []T, p shared.Pagination) []T {
	off := p.Offset()
	if off >= len(items) {
		return items[:0]
	}
	end := off + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[off:end]
}

// ──────────────────────────────────────────────────────────────────────────────
// Academics
// ──────────────────────────────────────────────────────────────────────────────

// Academics returns the academics repository view of the store.
func (s *Store) Academics() academics.Repository { return academicsRepo{s} }

type academicsRepo struct{ s *Store }

func (r academicsRepo) ListCourses(context.Context) ([]academics.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]academics.Course, 0, len(r.s.courses))
	for _, c := range r.s.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r academicsRepo) UpsertCourse(_ context.Context, c academics.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.courses[c.ID] = c
	return nil
}

func (r academicsRepo) ListResources(context.Context) ([]academics.Resource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]academics.Resource, len(r.s.resources))
	copy(out, r.s.resources)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r academicsRepo) CreateResource(_ context.Context, res *academics.Resource) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.resources = append(r.s.resources, *res)
	return nil
}

func (r academicsRepo) ListAssignments(_ context.Context, limit int) ([]academics.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if limit <= 0 {
		limit = -1
	}
	return academics.Upcoming(r.s.assignments, limit), nil
}

// AddAssignment stores an assignment. There is no write path for
// assignments in the API; fixtures and tests use this.
func (s *Store) AddAssignment(a academics.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, a)
}

// CreateAssignment stores a, ignoring ids already present.
func (s *Store) CreateAssignment(_ context.Context, a academics.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.assignments {
		if existing.ID == a.ID {
			return nil
		}
	}
	s.assignments = append(s.assignments, a)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Opportunities
// ──────────────────────────────────────────────────────────────────────────────

// Opportunities returns the opportunity repository view of the store.
func (s *Store) Opportunities() opportunity.Repository { return oppRepo{s} }

type oppRepo struct{ s *Store }

func (r oppRepo) List(context.Context) ([]*opportunity.Opportunity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*opportunity.Opportunity, 0, len(r.s.opps))
	for _, o := range r.s.opps {
		cp := *o
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Deadline < out[j].Deadline })
	return out, nil
}

func (r oppRepo) GetByID(_ context.Context, id string) (*opportunity.Opportunity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.opps[id]
	if !ok {
		return nil, shared.ErrOpportunityNotFound
	}
	cp := *o
	return &cp, nil
}

func (r oppRepo) Create(_ context.Context, o *opportunity.Opportunity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *o
	r.s.opps[o.ID] = &cp
	return nil
}

func (r oppRepo) CreateApplication(_ context.Context, a *opportunity.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := a.OpportunityID + "|" + a.UserID
	if _, ok := r.s.applications[key]; ok {
		return shared.ErrAlreadyApplied
	}
	cp := *a
	r.s.applications[key] = &cp
	return nil
}

func (r oppRepo) AppliedIDs(_ context.Context, userID string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]string, 0)
	for _, a := range r.s.applications {
		if a.UserID == userID {
			out = append(out, a.OpportunityID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Campus
// ──────────────────────────────────────────────────────────────────────────────

// Locations returns the campus repository view of the store.
func (s *Store) Locations() campus.Repository { return locationRepo{s} }

type locationRepo struct{ s *Store }

func (r locationRepo) List(context.Context) ([]campus.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]campus.Location, 0, len(r.s.locations))
	for _, l := range r.s.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r locationRepo) Upsert(_ context.Context, l campus.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.locations[l.ID] = l
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Community
// ──────────────────────────────────────────────────────────────────────────────

// Posts returns the post repository view of the store.
func (s *Store) Posts() community.PostRepository { return postRepo{s} }

type postRepo struct{ s *Store }

func (r postRepo) ListPosts(_ context.Context, p shared.Pagination) ([]*community.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*community.Post, 0, len(r.s.posts))
	for _, post := range r.s.posts {
		cp := *post
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, p), nil
}

func (r postRepo) GetPost(_ context.Context, id string) (*community.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	post, ok := r.s.posts[id]
	if !ok {
		return nil, shared.ErrPostNotFound
	}
	cp := *post
	return &cp, nil
}

func (r postRepo) CreatePost(_ context.Context, p *community.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	r.s.posts[p.ID] = &cp
	return nil
}

func (r postRepo) DeletePost(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return shared.ErrPostNotFound
	}
	delete(r.s.posts, id)
	for cid, c := range r.s.comments {
		if c.PostID == id {
			delete(r.s.comments, cid)
		}
	}
	return nil
}

func (r postRepo) FlagPost(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	post, ok := r.s.posts[id]
	if !ok {
		return shared.ErrPostNotFound
	}
	post.IsFlagged = true
	return nil
}

func (r postRepo) LikePost(_ context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	post, ok := r.s.posts[id]
	if !ok {
		return 0, shared.ErrPostNotFound
	}
	post.Likes++
	return post.Likes, nil
}

func (r postRepo) ListComments(_ context.Context, postID string) ([]*community.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*community.Comment, 0)
	for _, c := range r.s.comments {
		if c.PostID == postID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r postRepo) CreateComment(_ context.Context, c *community.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[c.PostID]; !ok {
		return shared.ErrPostNotFound
	}
	cp := *c
	r.s.comments[c.ID] = &cp
	return nil
}

func (r postRepo) DeleteComment(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[id]; !ok {
		return shared.ErrCommentNotFound
	}
	delete(r.s.comments, id)
	return nil
}

// Bans returns the ban repository view of the store.
func (s *Store) Bans() community.BanRepository { return banRepo{s} }

type banRepo struct{ s *Store }

func (r banRepo) GetBan(_ context.Context, email string) (*community.Ban, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bans[community.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r banRepo) CreateBan(_ context.Context, b *community.Ban) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bans[b.Email]; ok {
		return shared.ErrAlreadyBanned
	}
	cp := *b
	r.s.bans[b.Email] = &cp
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// SOS
// ──────────────────────────────────────────────────────────────────────────────

// Alerts returns the SOS repository view of the store.
func (s *Store) Alerts() sos.Repository { return alertRepo{s} }

type alertRepo struct{ s *Store }

func (r alertRepo) Create(_ context.Context, a *sos.Alert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *a
	r.s.alerts[a.ID] = &cp
	return nil
}

func (r alertRepo) GetByID(_ context.Context, id string) (*sos.Alert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.alerts[id]
	if !ok {
		return nil, shared.ErrAlertNotFound
	}
	cp := *a
	return &cp, nil
}

func (r alertRepo) TransitionStatus(_ context.Context, id string, status sos.Status, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.alerts[id]
	if !ok {
		return shared.ErrAlertNotFound
	}
	if !a.Status.CanMoveTo(status) {
		return shared.ErrAlertStateChanged
	}
	a.Status = status
	a.UpdatedAt = at
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// System status
// ──────────────────────────────────────────────────────────────────────────────

// Status returns the system status repository view of the store.
func (s *Store) Status() dashboard.StatusRepository { return statusRepo{s} }

type statusRepo struct{ s *Store }

func (r statusRepo) ListComponents(context.Context) ([]dashboard.SystemComponent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]dashboard.SystemComponent, 0, len(r.s.components))
	for _, c := range r.s.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r statusRepo) UpsertComponent(_ context.Context, c dashboard.SystemComponent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.components[c.ID] = c
	return nil
}
