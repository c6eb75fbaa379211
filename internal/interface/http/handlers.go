package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/application/command"
	"github.com/aegis-hub/aegis-portal/internal/application/query"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Aegis Campus Portal API",
		"version":     s.config.Version,
		"api_version": APIVersion,
		"uptime":      s.Uptime().Truncate(time.Second).String(),
		"endpoints": map[string]string{
			"health":        "/health",
			"login":         "/api/v1/auth/login",
			"dashboard":     "/api/v1/dashboard",
			"grievances":    "/api/v1/grievances",
			"academics":     "/api/v1/academics",
			"opportunities": "/api/v1/opportunities",
			"locations":     "/api/v1/locations",
			"posts":         "/api/v1/posts",
			"sos":           "/api/v1/sos",
		},
	}

	writeJSON(w, r, http.StatusOK, info)
}

// handleHealth handles the health check endpoint. Optional components
// failing degrade the report but keep the status at 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// loginResponse is the session returned by the login stub.
type loginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *profile.User  `json:"user"`
	Views     []profile.View `json:"views"`
	Created   bool           `json:"created"`
}

// handleLogin handles POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badRequest(w, r, err)
		return
	}

	result, err := s.deps.Login.Handle(r.Context(), command.LoginCommand{Role: req.Role})
	if err != nil {
		s.fail(w, r, "Login", err)
		return
	}

	token, expires, err := s.deps.Tokens.Issue(result.User)
	if err != nil {
		s.fail(w, r, "Login", err)
		return
	}

	logger.FromContext(r.Context()).Info("signed in",
		logger.UserID(result.User.ID),
		logger.Role(string(result.User.Role)),
		logger.Any("created", result.Created),
	)

	writeJSON(w, r, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expires,
		User:      result.User,
		Views:     result.Views,
		Created:   result.Created,
	})
}

// handleMe handles GET /api/v1/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	user, err := s.deps.Profiles.GetByID(r.Context(), actor.ID)
	if err != nil {
		s.fail(w, r, "Me", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"user":  user,
		"views": actor.Role.Views(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleDashboard handles GET /api/v1/dashboard?fresh=true
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, _ profile.Actor) {
	fresh, _ := strconv.ParseBool(r.URL.Query().Get("fresh"))

	result, err := s.deps.Dashboard.Handle(r.Context(), query.GetDashboardQuery{SkipCache: fresh})
	if err != nil {
		s.fail(w, r, "GetDashboard", err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// GRIEVANCE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListGrievances handles GET /api/v1/grievances?status=&page=&page_size=
func (s *Server) handleListGrievances(w http.ResponseWriter, r *http.Request, _ profile.Actor) {
	page, size := pageParams(r)
	result, err := s.deps.Grievances.List(r.Context(), query.ListGrievancesQuery{
		Status:   r.URL.Query().Get("status"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		s.fail(w, r, "ListGrievances", err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{Page: result.Page, PageSize: size})
}

// handleSubmitGrievance handles POST /api/v1/grievances
func (s *Server) handleSubmitGrievance(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	var req submitGrievanceRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badRequest(w, r, err)
		return
	}

	g, err := s.deps.SubmitGrievance.Handle(r.Context(), command.SubmitGrievanceCommand{
		Actor:       actor,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Location:    req.Location,
		Anonymous:   req.Anonymous,
	})
	if err != nil {
		s.fail(w, r, "SubmitGrievance", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, g)
}

// handleMyGrievances handles GET /api/v1/grievances/mine
func (s *Server) handleMyGrievances(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	items, err := s.deps.Grievances.Mine(r.Context(), actor)
	if err != nil {
		s.fail(w, r, "MyGrievances", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

// handleUpdateGrievanceStatus handles PATCH /api/v1/grievances/{id}/status
func (s *Server) handleUpdateGrievanceStatus(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	id, ok := s.pathID(w, r, "grievance")
	if !ok {
		return
	}

	var req updateGrievanceStatusRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badRequest(w, r, err)
		return
	}

	result, err := s.deps.UpdateGrievanceStatus.Handle(r.Context(), command.UpdateGrievanceStatusCommand{
		Actor:       actor,
		GrievanceID: id,
		Status:      req.Status,
	})
	if err != nil {
		s.fail(w, r, "UpdateGrievanceStatus", err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleUpvoteGrievance handles POST /api/v1/grievances/{id}/votes
func (s *Server) handleUpvoteGrievance(w http.ResponseWriter, r *http.Request, _ profile.Actor) {
	id, ok := s.pathID(w, r, "grievance")
	if !ok {
		return
	}
	votes, err := s.deps.UpvoteGrievance.Handle(r.Context(), id)
	if err != nil {
		s.fail(w, r, "UpvoteGrievance", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{"id": id, "upvotes": votes})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACADEMICS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleAcademics handles GET /api/v1/academics
func (s *Server) handleAcademics(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	overview, err := s.deps.Academics.Overview(r.Context(), actor)
	if err != nil {
		s.fail(w, r, "AcademicsOverview", err)
		return
	}
	writeJSON(w, r, http.StatusOK, overview)
}

// handleProjection handles
// GET /api/v1/academics/projection?current=&credits_completed=&credits_planned=&target=
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request, _ profile.Actor) {
	var req projectionRequest
	if err := decodeQuery(r, &req); err != nil {
		badRequest(w, r, err)
		return
	}

	result := s.deps.Academics.Projection(query.ProjectionQuery{
		CurrentAverage:   *req.CurrentAverage,
		CreditsCompleted: *req.CreditsCompleted,
		CreditsPlanned:   *req.CreditsPlanned,
		TargetAverage:    *req.TargetAverage,
	})
	writeJSON(w, r, http.StatusOK, result)
}

// handleUploadResource handles POST /api/v1/academics/resources
func (s *Server) handleUploadResource(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	var req uploadResourceRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badRequest(w, r, err)
		return
	}

	res, err := s.deps.UploadResource.Handle(r.Context(), command.UploadResourceCommand{
		Actor:     actor,
		Title:     req.Title,
		Type:      req.Type,
		SizeBytes: req.SizeBytes,
		URL:       req.URL,
	})
	if err != nil {
		s.fail(w, r, "UploadResource", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// OPPORTUNITY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListOpportunities handles GET /api/v1/opportunities
func (s *Server) handleListOpportunities(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	result, err := s.deps.Opportunities.List(r.Context(), actor)
	if err != nil {
		s.fail(w, r, "ListOpportunities", err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handlePublishOpportunity handles POST /api/v1/opportunities
func (s *Server) handlePublishOpportunity(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	var req publishOpportunityRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badRequest(w, r, err)
		return
	}

	opp, err := s.deps.PublishOpportunity.Handle(r.Context(), command.PublishOpportunityCommand{
		Actor:    actor,
		Title:    req.Title,
		Type:     req.Type,
		Deadline: req.Deadline,
		Stipend:  req.Stipend,
		Tags:     req.Tags,
	})
	if err != nil {
		s.fail(w, r, "PublishOpportunity", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, opp)
}

// handleApplyOpportunity handles POST /api/v1/opportunities/{id}/applications
func (s *Server) handleApplyOpportunity(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	id, ok := s.pathID(w, r, "opportunity")
	if !ok {
		return
	}

	app, err := s.deps.ApplyOpportunity.Handle(r.Context(), command.ApplyOpportunityCommand{
		Actor:         actor,
		OpportunityID: id,
	})
	if err != nil {
		s.fail(w, r, "ApplyOpportunity", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, app)
}

// ══════════════════════════════════════════════════════════════════════════════
// CAMPUS MAP HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCampusMap handles GET /api/v1/locations
func (s *Server) handleCampusMap(w http.ResponseWriter, r *http.Request, _ profile.Actor) {
	m, err := s.deps.CampusMap.Handle(r.Context())
	if err != nil {
		s.fail(w, r, "CampusMap", err)
		return
	}
	writeJSON(w, r, http.StatusOK, m)
}

// handleAddLocation handles POST /api/v1/locations
func (s *Server) handleAddLocation(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	var req addLocationRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badRequest(w, r, err)
		return
	}

	loc, err := s.deps.AddLocation.Handle(r.Context(), command.AddLocationCommand{
		Actor:       actor,
		Name:        req.Name,
		Type:        req.Type,
		Lat:         *req.Lat,
		Lng:         *req.Lng,
		Description: req.Description,
	})
	if err != nil {
		s.fail(w, r, "AddLocation", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, loc)
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMUNITY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListPosts handles GET /api/v1/posts?page=&page_size=
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request, _ profile.Actor) {
	page, size := pageParams(r)
	posts, err := s.deps.CommunityQuery.ListPosts(r.Context(), page, size)
	if err != nil {
		s.fail(w, r, "ListPosts", err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, posts, &ResponseMeta{Page: page, PageSize: size})
}

// handleCreatePost handles POST /api/v1/posts
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	var req createPostRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badRequest(w, r, err)
		return
	}

	post, err := s.deps.Community.CreatePost(r.Context(), command.CreatePostCommand{
		Actor:   actor,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		s.fail(w, r, "CreatePost", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, post)
}

// handleDeletePost handles DELETE /api/v1/posts/{id}
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	id, ok := s.pathID(w, r, "community")
	if !ok {
		return
	}
	if err := s.deps.Community.DeletePost(r.Context(), actor, id); err != nil {
		s.fail(w, r, "DeletePost", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// handleFlagPost handles POST /api/v1/posts/{id}/flag
func (s *Server) handleFlagPost(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	id, ok := s.pathID(w, r, "community")
	if !ok {
		return
	}
	if err := s.deps.Community.FlagPost(r.Context(), actor, id); err != nil {
		s.fail(w, r, "FlagPost", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{"id": id, "flagged": true})
}

// handleLikePost handles POST /api/v1/posts/{id}/like
func (s *Server) handleLikePost(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	id, ok := s.pathID(w, r, "community")
	if !ok {
		return
	}
	likes, err := s.deps.Community.LikePost(r.Context(), actor, id)
	if err != nil {
		s.fail(w, r, "LikePost", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{"id": id, "likes": likes})
}

// handleBanAuthor handles POST /api/v1/posts/{id}/ban-author
func (s *Server) handleBanAuthor(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	id, ok := s.pathID(w, r, "community")
	if !ok {
		return
	}

	var req banAuthorRequest
	if err := decodeJSON(r, &req, true); err != nil {
		badRequest(w, r, err)
		return
	}

	ban, err := s.deps.Community.BanAuthor(r.Context(), command.BanAuthorCommand{
		Actor:  actor,
		PostID: id,
		Reason: req.Reason,
	})
	if err != nil {
		s.fail(w, r, "BanAuthor", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, ban)
}

// handleListComments handles GET /api/v1/posts/{id}/comments
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request, _ profile.Actor) {
	id, ok := s.pathID(w, r, "community")
	if !ok {
		return
	}

	comments, err := s.deps.CommunityQuery.ListComments(r.Context(), id)
	if err != nil {
		s.fail(w, r, "ListComments", err)
		return
	}
	writeJSON(w, r, http.StatusOK, comments)
}

// handleAddComment handles POST /api/v1/posts/{id}/comments
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	id, ok := s.pathID(w, r, "community")
	if !ok {
		return
	}

	var req addCommentRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badRequest(w, r, err)
		return
	}

	comment, err := s.deps.Community.AddComment(r.Context(), command.AddCommentCommand{
		Actor:   actor,
		PostID:  id,
		Content: req.Content,
	})
	if err != nil {
		s.fail(w, r, "AddComment", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, comment)
}

// handleDeleteComment handles DELETE /api/v1/comments/{id}
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	id, ok := s.pathID(w, r, "community")
	if !ok {
		return
	}
	if err := s.deps.Community.DeleteComment(r.Context(), actor, id); err != nil {
		s.fail(w, r, "DeleteComment", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// handleBanStatus handles GET /api/v1/community/ban-status
func (s *Server) handleBanStatus(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	status, err := s.deps.CommunityQuery.BanStatus(r.Context(), actor)
	if err != nil {
		s.fail(w, r, "BanStatus", err)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// ══════════════════════════════════════════════════════════════════════════════
// SOS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRaiseSOS handles POST /api/v1/sos. The client sends it once its
// countdown has run out.
func (s *Server) handleRaiseSOS(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	var req raiseSOSRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badRequest(w, r, err)
		return
	}

	alert, err := s.deps.SOS.Raise(r.Context(), command.RaiseSOSCommand{
		Actor: actor,
		Lat:   *req.Lat,
		Lng:   *req.Lng,
	})
	if err != nil {
		s.fail(w, r, "RaiseSOS", err)
		return
	}

	logger.FromContext(r.Context()).Warn("sos raised", logger.AlertID(alert.ID))
	writeJSON(w, r, http.StatusAccepted, alert)
}

// handleCancelSOS handles POST /api/v1/sos/{id}/cancel
func (s *Server) handleCancelSOS(w http.ResponseWriter, r *http.Request, actor profile.Actor) {
	id, ok := s.pathID(w, r, "sos")
	if !ok {
		return
	}

	alert, err := s.deps.SOS.Cancel(r.Context(), actor, id)
	if err != nil {
		s.fail(w, r, "CancelSOS", err)
		return
	}
	writeJSON(w, r, http.StatusOK, alert)
}
