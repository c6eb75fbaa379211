package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hub/aegis-portal/config"
	"github.com/aegis-hub/aegis-portal/internal/application/command"
	"github.com/aegis-hub/aegis-portal/internal/application/query"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/persistence/memory"
	"github.com/aegis-hub/aegis-portal/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

type staticFeatures map[string]bool

func (f staticFeatures) IsEnabled(name, _ string) bool {
	on, ok := f[name]
	return !ok || on
}

type stubLimiter struct {
	allow bool
	err   error
}

func (l stubLimiter) Allow(context.Context, string) (bool, error) { return l.allow, l.err }

type testEnv struct {
	store   *memory.Store
	handler http.Handler
}

func newTestEnv(t *testing.T, mutate func(*Dependencies)) *testEnv {
	t.Helper()

	store := memory.NewStore()
	key := []byte("anonymity-key")
	pub := shared.NopPublisher{}

	tokens, err := NewTokenIssuer(TokenConfig{Secret: []byte("test-secret")})
	require.NoError(t, err)

	deps := Dependencies{
		Login:                 command.NewLoginHandler(store.Profiles()),
		SubmitGrievance:       command.NewSubmitGrievanceHandler(store.Grievances(), pub, key),
		UpdateGrievanceStatus: command.NewUpdateGrievanceStatusHandler(store.Grievances(), pub),
		UpvoteGrievance:       command.NewUpvoteGrievanceHandler(store.Grievances()),
		UploadResource:        command.NewUploadResourceHandler(store.Academics()),
		PublishOpportunity:    command.NewPublishOpportunityHandler(store.Opportunities(), nil, pub, nil),
		ApplyOpportunity:      command.NewApplyOpportunityHandler(store.Opportunities()),
		AddLocation:           command.NewAddLocationHandler(store.Locations(), nil, pub, nil),
		Community: command.NewCommunityHandler(command.CommunityDeps{
			Posts:    store.Posts(),
			Bans:     store.Bans(),
			Profiles: store.Profiles(),
		}),
		SOS: command.NewSOSHandler(store.Alerts(), pub, 0),

		Dashboard:      query.NewGetDashboardHandler(store.Grievances(), store.Profiles(), store.Status(), nil, nil),
		Grievances:     query.NewGrievancesHandler(store.Grievances(), key),
		Academics:      query.NewAcademicsHandler(store.Academics(), store.Profiles(), query.DefaultAcademicsDefaults(), nil),
		Opportunities:  query.NewOpportunitiesHandler(store.Opportunities(), nil, nil),
		CampusMap:      query.NewCampusMapHandler(store.Locations(), nil, nil),
		CommunityQuery: query.NewCommunityHandler(store.Posts(), store.Bans(), nil),

		Profiles: store.Profiles(),
		Tokens:   tokens,
		Logger:   logger.Nop(),
	}
	if mutate != nil {
		mutate(&deps)
	}

	srv := NewServer(DefaultConfig(), deps)
	return &testEnv{store: store, handler: srv.Handler()}
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	RequestID string          `json:"request_id"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func (e *testEnv) login(t *testing.T, role string) string {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"role": role})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp.Token
}

// ──────────────────────────────────────────────────────────────────────────────
// Health and envelope
// ──────────────────────────────────────────────────────────────────────────────

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/health", "/ready", "/live", "/"} {
		rec, body := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, body.Success, path)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"request_id":"req-123"`)
}

// ──────────────────────────────────────────────────────────────────────────────
// Session
// ──────────────────────────────────────────────────────────────────────────────

func TestLogin_CreatesProfileOnce(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"role": "Student"})
	require.Equal(t, http.StatusOK, rec.Code)

	var first loginResponse
	require.NoError(t, json.Unmarshal(body.Data, &first))
	assert.NotEmpty(t, first.Token)
	assert.True(t, first.Created)
	assert.Contains(t, first.Views, profile.ViewAcademics)
	assert.Len(t, first.Views, 6)

	_, body = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"role": "Student"})
	var second loginResponse
	require.NoError(t, json.Unmarshal(body.Data, &second))
	assert.False(t, second.Created)
	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestLogin_Rejections(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"role": "Janitor"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body.Error.Code)

	rec, body = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", body.Error.Code)
	assert.Equal(t, "required", body.Error.Details["role"])
}

func TestMe(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "Faculty")

	rec, body := env.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body.Data), `"role":"Faculty"`)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, http.MethodGet, "/api/v1/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", body.Error.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/dashboard", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestViewGate(t *testing.T) {
	env := newTestEnv(t, nil)
	faculty := env.login(t, "Faculty")
	authority := env.login(t, "Authority")

	rec, _ := env.do(t, http.MethodGet, "/api/v1/grievances", faculty, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/academics", authority, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/dashboard", authority, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Academics
// ──────────────────────────────────────────────────────────────────────────────

func TestProjection(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "Student")

	tests := []struct {
		name       string
		query      string
		required   float64
		achievable bool
		outlook    string
	}{
		{"exactly ten is achievable", "current=8&credits_completed=60&credits_planned=20&target=8.5", 10, true, "effort_needed"},
		{"above ten", "current=7&credits_completed=85&credits_planned=20&target=8.5", 14.875, false, "impossible"},
		{"already there", "current=9&credits_completed=40&credits_planned=10&target=8", 4, true, "on_track"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(t, http.MethodGet, "/api/v1/academics/projection?"+tt.query, token, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got query.ProjectionResult
			require.NoError(t, json.Unmarshal(body.Data, &got))
			assert.InDelta(t, tt.required, got.RequiredTermAverage, 1e-9)
			assert.Equal(t, tt.achievable, got.Achievable)
			assert.Equal(t, tt.outlook, string(got.Outlook))
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestProjection_BadQuery(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "Student")

	rec, body := env.do(t, http.MethodGet, "/api/v1/academics/projection?current=7&credits_completed=x&credits_planned=20", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "int", body.Error.Details["credits_completed"])

	rec, body = env.do(t, http.MethodGet, "/api/v1/academics/projection?current=7&credits_completed=60&credits_planned=20", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required", body.Error.Details["target"])
}

func TestProjection_RejectsNonFiniteNumbers(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "Student")

	tests := []struct {
		name  string
		query string
		field string
		tag   string
	}{
		{"nan current", "current=NaN&credits_completed=85&credits_planned=20&target=8", "current", "number"},
		{"infinite target", "current=7&credits_completed=85&credits_planned=20&target=Inf", "target", "number"},
		{"huge current", "current=1e308&credits_completed=85&credits_planned=20&target=8", "current", "max"},
		{"huge completed credits", "current=7&credits_completed=9223372036854775807&credits_planned=20&target=8", "credits_completed", "max"},
		{"huge planned credits", "current=7&credits_completed=85&credits_planned=5000&target=8", "credits_planned", "max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(t, http.MethodGet, "/api/v1/academics/projection?"+tt.query, token, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.tag, body.Error.Details[tt.field])
		})
	}
}

func TestWriteEnvelope_UnencodablePayload(t *testing.T) {
	rec := httptest.NewRecorder()
	writeEnvelope(rec, http.StatusOK, JSONResponse{Success: true, Data: math.NaN(), RequestID: "req-1"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "internal_error", body.Error.Code)
	assert.Equal(t, "req-1", body.RequestID)
}

func TestUploadResource_FacultyOnly(t *testing.T) {
	env := newTestEnv(t, nil)
	req := map[string]interface{}{"title": "Lecture 4", "type": "PDF", "size_bytes": 2048}

	rec, _ := env.do(t, http.MethodPost, "/api/v1/academics/resources", env.login(t, "Student"), req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/academics/resources", env.login(t, "Faculty"), req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// ──────────────────────────────────────────────────────────────────────────────
// Grievances
// ──────────────────────────────────────────────────────────────────────────────

func TestGrievanceFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	student := env.login(t, "Student")
	admin := env.login(t, "Admin")

	rec, body := env.do(t, http.MethodPost, "/api/v1/grievances", student, map[string]interface{}{
		"title":       "Broken fan",
		"description": "Room 204 fan does not turn on",
		"category":    "Hostel",
		"anonymous":   true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, "Submitted", created.Status)

	rec, body = env.do(t, http.MethodGet, "/api/v1/grievances/mine", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body.Data), created.ID)

	path := "/api/v1/grievances/" + created.ID + "/status"
	rec, _ = env.do(t, http.MethodPatch, path, student, map[string]string{"status": "Resolved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = env.do(t, http.MethodPatch, path, admin, map[string]string{"status": "In Progress"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var changed command.UpdateGrievanceStatusResult
	require.NoError(t, json.Unmarshal(body.Data, &changed))
	assert.Equal(t, "Submitted", string(changed.Previous))
	assert.Equal(t, "In Progress", string(changed.Status))

	rec, body = env.do(t, http.MethodGet, "/api/v1/grievances?status=In%20Progress", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body.Data), created.ID)
}

func TestSubmitGrievance_InvalidCategory(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, http.MethodPost, "/api/v1/grievances", env.login(t, "Student"), map[string]interface{}{
		"title":       "x",
		"description": "y",
		"category":    "Weather",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "oneof", body.Error.Details["category"])
}

func TestFeatureGate(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Features = staticFeatures{config.FeatureGrievanceUpvotes: false}
	})

	rec, body := env.do(t, http.MethodPost, "/api/v1/grievances/any/votes", env.login(t, "Student"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "feature_disabled", body.Error.Code)
}

func TestMalformedPathID(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, http.MethodPost, "/api/v1/grievances/not-an-id/votes", env.login(t, "Student"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body.Error.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Community
// ──────────────────────────────────────────────────────────────────────────────

func TestCommunity_PostAndComment(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "Student")

	rec, body := env.do(t, http.MethodPost, "/api/v1/posts", token, map[string]string{
		"title":   "Lost ID card",
		"content": "Near the library",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var post struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &post))

	rec, _ = env.do(t, http.MethodPost, "/api/v1/posts/"+post.ID+"/comments", token, map[string]string{"content": "Found it"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body = env.do(t, http.MethodGet, "/api/v1/posts/"+post.ID+"/comments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body.Data), "Found it")

	rec, body = env.do(t, http.MethodGet, "/api/v1/community/ban-status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body.Data), `"banned":false`)
}

// ──────────────────────────────────────────────────────────────────────────────
// SOS
// ──────────────────────────────────────────────────────────────────────────────

func TestSOS_RaiseAndCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "Student")

	rec, body := env.do(t, http.MethodPost, "/api/v1/sos", token, map[string]float64{"lat": 31.78, "lng": 76.99})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var alert struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &alert))
	assert.Equal(t, "pending", alert.Status)

	rec, body = env.do(t, http.MethodPost, "/api/v1/sos/"+alert.ID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(body.Data), `"status":"cancelled"`)
}

func TestSOS_MissingCoordinates(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, http.MethodPost, "/api/v1/sos", env.login(t, "Student"), map[string]float64{"lat": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required", body.Error.Details["lng"])
	_, hasLat := body.Error.Details["lat"]
	assert.False(t, hasLat, "zero is a valid latitude")
}

// ──────────────────────────────────────────────────────────────────────────────
// Rate limiting
// ──────────────────────────────────────────────────────────────────────────────

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) { d.Limiter = stubLimiter{allow: false} })

	rec, body := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"role": "Student"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limit_exceeded", body.Error.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec, _ = env.do(t, http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "probes are not limited")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Limiter = stubLimiter{err: errors.New("redis down")}
	})

	rec, _ := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"role": "Student"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
