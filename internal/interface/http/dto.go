package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DTOs
// Shape checks live here; business rules (who may do what, value ranges the
// domain owns) stay in the domain and come back as domain errors.
// ══════════════════════════════════════════════════════════════════════════════

type loginRequest struct {
	Role string `json:"role" validate:"required"`
}

type submitGrievanceRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
	Category    string `json:"category" validate:"omitempty,oneof=Infrastructure Academics Hostel Food Other"`
	Priority    string `json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	Location    string `json:"location" validate:"max=200"`
	Anonymous   bool   `json:"anonymous"`
}

type updateGrievanceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type uploadResourceRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Type      string `json:"type" validate:"required"`
	SizeBytes uint64 `json:"size_bytes"`
	URL       string `json:"url" validate:"omitempty,max=2048"`
}

// projectionRequest bounds are wide enough for any real transcript and keep
// the arithmetic finite; the projector itself stays permissive.
type projectionRequest struct {
	CurrentAverage   *float64 `query:"current" validate:"required,min=-100,max=100"`
	CreditsCompleted *int     `query:"credits_completed" validate:"required,max=1000"`
	CreditsPlanned   *int     `query:"credits_planned" validate:"required,max=1000"`
	TargetAverage    *float64 `query:"target" validate:"required,min=-100,max=100"`
}

type publishOpportunityRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Type     string `json:"type" validate:"required"`
	Deadline string `json:"deadline" validate:"required,datetime=2006-01-02"`
	Stipend  string `json:"stipend" validate:"max=100"`
	Tags     string `json:"tags" validate:"max=500"`
}

type addLocationRequest struct {
	Name        string   `json:"name" validate:"required,max=120"`
	Type        string   `json:"type" validate:"max=40"`
	Lat         *float64 `json:"lat" validate:"required"`
	Lng         *float64 `json:"lng" validate:"required"`
	Description string   `json:"description" validate:"max=1000"`
}

type createPostRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required,max=10000"`
}

type banAuthorRequest struct {
	Reason string `json:"reason" validate:"max=300"`
}

type addCommentRequest struct {
	Content string `json:"content" validate:"max=2000"`
}

type raiseSOSRequest struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

// ══════════════════════════════════════════════════════════════════════════════
// DECODING AND VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json/query names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// requestError is a malformed or invalid request body.
type requestError struct {
	message string
	details map[string]string
}

func (e *requestError) Error() string { return e.message }

// decodeJSON reads the body into dst and validates it. An empty body is
// accepted when allowEmpty is set; dst keeps its zero value then.
func decodeJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return &requestError{message: "Request body must be valid JSON"}
		}
	}
	return validateStruct(dst)
}

// decodeQuery fills the pointer fields of dst tagged `query` from the URL
// query, then validates it. Only *int and *float64 fields are supported.
func decodeQuery(r *http.Request, dst interface{}) error {
	values := r.URL.Query()
	rv := reflect.ValueOf(dst).Elem()
	rt := rv.Type()

	details := map[string]string{}
	for i := 0; i < rt.NumField(); i++ {
		name := rt.Field(i).Tag.Get("query")
		raw := strings.TrimSpace(values.Get(name))
		if name == "" || raw == "" {
			continue
		}
		field := rv.Field(i)
		switch field.Type().Elem().Kind() {
		case reflect.Int:
			n, err := strconv.Atoi(raw)
			if err != nil {
				details[name] = "int"
				continue
			}
			field.Set(reflect.ValueOf(&n))
		case reflect.Float64:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				details[name] = "number"
				continue
			}
			field.Set(reflect.ValueOf(&f))
		}
	}
	if len(details) > 0 {
		return &requestError{message: "Invalid query parameters", details: details}
	}
	return validateStruct(dst)
}

func validateStruct(dst interface{}) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return &requestError{message: "Invalid input"}
	}
	details := make(map[string]string, len(ve))
	for _, fe := range ve {
		details[fe.Field()] = fe.Tag()
	}
	return &requestError{message: fmt.Sprintf("Validation failed for %d field(s)", len(ve)), details: details}
}

// badRequest writes err from decodeJSON or decodeQuery.
func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var re *requestError
	if errors.As(err, &re) {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_request", re.message, re.details)
		return
	}
	writeJSONError(w, r, http.StatusBadRequest, "invalid_request", "Invalid request")
}

// pageParams reads page and page_size, leaving bad values at zero so the
// pagination defaults apply.
func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	return page, size
}

// pathID reads the {id} path segment. A malformed id answers 400 and
// returns false.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, domain string) (string, bool) {
	id, err := shared.ParseID(domain, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "ParseID", err)
		return "", false
	}
	return id, true
}
