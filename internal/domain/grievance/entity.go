// Package grievance models complaints raised by students and worked through
// by campus authorities.
package grievance

import (
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
	"github.com/aegis-hub/aegis-portal/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the workflow state.
type Status string

const (
	StatusSubmitted   Status = "Submitted"
	StatusUnderReview Status = "Under Review"
	StatusInProgress  Status = "In Progress"
	StatusResolved    Status = "Resolved"
)

// StatusAll is the list filter meaning "no status filter".
const StatusAll = "All"

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusSubmitted, StatusUnderReview, StatusInProgress, StatusResolved}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the grievance still needs attention.
func (s Status) IsOpen() bool {
	return s != StatusResolved
}

// Priority is the reporter's urgency estimate.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Category groups grievances by area.
type Category string

const (
	CategoryInfrastructure Category = "Infrastructure"
	CategoryAcademics      Category = "Academics"
	CategoryHostel         Category = "Hostel"
	CategoryFood           Category = "Food"
	CategoryOther          Category = "Other"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryInfrastructure, CategoryAcademics, CategoryHostel, CategoryFood, CategoryOther:
		return true
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: GRIEVANCE
// ══════════════════════════════════════════════════════════════════════════════

// Grievance is a single complaint.
type Grievance struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Category    Category `json:"category"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
	// Date is the campus-local filing day, YYYY-MM-DD.
	Date        string `json:"date"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
	Votes       int    `json:"votes"`
	Anonymous   bool   `json:"is_anonymous"`

	// ReporterID is empty for anonymous grievances; ReporterToken is set
	// for them instead.
	ReporterID    string `json:"reporter_id,omitempty"`
	ReporterToken string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmitParams holds the inputs for New.
type SubmitParams struct {
	Title       string
	Description string
	Category    Category
	Priority    Priority
	Location    string
	Anonymous   bool
	ReporterID  string
	// AnonymityKey keys the reporter token of anonymous grievances.
	AnonymityKey []byte
	Now          time.Time
}

// New validates a submission and returns a grievance in Submitted state.
func New(p SubmitParams) (*Grievance, error) {
	title := strings.TrimSpace(p.Title)
	desc := strings.TrimSpace(p.Description)
	if title == "" {
		return nil, shared.Validation("grievance", "Submit", "title is required")
	}
	if desc == "" {
		return nil, shared.Validation("grievance", "Submit", "description is required")
	}
	if p.Category == "" {
		p.Category = CategoryInfrastructure
	}
	if !p.Category.IsValid() {
		return nil, shared.ErrInvalidCategory
	}
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if !p.Priority.IsValid() {
		return nil, shared.ErrInvalidPriority
	}
	if p.Now.IsZero() {
		p.Now = time.Now().UTC()
	}

	g := &Grievance{
		ID:          shared.NewID(),
		Title:       title,
		Category:    p.Category,
		Priority:    p.Priority,
		Status:      StatusSubmitted,
		Date:        timeutil.FormatDateStr(p.Now),
		Description: desc,
		Location:    strings.TrimSpace(p.Location),
		Votes:       0,
		Anonymous:   p.Anonymous,
		CreatedAt:   p.Now,
		UpdatedAt:   p.Now,
	}
	if p.Anonymous {
		g.ReporterToken = ReporterToken(p.AnonymityKey, p.ReporterID)
	} else {
		g.ReporterID = p.ReporterID
	}
	return g, nil
}

// SetStatus moves the grievance to status. Any known status may follow any
// other; authorities pick freely.
func (g *Grievance) SetStatus(status Status, now time.Time) error {
	if !status.IsValid() {
		return shared.ErrInvalidStatus
	}
	g.Status = status
	g.UpdatedAt = now
	return nil
}

// ReporterToken is a keyed BLAKE2b-256 digest of the reporter's user id.
// It lets a reporter find their own anonymous grievances without the id
// being stored.
func ReporterToken(key []byte, userID string) string {
	if userID == "" {
		return ""
	}
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		// Only possible for oversized keys, handled above.
		return ""
	}
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// Filter narrows a listing. An empty Status lists everything.
type Filter struct {
	Status     Status
	Pagination shared.Pagination
}

// ParseStatusFilter maps the UI filter value to a Filter status; "All" and
// the empty string mean no filter.
func ParseStatusFilter(v string) (Status, error) {
	v = strings.TrimSpace(v)
	if v == "" || v == StatusAll {
		return "", nil
	}
	s := Status(v)
	if !s.IsValid() {
		return "", shared.ErrInvalidStatus
	}
	return s, nil
}
