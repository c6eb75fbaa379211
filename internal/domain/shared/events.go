package shared

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

const (
	// Grievance events
	EventGrievanceSubmitted     EventType = "grievance.submitted"
	EventGrievanceStatusChanged EventType = "grievance.status_changed"

	// Community events
	EventPostCreated EventType = "community.post_created"
	EventPostFlagged EventType = "community.post_flagged"
	EventUserBanned  EventType = "community.user_banned"

	// Opportunity events
	EventOpportunityPublished EventType = "opportunity.published"

	// Campus events
	EventLocationAdded EventType = "campus.location_added"

	// SOS events
	EventSOSRaised     EventType = "sos.raised"
	EventSOSCancelled  EventType = "sos.cancelled"
	EventSOSDispatched EventType = "sos.dispatched"
	EventSOSFailed     EventType = "sos.failed"
)

// Event is the base interface for all domain events.
type Event interface {
	EventType() EventType
	OccurredAt() time.Time
	AggregateID() string
	// Payload returns the event data for transport.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.AggregateId }

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Grievance Events
// ═══════════════════════════════════════════════════════════════════════════

// GrievanceSubmittedEvent is emitted when a grievance is filed.
type GrievanceSubmittedEvent struct {
	BaseEvent
	Category  string `json:"category"`
	Priority  string `json:"priority"`
	Anonymous bool   `json:"anonymous"`
}

func (e GrievanceSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"category":  e.Category,
		"priority":  e.Priority,
		"anonymous": e.Anonymous,
	}
}

// NewGrievanceSubmittedEvent creates a new GrievanceSubmittedEvent.
func NewGrievanceSubmittedEvent(grievanceID, category, priority string, anonymous bool) GrievanceSubmittedEvent {
	return GrievanceSubmittedEvent{
		BaseEvent: NewBaseEvent(EventGrievanceSubmitted, grievanceID),
		Category:  category,
		Priority:  priority,
		Anonymous: anonymous,
	}
}

// GrievanceStatusChangedEvent is emitted when a moderator moves a grievance.
type GrievanceStatusChangedEvent struct {
	BaseEvent
	From      string `json:"from"`
	To        string `json:"to"`
	ChangedBy string `json:"changed_by"`
}

func (e GrievanceStatusChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"from":       e.From,
		"to":         e.To,
		"changed_by": e.ChangedBy,
	}
}

// NewGrievanceStatusChangedEvent creates a new GrievanceStatusChangedEvent.
func NewGrievanceStatusChangedEvent(grievanceID, from, to, changedBy string) GrievanceStatusChangedEvent {
	return GrievanceStatusChangedEvent{
		BaseEvent: NewBaseEvent(EventGrievanceStatusChanged, grievanceID),
		From:      from,
		To:        to,
		ChangedBy: changedBy,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Community Events
// ═══════════════════════════════════════════════════════════════════════════

// PostCreatedEvent is emitted when a post is published.
type PostCreatedEvent struct {
	BaseEvent
	AuthorID string `json:"author_id"`
}

func (e PostCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"author_id": e.AuthorID}
}

// NewPostCreatedEvent creates a new PostCreatedEvent.
func NewPostCreatedEvent(postID, authorID string) PostCreatedEvent {
	return PostCreatedEvent{BaseEvent: NewBaseEvent(EventPostCreated, postID), AuthorID: authorID}
}

// PostFlaggedEvent is emitted when a member flags a post for review.
type PostFlaggedEvent struct {
	BaseEvent
	FlaggedBy string `json:"flagged_by"`
}

func (e PostFlaggedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"flagged_by": e.FlaggedBy}
}

// NewPostFlaggedEvent creates a new PostFlaggedEvent.
func NewPostFlaggedEvent(postID, flaggedBy string) PostFlaggedEvent {
	return PostFlaggedEvent{BaseEvent: NewBaseEvent(EventPostFlagged, postID), FlaggedBy: flaggedBy}
}

// UserBannedEvent is emitted when a moderator bans a member by email.
type UserBannedEvent struct {
	BaseEvent
	Email    string `json:"email"`
	Reason   string `json:"reason"`
	BannedBy string `json:"banned_by"`
}

func (e UserBannedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"email":     e.Email,
		"reason":    e.Reason,
		"banned_by": e.BannedBy,
	}
}

// NewUserBannedEvent creates a new UserBannedEvent keyed by the banned email.
func NewUserBannedEvent(email, reason, bannedBy string) UserBannedEvent {
	return UserBannedEvent{
		BaseEvent: NewBaseEvent(EventUserBanned, email),
		Email:     email,
		Reason:    reason,
		BannedBy:  bannedBy,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Opportunity / Campus Events
// ═══════════════════════════════════════════════════════════════════════════

// OpportunityPublishedEvent is emitted when faculty post an opening.
type OpportunityPublishedEvent struct {
	BaseEvent
	Title     string `json:"title"`
	Professor string `json:"professor"`
}

func (e OpportunityPublishedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"title": e.Title, "professor": e.Professor}
}

// NewOpportunityPublishedEvent creates a new OpportunityPublishedEvent.
func NewOpportunityPublishedEvent(id, title, professor string) OpportunityPublishedEvent {
	return OpportunityPublishedEvent{
		BaseEvent: NewBaseEvent(EventOpportunityPublished, id),
		Title:     title,
		Professor: professor,
	}
}

// LocationAddedEvent is emitted when an admin adds a map marker.
type LocationAddedEvent struct {
	BaseEvent
	Name string `json:"name"`
}

func (e LocationAddedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"name": e.Name}
}

// NewLocationAddedEvent creates a new LocationAddedEvent.
func NewLocationAddedEvent(id, name string) LocationAddedEvent {
	return LocationAddedEvent{BaseEvent: NewBaseEvent(EventLocationAdded, id), Name: name}
}

// ═══════════════════════════════════════════════════════════════════════════
// SOS Events
// ═══════════════════════════════════════════════════════════════════════════

// SOSEvent covers every alert lifecycle step; Type tells them apart.
type SOSEvent struct {
	BaseEvent
	UserID   string  `json:"user_id"`
	UserName string  `json:"user_name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Reason   string  `json:"reason,omitempty"`
}

func (e SOSEvent) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"user_id":   e.UserID,
		"user_name": e.UserName,
		"lat":       e.Lat,
		"lng":       e.Lng,
	}
	if e.Reason != "" {
		p["reason"] = e.Reason
	}
	return p
}

// NewSOSEvent creates an SOS lifecycle event.
func NewSOSEvent(eventType EventType, alertID, userID, userName string, lat, lng float64) SOSEvent {
	return SOSEvent{
		BaseEvent: NewBaseEvent(eventType, alertID),
		UserID:    userID,
		UserName:  userName,
		Lat:       lat,
		Lng:       lng,
	}
}

// WithReason attaches a failure reason.
func (e SOSEvent) WithReason(reason string) SOSEvent {
	e.Reason = reason
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error { return nil }
