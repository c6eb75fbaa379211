// Package sos models emergency alerts raised from the portal and pushed to
// campus security.
package sos

import (
	"context"
	"fmt"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
	"github.com/aegis-hub/aegis-portal/pkg/timeutil"
)

// Status of an alert.
type Status string

const (
	// StatusPending: stored, not yet delivered to security.
	StatusPending    Status = "pending"
	StatusDispatched Status = "dispatched"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// AllowedFrom lists the statuses an alert may move to s from. Cancelled and
// failed are final.
func (s Status) AllowedFrom() []Status {
	switch s {
	case StatusDispatched, StatusFailed:
		return []Status{StatusPending}
	case StatusCancelled:
		return []Status{StatusPending, StatusDispatched}
	default:
		return nil
	}
}

// CanMoveTo reports whether an alert in s may move to next.
func (s Status) CanMoveTo(next Status) bool {
	for _, from := range next.AllowedFrom() {
		if from == s {
			return true
		}
	}
	return false
}

// Alert is a single SOS trigger with the reporter's last known position.
type Alert struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAlert validates coordinates and returns a pending alert.
func NewAlert(userID, userName string, lat, lng float64, now time.Time) (*Alert, error) {
	if lat < -90 || lat > 90 {
		return nil, shared.ErrInvalidLatitude
	}
	if lng < -180 || lng > 180 {
		return nil, shared.ErrInvalidLongitude
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &Alert{
		ID:        shared.NewID(),
		UserID:    userID,
		UserName:  userName,
		Lat:       lat,
		Lng:       lng,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanCancel checks that userID owns the alert, that it is not final and
// that the cancel window has not elapsed.
func (a *Alert) CanCancel(userID string, window time.Duration, now time.Time) error {
	if a.UserID != userID {
		return shared.ErrAlertNotOwned
	}
	if a.Status == StatusCancelled || a.Status == StatusFailed {
		return shared.ErrAlertFinal
	}
	if now.Sub(a.CreatedAt) > window {
		return shared.ErrCancelWindowClosed
	}
	return nil
}

// Message is the text sent to the security channel.
func (a *Alert) Message() string {
	return fmt.Sprintf(
		"🚨 SOS from %s\nTime: %s IST\nLocation: %.6f, %.6f\nMap: https://maps.google.com/?q=%.6f,%.6f\nAlert: %s",
		a.UserName,
		timeutil.FormatDateTimeStr(a.CreatedAt),
		a.Lat, a.Lng, a.Lat, a.Lng,
		a.ID,
	)
}

// CancelMessage tells security to stand down.
func (a *Alert) CancelMessage() string {
	return fmt.Sprintf("✅ SOS %s from %s was cancelled by the sender.", a.ID, a.UserName)
}

// Repository stores alerts.
type Repository interface {
	Create(ctx context.Context, a *Alert) error
	GetByID(ctx context.Context, id string) (*Alert, error)
	// TransitionStatus moves an alert to status only if its stored status
	// is one of status.AllowedFrom(). Otherwise it returns
	// shared.ErrAlertStateChanged and leaves the row untouched.
	TransitionStatus(ctx context.Context, id string, status Status, at time.Time) error
}

// Channel delivers text to campus security.
type Channel interface {
	Send(ctx context.Context, text string) error
}
