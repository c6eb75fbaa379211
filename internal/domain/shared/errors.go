// Package shared contains the error kinds, events and small value objects
// used by every portal domain package. It has no external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds, matched with errors.Is.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")

	ErrInvalidState = errors.New("invalid state")
	ErrExpired      = errors.New("expired")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError carries the domain and operation that failed alongside a kind.
type DomainError struct {
	Domain  string // e.g. "grievance", "community"
	Op      string // e.g. "Submit", "UpdateStatus"
	Kind    error
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches on the kind as well as the wrapped error.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// Validation is shorthand for a validation failure with a custom message.
func Validation(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrValidation, message)
}

// Profile errors
var (
	ErrProfileNotFound = NewDomainError("profile", "Find", ErrNotFound, "profile not found")
	ErrUnknownRole     = NewDomainError("profile", "Validate", ErrInvalidInput, "unknown role")
	ErrViewDenied      = NewDomainError("profile", "Access", ErrForbidden, "role cannot open this view")
)

// Grievance errors
var (
	ErrGrievanceNotFound = NewDomainError("grievance", "Find", ErrNotFound, "grievance not found")
	ErrInvalidStatus     = NewDomainError("grievance", "Validate", ErrInvalidInput, "invalid grievance status")
	ErrInvalidPriority   = NewDomainError("grievance", "Validate", ErrInvalidInput, "invalid grievance priority")
	ErrInvalidCategory   = NewDomainError("grievance", "Validate", ErrInvalidInput, "invalid grievance category")
	ErrNotModerator      = NewDomainError("grievance", "UpdateStatus", ErrForbidden, "only authorities can change grievance status")
)

// Academics errors
var (
	ErrCourseNotFound      = NewDomainError("academics", "FindCourse", ErrNotFound, "course not found")
	ErrInvalidResourceType = NewDomainError("academics", "Validate", ErrInvalidInput, "resource type must be PDF, DOC or PPT")
	ErrUploadForbidden     = NewDomainError("academics", "Upload", ErrForbidden, "only faculty can upload resources")
)

// Opportunity errors
var (
	ErrOpportunityNotFound = NewDomainError("opportunity", "Find", ErrNotFound, "opportunity not found")
	ErrInvalidOppType      = NewDomainError("opportunity", "Validate", ErrInvalidInput, "opportunity type must be Internship, Research or Project")
	ErrPublishForbidden    = NewDomainError("opportunity", "Publish", ErrForbidden, "only faculty can publish opportunities")
	ErrApplyForbidden      = NewDomainError("opportunity", "Apply", ErrForbidden, "only students can apply")
	ErrAlreadyApplied      = NewDomainError("opportunity", "Apply", ErrAlreadyExists, "already applied to this opportunity")
)

// Campus errors
var (
	ErrLocationNotFound = NewDomainError("campus", "Find", ErrNotFound, "location not found")
	ErrInvalidLatitude  = NewDomainError("campus", "Validate", ErrValueOutOfRange, "latitude must be between -90 and 90")
	ErrInvalidLongitude = NewDomainError("campus", "Validate", ErrValueOutOfRange, "longitude must be between -180 and 180")
	ErrMapEditForbidden = NewDomainError("campus", "AddLocation", ErrForbidden, "only admins can add locations")
)

// Community errors
var (
	ErrPostNotFound      = NewDomainError("community", "FindPost", ErrNotFound, "post not found")
	ErrCommentNotFound   = NewDomainError("community", "FindComment", ErrNotFound, "comment not found")
	ErrUserBanned        = NewDomainError("community", "CheckBan", ErrForbidden, "you have been banned from the community")
	ErrModeratorOnly     = NewDomainError("community", "Moderate", ErrForbidden, "only moderators can do this")
	ErrAuthorNotLocated  = NewDomainError("community", "Ban", ErrNotFound, "could not locate user signature")
	ErrEmptyComment      = NewDomainError("community", "AddComment", ErrEmptyValue, "comment cannot be empty")
	ErrAlreadyBanned     = NewDomainError("community", "Ban", ErrAlreadyExists, "user is already banned")
	ErrCannotBanSelf     = NewDomainError("community", "Ban", ErrInvalidInput, "moderators cannot ban themselves")
)

// SOS errors
var (
	ErrAlertNotFound      = NewDomainError("sos", "Find", ErrNotFound, "alert not found")
	ErrCancelWindowClosed = NewDomainError("sos", "Cancel", ErrExpired, "alert can no longer be cancelled")
	ErrAlertNotOwned      = NewDomainError("sos", "Cancel", ErrForbidden, "alert belongs to another user")
	ErrAlertFinal         = NewDomainError("sos", "Cancel", ErrInvalidState, "alert is already final")
	ErrAlertStateChanged  = NewDomainError("sos", "Transition", ErrInvalidState, "alert status changed meanwhile")
	ErrSecurityChannel    = NewDomainError("sos", "Dispatch", ErrExternalService, "security channel request failed")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsForbidden checks if the error is an authorization failure.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsConflict covers states that make the request invalid right now.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrExpired)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
