package sos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

func TestNewAlert(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)

	a, err := NewAlert("u1", "Arjun Mehta", 31.7768, 76.9861, now)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, a.Status)
	assert.Equal(t, now, a.CreatedAt)

	_, err = NewAlert("u1", "x", 91, 0, now)
	assert.ErrorIs(t, err, shared.ErrInvalidLatitude)
	_, err = NewAlert("u1", "x", 0, 200, now)
	assert.ErrorIs(t, err, shared.ErrInvalidLongitude)
}

func TestAlert_CanCancel(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	a := &Alert{ID: "a1", UserID: "u1", Status: StatusDispatched, CreatedAt: now}
	window := 2 * time.Minute

	assert.NoError(t, a.CanCancel("u1", window, now.Add(time.Minute)))
	assert.ErrorIs(t, a.CanCancel("u2", window, now), shared.ErrAlertNotOwned)
	assert.ErrorIs(t, a.CanCancel("u1", window, now.Add(3*time.Minute)), shared.ErrCancelWindowClosed)

	a.Status = StatusCancelled
	assert.ErrorIs(t, a.CanCancel("u1", window, now), shared.ErrAlertFinal)
}

func TestAlert_Message(t *testing.T) {
	a := &Alert{
		ID:        "a1",
		UserName:  "Arjun Mehta",
		Lat:       31.7768,
		Lng:       76.9861,
		CreatedAt: time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC),
	}

	msg := a.Message()
	assert.Contains(t, msg, "Arjun Mehta")
	assert.Contains(t, msg, "2024-03-10 19:30 IST")
	assert.Contains(t, msg, "31.776800, 76.986100")
	assert.Contains(t, a.CancelMessage(), "a1")
}

func TestStatus_CanMoveTo(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusDispatched, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCancelled, true},
		{StatusDispatched, StatusCancelled, true},
		{StatusCancelled, StatusDispatched, false},
		{StatusCancelled, StatusFailed, false},
		{StatusFailed, StatusCancelled, false},
		{StatusDispatched, StatusFailed, false},
		{StatusDispatched, StatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanMoveTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}
