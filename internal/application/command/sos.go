package command

import (
	"context"
	"errors"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
	"github.com/aegis-hub/aegis-portal/internal/domain/sos"
)

// ══════════════════════════════════════════════════════════════════════════════
// SOS COMMANDS
// Raising only stores the alert and publishes sos.raised; delivery to the
// security channel happens in eventhandler.SOSDispatcher.
// ══════════════════════════════════════════════════════════════════════════════

// RaiseSOSCommand is sent once the client countdown completes.
type RaiseSOSCommand struct {
	Actor profile.Actor
	Lat   float64
	Lng   float64
}

// SOSHandler raises and cancels alerts.
type SOSHandler struct {
	repo         sos.Repository
	publisher    shared.EventPublisher
	cancelWindow time.Duration
	now          func() time.Time
}

// NewSOSHandler creates a new SOSHandler.
func NewSOSHandler(repo sos.Repository, publisher shared.EventPublisher, cancelWindow time.Duration) *SOSHandler {
	if cancelWindow <= 0 {
		cancelWindow = 2 * time.Minute
	}
	return &SOSHandler{repo: repo, publisher: publisher, cancelWindow: cancelWindow, now: time.Now}
}

// Raise stores a pending alert and announces it.
func (h *SOSHandler) Raise(ctx context.Context, cmd RaiseSOSCommand) (*sos.Alert, error) {
	alert, err := sos.NewAlert(cmd.Actor.ID, cmd.Actor.Name, cmd.Lat, cmd.Lng, h.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := h.repo.Create(ctx, alert); err != nil {
		return nil, err
	}

	if err := h.publisher.Publish(shared.NewSOSEvent(
		shared.EventSOSRaised, alert.ID, alert.UserID, alert.UserName, alert.Lat, alert.Lng,
	)); err != nil {
		return alert, shared.WrapError("sos", "Raise", shared.ErrServiceUnavailable, "alert stored but not dispatched", err)
	}
	return alert, nil
}

// Cancel stands an alert down within the cancel window.
func (h *SOSHandler) Cancel(ctx context.Context, actor profile.Actor, alertID string) (*sos.Alert, error) {
	alert, err := h.repo.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}

	now := h.now().UTC()
	if err := alert.CanCancel(actor.ID, h.cancelWindow, now); err != nil {
		return nil, err
	}
	if err := h.repo.TransitionStatus(ctx, alert.ID, sos.StatusCancelled, now); err != nil {
		if errors.Is(err, shared.ErrAlertStateChanged) {
			return nil, shared.ErrAlertFinal
		}
		return nil, err
	}
	alert.Status = sos.StatusCancelled
	alert.UpdatedAt = now

	_ = h.publisher.Publish(shared.NewSOSEvent(
		shared.EventSOSCancelled, alert.ID, alert.UserID, alert.UserName, alert.Lat, alert.Lng,
	))
	return alert, nil
}
