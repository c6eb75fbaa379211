// Package eventhandler contains reactions to domain events: side effects
// such as pushing alerts to campus security or refreshing cached views.
package eventhandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
	"github.com/aegis-hub/aegis-portal/internal/domain/sos"
	"github.com/aegis-hub/aegis-portal/pkg/circuitbreaker"
	"github.com/aegis-hub/aegis-portal/pkg/retry"
)

// FeatureGate reports whether a named feature is on for a user.
type FeatureGate interface {
	IsEnabled(name, userID string) bool
}

// ═══════════════════════════════════════════════════════════════════════════
// SOS DISPATCHER
// Delivers raised alerts to the security channel and tells security when a
// sender cancels. Each send is retried with exponential backoff; every
// attempt passes through a circuit breaker so a dead channel fails fast.
// ═══════════════════════════════════════════════════════════════════════════

// SOSDispatcher handles sos.raised and sos.cancelled.
type SOSDispatcher struct {
	alerts    sos.Repository
	channel   sos.Channel
	breaker   *circuitbreaker.CircuitBreaker
	retrier   *retry.Retrier
	publisher shared.EventPublisher
	gate      FeatureGate

	logger *slog.Logger
	config SOSDispatchConfig
	now    func() time.Time
}

// SOSDispatchConfig configures SOSDispatcher.
type SOSDispatchConfig struct {
	// Feature is the flag checked before dispatching; empty disables the check.
	Feature string

	// SendTimeout bounds the whole retry loop for one alert.
	SendTimeout time.Duration
}

// DefaultSOSDispatchConfig returns the default configuration.
func DefaultSOSDispatchConfig() SOSDispatchConfig {
	return SOSDispatchConfig{
		Feature:     "sos.dispatch",
		SendTimeout: 20 * time.Second,
	}
}

// SOSDispatcherDeps holds the dependencies of SOSDispatcher.
type SOSDispatcherDeps struct {
	Alerts    sos.Repository
	Channel   sos.Channel
	Breaker   *circuitbreaker.CircuitBreaker
	Retrier   *retry.Retrier
	Publisher shared.EventPublisher
	Gate      FeatureGate // optional
	Logger    *slog.Logger
}

// NewSOSDispatcher creates a new SOSDispatcher.
func NewSOSDispatcher(deps SOSDispatcherDeps, config SOSDispatchConfig) *SOSDispatcher {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Breaker == nil {
		deps.Breaker = circuitbreaker.New("security-channel")
	}
	if deps.Retrier == nil {
		deps.Retrier = retry.SecurityChannelRetrier(4)
	}
	if deps.Publisher == nil {
		deps.Publisher = shared.NopPublisher{}
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = DefaultSOSDispatchConfig().SendTimeout
	}
	return &SOSDispatcher{
		alerts:    deps.Alerts,
		channel:   deps.Channel,
		breaker:   deps.Breaker,
		retrier:   deps.Retrier,
		publisher: deps.Publisher,
		gate:      deps.Gate,
		logger:    deps.Logger.With("handler", "sos_dispatcher"),
		config:    config,
		now:       time.Now,
	}
}

// Register subscribes the dispatcher to the SOS events it handles.
func (d *SOSDispatcher) Register(sub shared.EventSubscriber) error {
	if err := sub.Subscribe(shared.EventSOSRaised, d.Handle); err != nil {
		return err
	}
	return sub.Subscribe(shared.EventSOSCancelled, d.Handle)
}

// Handle implements shared.EventHandler.
func (d *SOSDispatcher) Handle(event shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.SendTimeout)
	defer cancel()

	switch event.EventType() {
	case shared.EventSOSRaised:
		return d.dispatch(ctx, event.AggregateID())
	case shared.EventSOSCancelled:
		return d.standDown(ctx, event.AggregateID())
	default:
		d.logger.Warn("unexpected event", "event_type", event.EventType())
		return nil
	}
}

func (d *SOSDispatcher) dispatch(ctx context.Context, alertID string) error {
	alert, err := d.alerts.GetByID(ctx, alertID)
	if err != nil {
		return fmt.Errorf("get alert: %w", err)
	}
	if alert.Status != sos.StatusPending {
		d.logger.Info("alert no longer pending, skipping", "alert_id", alert.ID, "status", alert.Status)
		return nil
	}

	if d.gate != nil && d.config.Feature != "" && !d.gate.IsEnabled(d.config.Feature, alert.UserID) {
		d.logger.Warn("sos dispatch disabled by feature flag", "alert_id", alert.ID)
		return d.markFailed(ctx, alert, "dispatch disabled")
	}

	start := d.now()
	if err := d.send(ctx, alert.Message()); err != nil {
		d.logger.Error("sos dispatch failed",
			"alert_id", alert.ID,
			"user_id", alert.UserID,
			"breaker", d.breaker.State().String(),
			"error", err,
		)
		return d.markFailed(ctx, alert, err.Error())
	}

	err = d.alerts.TransitionStatus(ctx, alert.ID, sos.StatusDispatched, d.now().UTC())
	if errors.Is(err, shared.ErrAlertStateChanged) {
		// Cancelled while the message was in flight; the cancel event
		// carries the stand-down.
		d.logger.Info("alert cancelled during dispatch", "alert_id", alert.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark dispatched: %w", err)
	}
	d.logger.Info("sos dispatched",
		"alert_id", alert.ID,
		"user_id", alert.UserID,
		"latency_ms", d.now().Sub(start).Milliseconds(),
	)
	_ = d.publisher.Publish(shared.NewSOSEvent(
		shared.EventSOSDispatched, alert.ID, alert.UserID, alert.UserName, alert.Lat, alert.Lng,
	))
	return nil
}

func (d *SOSDispatcher) standDown(ctx context.Context, alertID string) error {
	alert, err := d.alerts.GetByID(ctx, alertID)
	if err != nil {
		return fmt.Errorf("get alert: %w", err)
	}
	if err := d.send(ctx, alert.CancelMessage()); err != nil {
		d.logger.Warn("failed to send stand-down", "alert_id", alert.ID, "error", err)
		return err
	}
	return nil
}

func (d *SOSDispatcher) markFailed(ctx context.Context, alert *sos.Alert, reason string) error {
	err := d.alerts.TransitionStatus(ctx, alert.ID, sos.StatusFailed, d.now().UTC())
	if errors.Is(err, shared.ErrAlertStateChanged) {
		d.logger.Info("alert cancelled during dispatch", "alert_id", alert.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	_ = d.publisher.Publish(shared.NewSOSEvent(
		shared.EventSOSFailed, alert.ID, alert.UserID, alert.UserName, alert.Lat, alert.Lng,
	).WithReason(reason))
	return shared.WrapError("sos", "Dispatch", shared.ErrExternalService, reason, nil)
}

// send pushes text through the breaker, retrying transient failures. An
// open breaker ends the loop at once.
func (d *SOSDispatcher) send(ctx context.Context, text string) error {
	err := d.retrier.Do(ctx, func(ctx context.Context) error {
		err := d.breaker.Execute(ctx, func(ctx context.Context) error {
			return d.channel.Send(ctx, text)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
			return retry.Permanent(err)
		case retry.IsPermanent(err):
			return err
		default:
			return retry.Retryable(err)
		}
	})
	if err != nil {
		return shared.WrapError("sos", "Send", shared.ErrSecurityChannel, "security channel unavailable", err)
	}
	return nil
}
