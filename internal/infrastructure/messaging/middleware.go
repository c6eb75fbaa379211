package messaging

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// Middleware wraps handler execution.
type Middleware func(shared.EventHandler) shared.EventHandler

// Chain applies middlewares so the first one is outermost.
func Chain(h shared.EventHandler, middlewares ...Middleware) shared.EventHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RecoveryMiddleware turns a handler panic into an error.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic recovered",
						"event_type", event.EventType(),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs every handler run.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			duration := time.Since(start)

			if err != nil {
				logger.Error("handler failed",
					"event_type", event.EventType(),
					"aggregate_id", event.AggregateID(),
					"duration", duration,
					"error", err,
				)
			} else {
				logger.Debug("handler completed",
					"event_type", event.EventType(),
					"aggregate_id", event.AggregateID(),
					"duration", duration,
				)
			}
			return err
		}
	}
}

// Subscriber applies middleware to every handler subscribed through it.
type Subscriber struct {
	inner       shared.EventSubscriber
	middlewares []Middleware
}

// NewSubscriber wraps inner.
func NewSubscriber(inner shared.EventSubscriber, middlewares ...Middleware) *Subscriber {
	return &Subscriber{inner: inner, middlewares: middlewares}
}

// Subscribe registers the wrapped handler for eventType.
func (s *Subscriber) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}
	return s.inner.Subscribe(eventType, Chain(handler, s.middlewares...))
}

// SubscribeAll registers the wrapped handler for every event.
func (s *Subscriber) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}
	return s.inner.SubscribeAll(Chain(handler, s.middlewares...))
}

var _ shared.EventSubscriber = (*Subscriber)(nil)
