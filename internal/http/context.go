package http

import (
	"context"
	"log/slog"

	"github.com/example/pickup-games/internal/application"
	"github.com/example/pickup-games/internal/logging"
)

type contextKey string

const (
	eventIDContextKey contextKey = "event_id"
	limiterContextKey contextKey = "limiter"
)

// ContextWithLogger returns a derived context that carries the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request logger if one is attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithEventID injects the event identifier resolved from the request path.
func ContextWithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, eventIDContextKey, eventID)
}

// EventIDFromContext extracts an event identifier previously associated with the context.
func EventIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(eventIDContextKey).(string)
	return id, ok
}

// ContextWithLimiter attaches the rate limiter of the caller's session.
func ContextWithLimiter(ctx context.Context, limiter *application.Limiter) context.Context {
	return context.WithValue(ctx, limiterContextKey, limiter)
}

// LimiterFromContext returns the session limiter, or nil.
func LimiterFromContext(ctx context.Context) *application.Limiter {
	limiter, _ := ctx.Value(limiterContextKey).(*application.Limiter)
	return limiter
}
