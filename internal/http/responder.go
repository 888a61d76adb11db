package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/pickup-games/internal/application"
)

var (
	errBadRequestBody = errors.New("The request body is not valid JSON.")
	errInvalidEventID = errors.New("The game identifier is missing.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application errors to a status code and a message
// the participant can act on. Internal detail never reaches the body.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	resp := errorResponse{
		ErrorCode: application.ErrorKind(err),
		Message:   application.UserMessage(err),
	}

	var (
		vErr  *application.ValidationError
		rlErr *application.RateLimitError
	)
	switch {
	case errors.As(err, &vErr):
		resp.Errors = vErr.FieldErrors
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, resp)
	case errors.As(err, &rlErr):
		seconds := rlErr.CooldownSeconds()
		resp.RetryAfterSeconds = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		r.writeJSON(ctx, w, http.StatusTooManyRequests, resp)
	case errors.Is(err, application.ErrDuplicateNickname),
		errors.Is(err, application.ErrNoActiveEvent),
		errors.Is(err, application.ErrDrawWindowClosed):
		r.writeJSON(ctx, w, http.StatusConflict, resp)
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusForbidden, resp)
	case errors.Is(err, application.ErrManualAssignmentRequired):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, resp)
	case errors.Is(err, application.ErrStoreUnavailable):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, resp)
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, resp)
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request is not valid."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "The request conflicts with the current state of the game."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable."
	default:
		return "Something went wrong. Please try again later."
	}
}

type errorResponse struct {
	ErrorCode         string            `json:"error_code,omitempty"`
	Message           string            `json:"message"`
	Errors            map[string]string `json:"errors,omitempty"`
	RetryAfterSeconds int               `json:"retry_after_seconds,omitempty"`
}
