package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/pickup-games/internal/application"
)

type signupService interface {
	ActiveEvents(ctx context.Context) ([]application.Event, error)
	ListSignups(ctx context.Context, eventID string) ([]application.Signup, error)
	Signup(ctx context.Context, params application.SignupParams) (application.Signup, error)
	Signout(ctx context.Context, params application.SignupParams) error
}

// EventHandler serves the game listing and the signup endpoints.
type EventHandler struct {
	service   signupService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

// NewEventHandler constructs an EventHandler. Times are rendered in loc.
func NewEventHandler(service signupService, loc *time.Location, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.UTC
	}
	return &EventHandler{service: service, location: loc, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	events, err := h.service.ActiveEvents(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "event list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event, h.location))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: out})
}

func (h *EventHandler) Signups(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	signups, err := h.service.ListSignups(r.Context(), eventID)
	if err != nil {
		h.log(r.Context(), "Signups", "event_id", eventID).ErrorContext(r.Context(), "signup list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]signupDTO, 0, len(signups))
	for _, signup := range signups {
		out = append(out, toSignupDTO(signup, h.location))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSignupsResponse{Signups: out, Count: len(out)})
}

func (h *EventHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, ok := h.decodeParams(w, r, "Signup")
	if !ok {
		return
	}

	signup, err := h.service.Signup(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, signupResponse{Signup: toSignupDTO(signup, h.location)})
}

func (h *EventHandler) Signout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, ok := h.decodeParams(w, r, "Signout")
	if !ok {
		return
	}

	if err := h.service.Signout(r.Context(), params); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// decodeParams reads the credentials body. The service logs the outcome of
// the operation itself.
func (h *EventHandler) decodeParams(w http.ResponseWriter, r *http.Request, operation string) (application.SignupParams, bool) {
	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing event id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return application.SignupParams{}, false
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), operation, "event_id", eventID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode credentials", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return application.SignupParams{}, false
	}

	return application.SignupParams{
		EventID:  eventID,
		Nickname: req.Nickname,
		Password: req.Password,
		Limiter:  LimiterFromContext(r.Context()),
	}, true
}

type credentialsRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

type eventDTO struct {
	ID        string `json:"id"`
	StartTime string `json:"start_time"`
	Active    bool   `json:"active"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type signupDTO struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	Timestamp string `json:"timestamp"`
}

type signupResponse struct {
	Signup signupDTO `json:"signup"`
}

type listSignupsResponse struct {
	Signups []signupDTO `json:"signups"`
	Count   int         `json:"count"`
}

func toEventDTO(event application.Event, loc *time.Location) eventDTO {
	return eventDTO{
		ID:        event.ID,
		StartTime: event.StartTime.In(loc).Format(time.RFC3339),
		Active:    event.Active,
	}
}

func toSignupDTO(signup application.Signup, loc *time.Location) signupDTO {
	return signupDTO{
		ID:        signup.ID,
		Nickname:  signup.Nickname,
		Timestamp: signup.Timestamp.In(loc).Format(time.RFC3339),
	}
}
