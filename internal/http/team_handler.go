package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/pickup-games/internal/application"
)

type drawService interface {
	Draw(ctx context.Context, eventID string) ([]application.Team, error)
	Teams(ctx context.Context, eventID string) ([]application.Team, error)
}

// TeamHandler serves the team draw endpoints.
type TeamHandler struct {
	service   drawService
	responder responder
	logger    *slog.Logger
}

func NewTeamHandler(service drawService, logger *slog.Logger) *TeamHandler {
	base := defaultLogger(logger)
	return &TeamHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TeamHandler) eventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		handlerLogger(r.Context(), h.logger, "TeamHandler", "", "error_kind", "bad_request").ErrorContext(r.Context(), "missing event id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return "", false
	}
	return eventID, true
}

func (h *TeamHandler) Draw(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	drawn, err := h.service.Draw(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, teamsResponse{Teams: toTeamDTOs(drawn)})
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	stored, err := h.service.Teams(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, teamsResponse{Teams: toTeamDTOs(stored)})
}

type teamDTO struct {
	Label   string   `json:"label"`
	Members []string `json:"members"`
}

type teamsResponse struct {
	Teams []teamDTO `json:"teams"`
}

func toTeamDTOs(teams []application.Team) []teamDTO {
	out := make([]teamDTO, 0, len(teams))
	for _, team := range teams {
		members := team.Members
		if members == nil {
			members = []string{}
		}
		out = append(out, teamDTO{Label: team.Label, Members: members})
	}
	return out
}
