package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/pickup-games/internal/recurrence"
)

// CalendarHandler reports where the weekly cycle currently stands.
type CalendarHandler struct {
	calendar  *recurrence.Calendar
	lookahead int
	now       func() time.Time
	responder responder
}

// NewCalendarHandler constructs a CalendarHandler listing lookahead upcoming
// games.
func NewCalendarHandler(calendar *recurrence.Calendar, lookahead int, now func() time.Time, logger *slog.Logger) *CalendarHandler {
	if now == nil {
		now = time.Now
	}
	return &CalendarHandler{
		calendar:  calendar,
		lookahead: lookahead,
		now:       now,
		responder: newResponder(defaultLogger(logger)),
	}
}

func (h *CalendarHandler) Show(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.calendar == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	now := h.now()
	next := h.calendar.NextOccurrence(now)
	rule := h.calendar.Rule()

	upcoming := h.calendar.Upcoming(now, h.lookahead)
	dates := make([]string, 0, len(upcoming))
	for _, occurrence := range upcoming {
		dates = append(dates, h.format(occurrence))
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, calendarResponse{
		Timezone:       h.calendar.Location().String(),
		Now:            h.format(now),
		NextGame:       h.format(next),
		PreviousGame:   h.format(h.calendar.PreviousOccurrence(now)),
		SignupOpensAt:  h.format(h.calendar.SignupOpeningFor(next)),
		SignupOpen:     h.calendar.IsSignupWindowOpen(now, next),
		DrawWindowOpen: h.calendar.IsDrawWindowOpen(now),
		Rule: ruleDTO{
			Game:   rule.Game.String(),
			Signup: rule.SignupOpen.String(),
			Draw:   rule.Draw.String(),
		},
		Upcoming: dates,
	})
}

func (h *CalendarHandler) format(t time.Time) string {
	return t.In(h.calendar.Location()).Format(time.RFC3339)
}

type calendarResponse struct {
	Timezone       string   `json:"timezone"`
	Now            string   `json:"now"`
	NextGame       string   `json:"next_game"`
	PreviousGame   string   `json:"previous_game"`
	SignupOpensAt  string   `json:"signup_opens_at"`
	SignupOpen     bool     `json:"signup_open"`
	DrawWindowOpen bool     `json:"draw_window_open"`
	Rule           ruleDTO  `json:"rule"`
	Upcoming       []string `json:"upcoming"`
}

type ruleDTO struct {
	Game   string `json:"game"`
	Signup string `json:"signup"`
	Draw   string `json:"draw"`
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports store reachability.
type HealthHandler struct {
	store     Pinger
	timeout   time.Duration
	responder responder
	logger    *slog.Logger
}

// NewHealthHandler constructs a HealthHandler. A non-positive timeout means
// two seconds.
func NewHealthHandler(store Pinger, timeout time.Duration, logger *slog.Logger) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	base := defaultLogger(logger)
	return &HealthHandler{store: store, timeout: timeout, responder: newResponder(base), logger: base}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.store == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		handlerLogger(r.Context(), h.logger, "HealthHandler", "Check").WarnContext(r.Context(), "store ping failed", "error", err)
		h.responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}
