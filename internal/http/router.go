package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Events     *EventHandler
	Teams      *TeamHandler
	Calendar   *CalendarHandler
	Health     *HealthHandler
	Metrics    http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Events != nil {
		mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Events.List(w, r)
		})
	}

	if cfg.Events != nil || cfg.Teams != nil {
		mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
			id, resource, ok := splitEventPath(r.URL.Path)
			if !ok {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithEventID(r.Context(), id))

			switch {
			case resource == "signups" && cfg.Events != nil:
				switch r.Method {
				case http.MethodGet:
					cfg.Events.Signups(w, r)
				case http.MethodPost:
					cfg.Events.Signup(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			case resource == "signout" && cfg.Events != nil:
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Events.Signout(w, r)
			case resource == "teams" && cfg.Teams != nil:
				switch r.Method {
				case http.MethodGet:
					cfg.Teams.List(w, r)
				case http.MethodPost:
					cfg.Teams.Draw(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Calendar != nil {
		mux.HandleFunc("/calendar", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Calendar.Show(w, r)
		})
	}

	if cfg.Health != nil {
		mux.HandleFunc("/healthz", cfg.Health.Check)
	}

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// splitEventPath parses "/events/{id}/{resource}".
func splitEventPath(path string) (id, resource string, ok bool) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, "/events/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
