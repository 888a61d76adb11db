package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/pickup-games/internal/application"
	"github.com/example/pickup-games/internal/testfixtures"
)

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookieName {
			return cookie
		}
	}
	return nil
}

func TestSessions_IssuesCookie(t *testing.T) {
	t.Parallel()

	registry := application.NewLimiterRegistry(application.DefaultRateLimits(), time.Hour, 0, nil)
	var seen *application.Limiter
	handler := Sessions(registry, 30*time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = LimiterFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "https://games.example/events", nil))

	cookie := sessionCookie(t, rec)
	if cookie == nil {
		t.Fatalf("expected a session cookie to be issued")
	}
	if !cookie.Secure {
		t.Fatalf("expected a Secure cookie over TLS")
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		t.Fatalf("expected a uuid session id, got %q", cookie.Value)
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode || cookie.Path != "/" {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}
	if cookie.MaxAge != 1800 {
		t.Fatalf("expected MaxAge 1800, got %d", cookie.MaxAge)
	}
	if seen == nil {
		t.Fatalf("expected a limiter in the request context")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected one tracked session, got %d", registry.Len())
	}
}

func TestSessions_SecureFollowsScheme(t *testing.T) {
	t.Parallel()

	registry := application.NewLimiterRegistry(application.DefaultRateLimits(), time.Hour, 0, nil)
	handler := Sessions(registry, time.Hour)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	tests := []struct {
		name   string
		target string
		proto  string
		secure bool
	}{
		{"plain http", "http://games.example/events", "", false},
		{"forwarded https", "http://games.example/events", "https", true},
		{"forwarded chain", "http://games.example/events", "HTTPS, http", true},
		{"forwarded http", "http://games.example/events", "http", false},
		{"tls", "https://games.example/events", "", true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.target, nil)
		if tt.proto != "" {
			req.Header.Set("X-Forwarded-Proto", tt.proto)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		cookie := sessionCookie(t, rec)
		if cookie == nil {
			t.Fatalf("%s: expected a session cookie", tt.name)
		}
		if cookie.Secure != tt.secure {
			t.Fatalf("%s: expected Secure=%v, got %v", tt.name, tt.secure, cookie.Secure)
		}
	}
}

func TestSessions_RoundTripOverPlainHTTP(t *testing.T) {
	t.Parallel()

	registry := application.NewLimiterRegistry(application.DefaultRateLimits(), time.Hour, 0, nil)
	var (
		mu   sync.Mutex
		seen []*application.Limiter
	)
	server := httptest.NewServer(Sessions(registry, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, LimiterFromContext(r.Context()))
	})))
	defer server.Close()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar}
	for i := 0; i < 2; i++ {
		resp, err := client.Get(server.URL + "/events")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] == nil || seen[0] != seen[1] {
		t.Fatalf("expected the browser to keep its session over plain http")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected one tracked session, got %d", registry.Len())
	}
}

func TestSessions_ReusesLimiterForKnownSession(t *testing.T) {
	t.Parallel()

	registry := application.NewLimiterRegistry(application.DefaultRateLimits(), time.Hour, 0, nil)
	var seen []*application.Limiter
	handler := Sessions(registry, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, LimiterFromContext(r.Context()))
	}))

	session := uuid.NewString()
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if cookie := sessionCookie(t, rec); cookie != nil {
			t.Fatalf("known session must not be reissued, got %+v", cookie)
		}
	}
	if len(seen) != 2 || seen[0] == nil || seen[0] != seen[1] {
		t.Fatalf("expected the same limiter for both requests")
	}
}

func TestSessions_ReplacesMalformedCookie(t *testing.T) {
	t.Parallel()

	registry := application.NewLimiterRegistry(application.DefaultRateLimits(), time.Hour, 0, nil)
	handler := Sessions(registry, time.Hour)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "not-a-session"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	cookie := sessionCookie(t, rec)
	if cookie == nil || cookie.Value == "not-a-session" {
		t.Fatalf("expected a replacement session cookie, got %+v", cookie)
	}
}

func TestSessions_RateLimitsPerSession(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	limits := map[application.ActionKind]application.RateLimit{
		application.ActionSignup: {MaxAttempts: 1, Window: time.Minute},
	}
	registry := application.NewLimiterRegistry(limits, time.Hour, 0, clock.NowFunc())

	stub := &signupServiceStub{}
	stub.signupFn = func(params application.SignupParams) (application.Signup, error) {
		if err := params.Limiter.Allow(application.ActionSignup); err != nil {
			return application.Signup{}, err
		}
		return application.Signup{ID: "signup-1", EventID: params.EventID, Nickname: params.Nickname, Timestamp: clock.Now()}, nil
	}
	router := NewRouter(RouterConfig{
		Events:     NewEventHandler(stub, time.UTC, discardLogger()),
		Middleware: []func(http.Handler) http.Handler{Sessions(registry, time.Hour)},
	})

	post := func(session string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/events/event-1/signups", strings.NewReader(`{"nickname":"anna","password":"secret1"}`))
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := uuid.NewString()
	if rec := post(first); rec.Code != http.StatusCreated {
		t.Fatalf("expected first attempt to succeed, got %d", rec.Code)
	}
	rec := post(first)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second attempt to be limited, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After 60, got %q", got)
	}

	if rec := post(uuid.NewString()); rec.Code != http.StatusCreated {
		t.Fatalf("expected another session to have its own limit, got %d", rec.Code)
	}

	clock.Advance(time.Minute)
	if rec := post(first); rec.Code != http.StatusCreated {
		t.Fatalf("expected attempt after the window to succeed, got %d", rec.Code)
	}
}

func TestSessions_NilSource(t *testing.T) {
	t.Parallel()

	called := false
	handler := Sessions(nil, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = LimiterFromContext(r.Context()) == nil
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatalf("expected request to pass through without a limiter")
	}
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var fromContext *slog.Logger
	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext = LoggerFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/calendar", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/calendar", nil))

	if fromContext == nil {
		t.Fatalf("expected a request logger in the context")
	}
	out := buf.String()
	for _, want := range []string{
		"request started",
		"request completed",
		"status=418",
		"path=/calendar",
		"request_id=1",
		"request_id=2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to contain %q, got:\n%s", want, out)
		}
	}
}
