package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/example/pickup-games/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := map[string]error{
		"":                           nil,
		"rate_limited":               &RateLimitError{Action: ActionSignup, Cooldown: time.Second},
		"duplicate_nickname":         fmt.Errorf("insert: %w", ErrDuplicateNickname),
		"invalid_credentials":        ErrInvalidCredentials,
		"no_active_event":            ErrNoActiveEvent,
		"draw_window_closed":         ErrDrawWindowClosed,
		"manual_assignment_required": ErrManualAssignmentRequired,
		"store_unavailable":          ErrStoreUnavailable,
		"not_found":                  ErrNotFound,
		"validation":                 &ValidationError{FieldErrors: map[string]string{"nickname": "bad"}},
		"unexpected":                 errors.New("boom"),
	}
	for want, err := range tests {
		if got := ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestServiceLogger_PrefersContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctxLogger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := logging.ContextWithLogger(context.Background(), ctxLogger)

	serviceLogger(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), "SignupService", "Signup", "event_id", "e1").Info("hello")

	out := buf.String()
	for _, want := range []string{"service=SignupService", "operation=Signup", "event_id=e1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}
