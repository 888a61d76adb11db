package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New(&buf, slog.LevelInfo, "json").Info("hello", "event_id", "e1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "hello" || record["event_id"] != "e1" {
		t.Fatalf("unexpected record %v", record)
	}

	buf.Reset()
	logger := New(&buf, slog.LevelWarn, "TEXT")
	logger.Info("dropped")
	logger.Warn("kept")
	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "level=WARN msg=kept") {
		t.Fatalf("unexpected text output %q", out)
	}
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no logger in an empty context")
	}

	logger := slog.Default()
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected the attached logger")
	}

	if got := ContextWithLogger(ctx, nil); got != ctx {
		t.Fatalf("expected a nil logger to leave the context unchanged")
	}
}
