package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/pickup-games/internal/persistence/sqlite"
	"github.com/example/pickup-games/internal/persistence/sqlite/migration"
)

// NewSQLiteStore opens a migrated store on a temporary file in loc. The store
// is closed when the test finishes.
func NewSQLiteStore(tb testing.TB, loc *time.Location) *sqlite.Store {
	tb.Helper()

	cfg := migration.DefaultSQLiteConfig(filepath.Join(tb.TempDir(), "games.db"))
	store, err := sqlite.Open(context.Background(), cfg, sqlite.Options{
		Location: loc,
		Timeout:  5 * time.Second,
	})
	if err != nil {
		tb.Fatalf("failed to open store: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })
	return store
}

// Warsaw loads the Europe/Warsaw zone used by the default game rule.
func Warsaw(tb testing.TB) *time.Location {
	tb.Helper()
	loc, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		tb.Fatalf("failed to load Europe/Warsaw: %v", err)
	}
	return loc
}
