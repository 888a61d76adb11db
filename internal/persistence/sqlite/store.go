// Package sqlite implements the persistence repositories on SQLite through the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/pickup-games/internal/persistence"
	"github.com/example/pickup-games/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	_ persistence.EventRepository  = (*Store)(nil)
	_ persistence.SignupRepository = (*Store)(nil)
	_ persistence.TeamRepository   = (*Store)(nil)
)

// Options configures a Store.
type Options struct {
	// Location determines the calendar date that keys each event.
	Location *time.Location
	// Timeout bounds every store call.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Store implements the event, signup and team repositories.
type Store struct {
	pool     *ConnectionPool
	mapper   *ErrorMapper
	location *time.Location
}

// Open connects to the database described by cfg and applies pending
// migrations.
func Open(ctx context.Context, cfg migration.SQLiteConfig, opts Options) (*Store, error) {
	db, err := migration.Open(cfg)
	if err != nil {
		return nil, err
	}

	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewExecutor(db),
		opts.Logger,
	)
	if err := manager.Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		pool:     NewConnectionPool(db, opts.Timeout),
		mapper:   NewErrorMapper(),
		location: loc,
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping reports whether the database answers within the call timeout.
func (s *Store) Ping(ctx context.Context) error {
	return s.mapper.MapError(s.pool.Ping(ctx))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse timestamp %q: %w", value, err)
	}
	return t, nil
}
