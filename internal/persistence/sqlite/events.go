package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/pickup-games/internal/persistence"
	"github.com/example/pickup-games/internal/recurrence"
)

const eventColumns = `id, start_time, active, created_at`

// ListEvents returns events matching filter ordered by start time. Time bounds
// are exclusive.
func (s *Store) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	var (
		where []string
		args  []any
	)
	if filter.Active != nil {
		where = append(where, "active = ?")
		args = append(args, boolToInt(*filter.Active))
	}
	if filter.StartsBefore != nil {
		where = append(where, "start_time < ?")
		args = append(args, formatTime(*filter.StartsBefore))
	}
	if filter.StartsAfter != nil {
		where = append(where, "start_time > ?")
		args = append(args, formatTime(*filter.StartsAfter))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_time ASC`

	var events []persistence.Event
	err := s.pool.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			event, err := scanEvent(rows)
			if err != nil {
				return err
			}
			events = append(events, event)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, s.mapper.MapError(fmt.Errorf("sqlite: list events: %w", err))
	}
	return events, nil
}

// GetEvent returns the event with id.
func (s *Store) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	var event persistence.Event
	err := s.pool.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
		var err error
		event, err = scanEvent(row)
		return err
	})
	if err != nil {
		return persistence.Event{}, s.mapper.MapError(fmt.Errorf("sqlite: get event %s: %w", id, err))
	}
	return event, nil
}

// CreateEvent inserts event. A second event on the same calendar date is
// rejected with ErrDuplicate.
func (s *Store) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return fmt.Errorf("sqlite: create event: empty id")
	}
	err := s.pool.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, start_time, game_date, active, created_at) VALUES (?, ?, ?, ?, ?)`,
			event.ID,
			formatTime(event.StartTime),
			event.StartTime.In(s.location).Format(recurrence.DateLayout),
			boolToInt(event.Active),
			formatTime(event.CreatedAt),
		)
		return err
	})
	if err != nil {
		return s.mapper.MapError(fmt.Errorf("sqlite: create event %s: %w", event.ID, err))
	}
	return nil
}

// SetEventActive updates the active flag of the event with id.
func (s *Store) SetEventActive(ctx context.Context, id string, active bool) error {
	err := s.pool.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE events SET active = ? WHERE id = ?`, boolToInt(active), id)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
	if err != nil {
		return s.mapper.MapError(fmt.Errorf("sqlite: set event %s active=%t: %w", id, active, err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event            persistence.Event
		start, createdAt string
		active           int
	)
	if err := row.Scan(&event.ID, &start, &active, &createdAt); err != nil {
		return persistence.Event{}, err
	}
	var err error
	if event.StartTime, err = parseTime(start); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Event{}, err
	}
	event.Active = active == 1
	return event, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
