package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/pickup-games/internal/persistence"
)

const signupColumns = `id, event_id, nickname, password_hash, created_at`

// ListSignups returns the signups of an event in signup order.
func (s *Store) ListSignups(ctx context.Context, eventID string) ([]persistence.Signup, error) {
	var signups []persistence.Signup
	err := s.pool.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+signupColumns+` FROM signups WHERE event_id = ? ORDER BY created_at ASC, rowid ASC`, eventID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			signup, err := scanSignup(rows)
			if err != nil {
				return err
			}
			signups = append(signups, signup)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, s.mapper.MapError(fmt.Errorf("sqlite: list signups of %s: %w", eventID, err))
	}
	return signups, nil
}

// FindSignup returns the signup of nickname for an event.
func (s *Store) FindSignup(ctx context.Context, eventID, nickname string) (persistence.Signup, error) {
	var signup persistence.Signup
	err := s.pool.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+signupColumns+` FROM signups WHERE event_id = ? AND nickname = ?`, eventID, nickname)
		var err error
		signup, err = scanSignup(row)
		return err
	})
	if err != nil {
		return persistence.Signup{}, s.mapper.MapError(fmt.Errorf("sqlite: find signup %q of %s: %w", nickname, eventID, err))
	}
	return signup, nil
}

// CreateSignup inserts signup. A taken nickname yields ErrDuplicate and an
// unknown event ErrNotFound.
func (s *Store) CreateSignup(ctx context.Context, signup persistence.Signup) error {
	if signup.ID == "" {
		return fmt.Errorf("sqlite: create signup %q of %s: empty id", signup.Nickname, signup.EventID)
	}
	err := s.pool.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO signups (`+signupColumns+`) VALUES (?, ?, ?, ?, ?)`,
			signup.ID, signup.EventID, signup.Nickname, signup.PasswordHash, formatTime(signup.Timestamp),
		)
		return err
	})
	if err != nil {
		return s.mapper.MapError(fmt.Errorf("sqlite: create signup %q of %s: %w", signup.Nickname, signup.EventID, err))
	}
	return nil
}

// DeleteSignup removes the signup with id.
func (s *Store) DeleteSignup(ctx context.Context, id string) error {
	err := s.pool.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM signups WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
	if err != nil {
		return s.mapper.MapError(fmt.Errorf("sqlite: delete signup %s: %w", id, err))
	}
	return nil
}

func scanSignup(row rowScanner) (persistence.Signup, error) {
	var (
		signup    persistence.Signup
		createdAt string
	)
	if err := row.Scan(&signup.ID, &signup.EventID, &signup.Nickname, &signup.PasswordHash, &createdAt); err != nil {
		return persistence.Signup{}, err
	}
	ts, err := parseTime(createdAt)
	if err != nil {
		return persistence.Signup{}, err
	}
	signup.Timestamp = ts
	return signup, nil
}
