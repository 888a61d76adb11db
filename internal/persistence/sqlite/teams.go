package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/pickup-games/internal/persistence"
)

// ReplaceTeamAssignments swaps the stored teams of an event in one
// transaction. Positions follow slice order.
func (s *Store) ReplaceTeamAssignments(ctx context.Context, eventID string, teams []persistence.TeamAssignment) error {
	err := s.pool.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM team_assignments WHERE event_id = ?`, eventID); err != nil {
			return err
		}
		for i, team := range teams {
			members, err := json.Marshal(nonNil(team.Members))
			if err != nil {
				return fmt.Errorf("encode members of %q: %w", team.Label, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO team_assignments (event_id, label, position, members) VALUES (?, ?, ?, ?)`,
				eventID, team.Label, i, string(members),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.mapper.MapError(fmt.Errorf("sqlite: replace teams of %s: %w", eventID, err))
	}
	return nil
}

// ListTeamAssignments returns the stored teams of an event in draw order.
func (s *Store) ListTeamAssignments(ctx context.Context, eventID string) ([]persistence.TeamAssignment, error) {
	var teams []persistence.TeamAssignment
	err := s.pool.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT label, position, members FROM team_assignments WHERE event_id = ? ORDER BY position ASC`, eventID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			team := persistence.TeamAssignment{EventID: eventID}
			var raw string
			if err := rows.Scan(&team.Label, &team.Position, &raw); err != nil {
				return err
			}
			if team.Members, err = decodeMembers(raw); err != nil {
				return fmt.Errorf("decode members of %q: %w", team.Label, err)
			}
			teams = append(teams, team)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, s.mapper.MapError(fmt.Errorf("sqlite: list teams of %s: %w", eventID, err))
	}
	return teams, nil
}

func nonNil(members []string) []string {
	if members == nil {
		return []string{}
	}
	return members
}

// decodeMembers reads a stored member list. Rows are JSON arrays; rows
// imported from the legacy database hold a Python list literal such as
// ['anna', "o'neil"].
func decodeMembers(raw string) ([]string, error) {
	var members []string
	if err := json.Unmarshal([]byte(raw), &members); err == nil {
		return nonNil(members), nil
	}
	return decodeListLiteral(raw)
}

func decodeListLiteral(raw string) ([]string, error) {
	s := strings.TrimSpace(raw)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("unrecognised member list %q", raw)
	}
	body := []rune(s[1 : len(s)-1])

	members := []string{}
	expectItem := true
	for i := 0; i < len(body); i++ {
		r := body[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n':
			continue
		case r == ',':
			if expectItem {
				return nil, fmt.Errorf("empty item in member list %q", raw)
			}
			expectItem = true
		case r == '\'' || r == '"':
			if !expectItem {
				return nil, fmt.Errorf("missing comma in member list %q", raw)
			}
			var b strings.Builder
			closed := false
			for i++; i < len(body); i++ {
				c := body[i]
				if c == '\\' && i+1 < len(body) {
					i++
					b.WriteRune(body[i])
					continue
				}
				if c == r {
					closed = true
					break
				}
				b.WriteRune(c)
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string in member list %q", raw)
			}
			members = append(members, b.String())
			expectItem = false
		default:
			return nil, fmt.Errorf("unexpected %q in member list %q", r, raw)
		}
	}
	// A trailing comma is accepted, as in Python.
	return members, nil
}
