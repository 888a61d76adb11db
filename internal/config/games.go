package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/pickup-games/internal/application"
	"github.com/example/pickup-games/internal/recurrence"
	"github.com/example/pickup-games/internal/teams"
)

// Games is the weekly game configuration read from YAML.
type Games struct {
	Timezone       string                     `yaml:"timezone"`
	LookaheadWeeks int                        `yaml:"lookahead_weeks"`
	Game           *SlotConfig                `yaml:"game"`
	Signup         *SlotConfig                `yaml:"signup"`
	Draw           *SlotConfig                `yaml:"draw"`
	Teams          map[int]TeamConfig         `yaml:"teams"`
	RateLimits     map[string]RateLimitConfig `yaml:"rate_limits"`
}

// SlotConfig is a weekday and wall-clock time.
type SlotConfig struct {
	Day    Weekday `yaml:"day"`
	Hour   int     `yaml:"hour"`
	Minute int     `yaml:"minute"`
}

// Weekday accepts English names ("wednesday", "Wed") or numbers with 0 as
// Sunday.
type Weekday time.Weekday

// UnmarshalYAML implements yaml.Unmarshaler.
func (w *Weekday) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: weekday must be a scalar", value.Line)
	}
	day, err := recurrence.ParseWeekday(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*w = Weekday(day)
	return nil
}

// TeamConfig describes the teams for one participant count: one color and one
// size per team.
type TeamConfig struct {
	Count          int      `yaml:"count"`
	Colors         []string `yaml:"colors"`
	PlayersPerTeam []int    `yaml:"players_per_team"`
}

// RateLimitConfig bounds attempts of one action per session.
type RateLimitConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Window      time.Duration `yaml:"window"`
}

// DefaultGames returns the stock configuration: games on Wednesday 18:30,
// signups from Monday 10:00, draws from Wednesday 15:00, Europe/Warsaw.
func DefaultGames() Games {
	games := Games{}
	applyGameDefaults(&games)
	return games
}

// LoadGames reads the YAML file at path and fills unset sections with the
// defaults. An empty path yields DefaultGames.
func LoadGames(path string) (Games, error) {
	if path == "" {
		return DefaultGames(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Games{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseGames(data)
}

// ParseGames decodes and validates YAML configuration.
func ParseGames(data []byte) (Games, error) {
	var games Games
	if err := yaml.Unmarshal(data, &games); err != nil {
		return Games{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyGameDefaults(&games)

	if err := games.Validate(); err != nil {
		return Games{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return games, nil
}

func applyGameDefaults(g *Games) {
	if g.Timezone == "" {
		g.Timezone = "Europe/Warsaw"
	}
	if g.LookaheadWeeks == 0 {
		g.LookaheadWeeks = 4
	}
	if g.Game == nil {
		g.Game = &SlotConfig{Day: Weekday(time.Wednesday), Hour: 18, Minute: 30}
	}
	if g.Signup == nil {
		g.Signup = &SlotConfig{Day: Weekday(time.Monday), Hour: 10}
	}
	if g.Draw == nil {
		g.Draw = &SlotConfig{Day: Weekday(time.Wednesday), Hour: 15}
	}
	if len(g.Teams) == 0 {
		g.Teams = map[int]TeamConfig{
			10: {Count: 2, Colors: []string{"red", "blue"}, PlayersPerTeam: []int{5, 5}},
			12: {Count: 2, Colors: []string{"red", "blue"}, PlayersPerTeam: []int{6, 6}},
			14: {Count: 2, Colors: []string{"red", "blue"}, PlayersPerTeam: []int{7, 7}},
			15: {Count: 3, Colors: []string{"red", "blue", "white"}, PlayersPerTeam: []int{5, 5, 5}},
			18: {Count: 3, Colors: []string{"red", "blue", "white"}, PlayersPerTeam: []int{6, 6, 6}},
		}
	}
	if g.RateLimits == nil {
		g.RateLimits = make(map[string]RateLimitConfig)
	}
	for kind, limit := range application.DefaultRateLimits() {
		if _, ok := g.RateLimits[string(kind)]; !ok {
			g.RateLimits[string(kind)] = RateLimitConfig{MaxAttempts: limit.MaxAttempts, Window: limit.Window}
		}
	}
}

// Validate checks every section and reports all problems at once.
func (g Games) Validate() error {
	var errs []error

	if _, err := time.LoadLocation(g.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if g.LookaheadWeeks < 1 {
		errs = append(errs, fmt.Errorf("lookahead_weeks must be positive, got %d", g.LookaheadWeeks))
	}
	if err := g.Rule().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := g.Table(); err != nil {
		errs = append(errs, err)
	}
	if _, err := g.Limits(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location loads the configured zone.
func (g Games) Location() (*time.Location, error) {
	return time.LoadLocation(g.Timezone)
}

// Rule converts the three slots.
func (g Games) Rule() recurrence.Rule {
	return recurrence.Rule{
		Game:       g.Game.slot(),
		SignupOpen: g.Signup.slot(),
		Draw:       g.Draw.slot(),
	}
}

func (s *SlotConfig) slot() recurrence.Slot {
	if s == nil {
		return recurrence.Slot{}
	}
	return recurrence.Slot{Weekday: time.Weekday(s.Day), Hour: s.Hour, Minute: s.Minute}
}

// Table converts the team configuration into a validated shape table.
func (g Games) Table() (teams.Table, error) {
	counts := make([]int, 0, len(g.Teams))
	for count := range g.Teams {
		counts = append(counts, count)
	}
	sort.Ints(counts)

	table := make(teams.Table, len(g.Teams))
	for _, count := range counts {
		cfg := g.Teams[count]
		if len(cfg.Colors) != len(cfg.PlayersPerTeam) {
			return nil, fmt.Errorf("teams %d: %d colors for %d team sizes", count, len(cfg.Colors), len(cfg.PlayersPerTeam))
		}
		if cfg.Count != 0 && cfg.Count != len(cfg.Colors) {
			return nil, fmt.Errorf("teams %d: count %d does not match %d colors", count, cfg.Count, len(cfg.Colors))
		}
		shape := make(teams.Shape, 0, len(cfg.Colors))
		for i, color := range cfg.Colors {
			shape = append(shape, teams.Slot{Label: color, Size: cfg.PlayersPerTeam[i]})
		}
		table[count] = shape
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Limits converts the rate limits. Unknown actions are rejected.
func (g Games) Limits() (map[application.ActionKind]application.RateLimit, error) {
	out := make(map[application.ActionKind]application.RateLimit, len(g.RateLimits))
	for name, cfg := range g.RateLimits {
		kind := application.ActionKind(name)
		if kind != application.ActionSignup && kind != application.ActionSignout {
			return nil, fmt.Errorf("rate_limits: unknown action %q", name)
		}
		if cfg.MaxAttempts <= 0 || cfg.Window <= 0 {
			return nil, fmt.Errorf("rate_limits %s: max_attempts and window must be positive", name)
		}
		out[kind] = application.RateLimit{MaxAttempts: cfg.MaxAttempts, Window: cfg.Window}
	}
	return out, nil
}
