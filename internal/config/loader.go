package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the games service.
type Config struct {
	HTTPPort          int
	SQLitePath        string
	StoreTimeout      time.Duration
	ConfigFile        string
	ReconcileSchedule string
	SessionTTL        time.Duration
	LogLevel          slog.Level
	LogFormat         string
}

// Load parses configuration values from the current process environment.
//
// Optional values fall back to defaults. Every malformed variable is reported
// in a single error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		SQLitePath:        "games.db",
		StoreTimeout:      5 * time.Second,
		ReconcileSchedule: "@hourly",
		SessionTTL:        time.Hour,
		LogLevel:          slog.LevelInfo,
		LogFormat:         "json",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("GAMES_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "GAMES_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := strings.TrimSpace(os.Getenv("GAMES_SQLITE_PATH")); path != "" {
		cfg.SQLitePath = path
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("GAMES_STORE_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "GAMES_STORE_TIMEOUT")
		} else {
			cfg.StoreTimeout = timeout
		}
	}

	cfg.ConfigFile = strings.TrimSpace(os.Getenv("GAMES_CONFIG_FILE"))

	if schedule := strings.TrimSpace(os.Getenv("GAMES_RECONCILE_SCHEDULE")); schedule != "" {
		cfg.ReconcileSchedule = schedule
	}

	if ttlValue := strings.TrimSpace(os.Getenv("GAMES_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "GAMES_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if levelValue := strings.TrimSpace(os.Getenv("GAMES_LOG_LEVEL")); levelValue != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, "GAMES_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if format := strings.ToLower(strings.TrimSpace(os.Getenv("GAMES_LOG_FORMAT"))); format != "" {
		if format != "json" && format != "text" {
			invalid = append(invalid, "GAMES_LOG_FORMAT")
		} else {
			cfg.LogFormat = format
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
