// Package config loads server settings from the environment. A .env file in
// the working directory is read first when present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // containers often ship without zoneinfo

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultSessionSecret is the development fallback for SESSION_SECRET.
const DefaultSessionSecret = "secret_key_change_me"

type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	DatabaseURL   string `env:"DATABASE_URL" envDefault:"host=localhost user=postgres password=postgres dbname=brainshare port=5432 sslmode=disable TimeZone=UTC"`
	SessionSecret string `env:"SESSION_SECRET" envDefault:"secret_key_change_me"`
	SiteURL       string `env:"SITE_URL" envDefault:"http://localhost:8080"`

	// Timezone decides where the calendar day of the daily quotas rolls over.
	Timezone string `env:"TIMEZONE" envDefault:"UTC"`

	DailyLikeLimit    int `env:"DAILY_LIKE_LIMIT" envDefault:"3"`
	DailyCommentLimit int `env:"DAILY_COMMENT_LIMIT" envDefault:"3"`
	LeaderboardSize   int `env:"LEADERBOARD_SIZE" envDefault:"50"`

	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // text | json
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// Optional bootstrap administrator, created on first start.
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DailyLikeLimit < 0 || c.DailyCommentLimit < 0 {
		return fmt.Errorf("config: daily limits must not be negative")
	}
	if c.LeaderboardSize <= 0 {
		return fmt.Errorf("config: LEADERBOARD_SIZE must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Logger builds the process logger described by LogFormat and LogLevel.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
