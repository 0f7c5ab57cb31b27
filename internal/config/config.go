// Package config loads the dashboard settings from the environment
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Config holds all dashboard settings, populated from environment variables
type Config struct {
	APIBaseURL      string
	HTTPTimeout     time.Duration
	CatalogCacheTTL time.Duration

	CookieTTL    time.Duration
	CookieDBPath string

	OutputPath        string
	RefreshSchedule   string
	DefaultPeriodDays int

	TelegramBotToken string
	MetricsTextfile  string // empty disables the textfile dump

	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file and then the environment, applying defaults where unset
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	} else if err == nil {
		log.Debug().Msg("Loaded environment from .env")
	}
	return FromEnv()
}

// FromEnv reads configuration from environment variables only
func FromEnv() (*Config, error) {
	httpTimeout, err := positiveDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := positiveDuration("CATALOG_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}
	cookieTTL, err := positiveDuration("COOKIE_TTL", "8760h")
	if err != nil {
		return nil, err
	}

	periodDays, err := strconv.Atoi(envOrDefault("DEFAULT_PERIOD_DAYS", "90"))
	if err != nil || periodDays <= 0 {
		return nil, errors.New("invalid DEFAULT_PERIOD_DAYS")
	}

	cfg := &Config{
		APIBaseURL:        envOrDefault("API_BASE_URL", "http://localhost:8000"),
		HTTPTimeout:       httpTimeout,
		CatalogCacheTTL:   cacheTTL,
		CookieTTL:         cookieTTL,
		CookieDBPath:      envOrDefault("COOKIE_DB_PATH", "data/preferences.db"),
		OutputPath:        envOrDefault("OUTPUT_PATH", "data/dashboard.html"),
		RefreshSchedule:   envOrDefault("REFRESH_SCHEDULE", "0 * * * *"),
		DefaultPeriodDays: periodDays,
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		MetricsTextfile:   os.Getenv("METRICS_TEXTFILE"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		LogFormat:         envOrDefault("LOG_FORMAT", "console"),
	}

	if u, err := url.Parse(cfg.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("invalid API_BASE_URL")
	}
	if _, err := cron.ParseStandard(cfg.RefreshSchedule); err != nil {
		return nil, fmt.Errorf("invalid REFRESH_SCHEDULE: %w", err)
	}
	if cfg.OutputPath == "" {
		return nil, errors.New("OUTPUT_PATH is required")
	}

	return cfg, nil
}

// RequireTelegram checks that the bot token is present
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func positiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
