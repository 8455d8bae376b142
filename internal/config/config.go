// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"tenantql/internal/query"
	"tenantql/internal/schema"
)

// Config holds the compiler configuration shared by the CLI and the service.
type Config struct {
	LogLevel    string // log level: debug, info, warn, error (default "info")
	Env         string // environment: "development" (default) or "production"
	MetaDBPath  string // path to the SQLite metastore (optional)
	CatalogFile string // YAML catalog extension (optional)

	MaxSelectRows       int    // row cap for top-level selects (default 65535)
	DefaultTimezone     string // catalog timezone (default "UTC")
	PersonOnEvents      bool   // read person data from events instead of joining
	EnableSelectQueries bool   // allow SELECT in the execution dialect (default true)

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasMetastore reports whether a SQLite metastore is configured.
func (c *Config) HasMetastore() bool {
	return c.MetaDBPath != ""
}

// NewContext returns a compilation context for team carrying the
// configured limits and catalog options.
func (c *Config) NewContext(teamID int64) *query.Context {
	ctx := query.New(teamID)
	ctx.MaxRows = c.MaxSelectRows
	ctx.Timezone = c.DefaultTimezone
	ctx.PersonOnEvents = c.PersonOnEvents
	ctx.EnableSelectQueries = c.EnableSelectQueries
	return ctx
}

// LoadFromEnv loads configuration from environment variables. Invalid
// values fall back to their defaults and are reported in Warnings.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel:            os.Getenv("LOG_LEVEL"),
		Env:                 os.Getenv("ENV"),
		MetaDBPath:          strings.TrimSpace(os.Getenv("META_DB_PATH")),
		CatalogFile:         strings.TrimSpace(os.Getenv("CATALOG_FILE")),
		MaxSelectRows:       query.DefaultMaxRows,
		DefaultTimezone:     schema.DefaultTimezone,
		PersonOnEvents:      parseBoolEnvDefault("PERSON_ON_EVENTS", false),
		EnableSelectQueries: parseBoolEnvDefault("ENABLE_SELECT_QUERIES", true),
	}

	if v := strings.TrimSpace(os.Getenv("MAX_SELECT_ROWS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("MAX_SELECT_ROWS=%q is not a positive integer, using %d", v, query.DefaultMaxRows))
		} else {
			cfg.MaxSelectRows = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("DEFAULT_TIMEZONE")); v != "" {
		if _, err := time.LoadLocation(v); err != nil {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("DEFAULT_TIMEZONE=%q is not a known timezone, using %s", v, schema.DefaultTimezone))
		} else {
			cfg.DefaultTimezone = v
		}
	}

	for _, key := range []string{"PERSON_ON_EVENTS", "ENABLE_SELECT_QUERIES"} {
		if v := os.Getenv(key); v != "" && !isBoolString(v) {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%s=%q is not a boolean, using the default", key, v))
		}
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.IsProduction() && !cfg.EnableSelectQueries {
		cfg.Warnings = append(cfg.Warnings, "ENABLE_SELECT_QUERIES=false in production: every execution compile will be rejected")
	}

	if cfg.CatalogFile != "" {
		if _, err := os.Stat(cfg.CatalogFile); err != nil {
			return nil, fmt.Errorf("CATALOG_FILE: %w", err)
		}
	}

	return cfg, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

func isBoolString(v string) bool {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "0", "false", "no", "off", "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes matching surrounding double or single quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
