package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"tenantql/internal/ast"
	"tenantql/internal/config"
	"tenantql/internal/parser"
	"tenantql/internal/query"
)

// configFlags are the persistent flags that override environment config.
type configFlags struct {
	envFile        string
	logLevel       string
	metaDB         string
	catalog        string
	timezone       string
	maxRows        int
	personOnEvents bool
	enableSelect   bool
}

func (f *configFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.envFile, "env-file", ".env", "Read KEY=VALUE defaults from this file")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
	fs.StringVar(&f.metaDB, "meta-db", "", "SQLite metastore path (env META_DB_PATH)")
	fs.StringVar(&f.catalog, "catalog", "", "YAML catalog extension (env CATALOG_FILE)")
	fs.StringVar(&f.timezone, "timezone", "", "Catalog timezone (env DEFAULT_TIMEZONE)")
	fs.IntVar(&f.maxRows, "max-rows", 0, "Row cap for top-level selects (env MAX_SELECT_ROWS)")
	fs.BoolVar(&f.personOnEvents, "person-on-events", false, "Read person data from events (env PERSON_ON_EVENTS)")
	fs.BoolVar(&f.enableSelect, "enable-select", true, "Allow SELECT in the execution dialect (env ENABLE_SELECT_QUERIES)")
}

// apply copies every flag the user set onto cfg.
func (f *configFlags) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fs.Changed("meta-db") {
		cfg.MetaDBPath = f.metaDB
	}
	if fs.Changed("catalog") {
		cfg.CatalogFile = f.catalog
	}
	if fs.Changed("timezone") {
		cfg.DefaultTimezone = f.timezone
	}
	if fs.Changed("max-rows") {
		if f.maxRows <= 0 {
			return fmt.Errorf("--max-rows must be positive, got %d", f.maxRows)
		}
		cfg.MaxSelectRows = f.maxRows
	}
	if fs.Changed("person-on-events") {
		cfg.PersonOnEvents = f.personOnEvents
	}
	if fs.Changed("enable-select") {
		cfg.EnableSelectQueries = f.enableSelect
	}
	return nil
}

// parseSettings turns key=value pairs into SETTINGS entries. Integer and
// float values keep their numeric type.
func parseSettings(pairs []string) ([]query.Setting, error) {
	settings := make([]query.Setting, 0, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid setting %q: expected key=value", pair)
		}
		settings = append(settings, query.Setting{Key: key, Value: settingValue(value)})
	}
	return settings, nil
}

func settingValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// parsePlaceholders parses name=expression pairs. The expression is
// written in the source dialect, so strings need quotes.
func parsePlaceholders(pairs []string) (map[string]ast.Expr, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]ast.Expr, len(pairs))
	for _, pair := range pairs {
		name, src, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid placeholder %q: expected name=expression", pair)
		}
		expr, err := parser.ParseExpr(src)
		if err != nil {
			return nil, fmt.Errorf("placeholder %s: %w", name, err)
		}
		out[name] = expr
	}
	return out, nil
}
