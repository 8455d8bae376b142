// Package query holds the request-scoped compilation context.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"tenantql/internal/domain"
	"tenantql/internal/schema"
)

// Dialect selects the printer output.
type Dialect string

const (
	// DialectSource re-serializes the query language itself.
	DialectSource Dialect = "source"
	// DialectExecution renders SQL for the analytical database.
	DialectExecution Dialect = "execution"
)

// ParseDialect validates a dialect name.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(s)) {
	case DialectSource:
		return DialectSource, nil
	case DialectExecution:
		return DialectExecution, nil
	default:
		return "", domain.ErrValidation("unknown dialect %q: use source or execution", s)
	}
}

// DefaultMaxRows caps the rows returned by a top-level select.
const DefaultMaxRows = 65535

// Setting is one entry of the trailing SETTINGS clause.
type Setting struct {
	Key   string
	Value any
}

// Context carries the state of one compilation. It is mutated while
// printing and must not be shared between concurrent compilations.
type Context struct {
	// TeamID scopes every physical table. Zero means unset.
	TeamID int64
	// Database is built from the team options on first use when nil.
	Database *schema.Database
	// Values collects parameterized literals as param_N.
	Values map[string]any

	EnableSelectQueries bool
	LimitTopSelect      bool
	// MaxRows overrides DefaultMaxRows when positive.
	MaxRows int
	// LegacyTranslation prints person properties the way pre-existing
	// insight queries expect them.
	LegacyTranslation bool
	PersonOnEvents    bool
	Timezone          string

	Settings []Setting

	// Optional collaborators; nil means the feature is unavailable.
	Materialized        domain.MaterializedColumns
	PropertyDefinitions domain.PropertyDefinitions
}

// New returns a context for the given team with selects enabled and the
// row cap applied.
func New(teamID int64) *Context {
	return &Context{
		TeamID:              teamID,
		Values:              map[string]any{},
		EnableSelectQueries: true,
		LimitTopSelect:      true,
	}
}

// EnsureDatabase returns the catalog, building the default one for the
// team when none was supplied.
func (c *Context) EnsureDatabase() *schema.Database {
	if c.Database == nil {
		c.Database = schema.New(schema.Options{
			Timezone:       c.Timezone,
			PersonOnEvents: c.PersonOnEvents,
		})
	}
	return c.Database
}

// AddValue stores a literal and returns its parameter name.
func (c *Context) AddValue(v any) string {
	if c.Values == nil {
		c.Values = map[string]any{}
	}
	key := "param_" + strconv.Itoa(len(c.Values))
	c.Values[key] = v
	return key
}

// ParamNames returns the parameter names in assignment order.
func (c *Context) ParamNames() []string {
	names := make([]string, len(c.Values))
	for i := range names {
		names[i] = "param_" + strconv.Itoa(i)
	}
	return names
}

// RowCap returns the effective row cap.
func (c *Context) RowCap() int {
	if c.MaxRows > 0 {
		return c.MaxRows
	}
	return DefaultMaxRows
}

// LookupMaterialized queries the materialized column collaborator. A
// missing collaborator finds nothing.
func (c *Context) LookupMaterialized(table, property, field string) (string, bool) {
	if c.Materialized == nil {
		return "", false
	}
	return c.Materialized.Lookup(table, property, field)
}

// ActiveTimezone returns the catalog timezone, UTC when no catalog is set.
func (c *Context) ActiveTimezone() string {
	if c.Database != nil {
		return c.Database.Timezone()
	}
	return schema.DefaultTimezone
}

func (c *Context) String() string {
	return fmt.Sprintf("Context(team=%d, values=%d)", c.TeamID, len(c.Values))
}
