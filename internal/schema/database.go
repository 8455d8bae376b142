package schema

import (
	"fmt"

	"tenantql/internal/domain"
)

// DefaultTimezone is used when a team has no timezone configured.
const DefaultTimezone = "UTC"

// Options selects the per-team variations of the default catalog.
type Options struct {
	Timezone string
	// PersonOnEvents routes events.person through the person columns
	// denormalised onto the events table instead of a join.
	PersonOnEvents bool
}

// Database is the catalog for one team. It is read-only once built and may
// be shared by concurrent compilations.
type Database struct {
	tables   []*Table
	byName   map[string]*Table
	timezone string
}

// NewDatabase returns an empty catalog.
func NewDatabase(timezone string) *Database {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	return &Database{byName: map[string]*Table{}, timezone: timezone}
}

// New returns the default analytics catalog.
func New(opts Options) *Database {
	d := NewDatabase(opts.Timezone)
	for _, t := range defaultTables(opts) {
		// Names in the default set are unique.
		_ = d.AddTable(t)
	}
	return d
}

// AddTable registers t under its source name.
func (d *Database) AddTable(t *Table) error {
	if t.SourceName() == "" {
		return domain.ErrValidation("table has no name")
	}
	if _, ok := d.byName[t.SourceName()]; ok {
		return domain.ErrValidation("table %q already exists", t.SourceName())
	}
	d.byName[t.SourceName()] = t
	d.tables = append(d.tables, t)
	return nil
}

// Timezone returns the team timezone.
func (d *Database) Timezone() string { return d.timezone }

// Tables returns every table in registration order.
func (d *Database) Tables() []*Table { return d.tables }

// HasTable reports whether name is a known table.
func (d *Database) HasTable(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// LookupTable returns the table registered under name.
func (d *Database) LookupTable(name string) (*Table, error) {
	t, ok := d.byName[name]
	if !ok {
		return nil, domain.ErrNotFound("unknown table %q", name)
	}
	return t, nil
}

// ResolveJoin returns the lazy join declared as field on table.
func (d *Database) ResolveJoin(table *Table, field string) (*LazyJoin, error) {
	f, ok := table.Field(field)
	if !ok {
		return nil, domain.ErrNotFound("unknown field %q on table %q", field, table.SourceName())
	}
	j, ok := f.(*LazyJoin)
	if !ok {
		return nil, domain.ErrNotFound("field %q on table %q is not a join", field, table.SourceName())
	}
	return j, nil
}

// LazySelectFor returns the subquery recipe for a lazy table or a join
// target. Physical tables get a plain select without arg-max deduplication.
func LazySelectFor(t *Table, keyField string) LazySelect {
	if t.Lazy != nil {
		return *t.Lazy
	}
	return LazySelect{Table: t.SourceName(), KeyFields: []string{keyField}}
}

func (d *Database) String() string {
	return fmt.Sprintf("Database(%d tables, tz=%s)", len(d.tables), d.timezone)
}
