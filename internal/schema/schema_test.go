package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantql/internal/domain"
)

func TestNew_DefaultTables(t *testing.T) {
	db := New(Options{})

	assert.Equal(t, DefaultTimezone, db.Timezone())
	for _, name := range []string{"events", "raw_persons", "persons", "raw_person_distinct_ids", "person_distinct_ids", "groups"} {
		assert.True(t, db.HasTable(name), name)
	}

	events, err := db.LookupTable("events")
	require.NoError(t, err)
	assert.Equal(t, "events", events.ExecutionName())
	assert.False(t, events.IsLazy())

	persons, err := db.LookupTable("persons")
	require.NoError(t, err)
	assert.True(t, persons.IsLazy())
	assert.Equal(t, "raw_persons", persons.Lazy.Table)
}

func TestLookupTable_Unknown(t *testing.T) {
	db := New(Options{})
	_, err := db.LookupTable("nope")
	require.Error(t, err)
	var nf *domain.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestAsteriskColumns_SkipsJoinsAndHidden(t *testing.T) {
	events, err := New(Options{}).LookupTable("events")
	require.NoError(t, err)

	var names []string
	for _, c := range events.AsteriskColumns() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"uuid", "event", "properties", "timestamp", "distinct_id", "elements_chain", "created_at"}, names)
}

func TestResolveJoin(t *testing.T) {
	db := New(Options{})
	events, err := db.LookupTable("events")
	require.NoError(t, err)

	j, err := db.ResolveJoin(events, "pdi")
	require.NoError(t, err)
	assert.Equal(t, "distinct_id", j.FromField)
	assert.Equal(t, "raw_person_distinct_ids", j.JoinTable.SourceName())

	_, err = db.ResolveJoin(events, "event")
	require.Error(t, err)
}

func TestPersonOnEvents_Traversers(t *testing.T) {
	tests := []struct {
		name  string
		poe   bool
		chain []string
	}{
		{"joined persons", false, []string{"pdi", "person"}},
		{"person on events", true, []string{"poe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := New(Options{PersonOnEvents: tt.poe}).LookupTable("events")
			require.NoError(t, err)
			f, ok := events.Field("person")
			require.True(t, ok)
			tr, ok := f.(*FieldTraverser)
			require.True(t, ok)
			assert.Equal(t, tt.chain, tr.Chain)
		})
	}
}

const billingYAML = `
tables:
  - name: billing_events
    execution_name: billing_events_v2
    avoid_asterisk: [team_id]
    fields:
      - {name: id, type: string}
      - {name: team_id, type: integer}
      - {name: amount, column: amount_cents, type: integer}
      - {name: distinct_id, type: string}
      - {name: properties, type: json}
    joins:
      - {name: pdi, from_field: distinct_id, table: person_distinct_ids, to_field: distinct_id}
`

func TestLoadYAML(t *testing.T) {
	db := New(Options{})
	require.NoError(t, db.LoadYAML([]byte(billingYAML)))

	tbl, err := db.LookupTable("billing_events")
	require.NoError(t, err)
	assert.Equal(t, "billing_events_v2", tbl.ExecutionName())

	f, ok := tbl.Field("amount")
	require.True(t, ok)
	assert.Equal(t, "amount_cents", f.(*DatabaseField).Name)

	j, err := db.ResolveJoin(tbl, "pdi")
	require.NoError(t, err)
	assert.Equal(t, "raw_person_distinct_ids", j.JoinTable.SourceName())
	assert.Equal(t, "version", j.Select.VersionField)

	var names []string
	for _, c := range tbl.AsteriskColumns() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"id", "amount", "distinct_id", "properties"}, names)
}

func TestLoadYAML_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no name", "tables:\n  - fields: [{name: team_id, type: integer}]\n"},
		{"no team_id", "tables:\n  - name: t\n    fields: [{name: id, type: string}]\n"},
		{"bad type", "tables:\n  - name: t\n    fields: [{name: team_id, type: decimal}]\n"},
		{"duplicate", "tables:\n  - name: events\n    fields: [{name: team_id, type: integer}]\n"},
		{"unknown join target", "tables:\n  - name: t\n    fields: [{name: team_id, type: integer}, {name: x, type: string}]\n    joins: [{name: j, from_field: x, table: nope, to_field: id}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(Options{}).LoadYAML([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(billingYAML), 0o600))

	db := New(Options{Timezone: "Europe/Amsterdam"})
	require.NoError(t, db.LoadFile(path))
	assert.True(t, db.HasTable("billing_events"))
	assert.Equal(t, "Europe/Amsterdam", db.Timezone())
}
