package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantql/internal/domain"
)

type stubMaterialized map[string]string

func (s stubMaterialized) Lookup(table, property, field string) (string, bool) {
	col, ok := s[table+"|"+property+"|"+field]
	return col, ok
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("EXECUTION")
	require.NoError(t, err)
	assert.Equal(t, DialectExecution, d)

	d, err = ParseDialect("source")
	require.NoError(t, err)
	assert.Equal(t, DialectSource, d)

	_, err = ParseDialect("sqlite")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestContext_AddValue(t *testing.T) {
	c := New(42)
	assert.Equal(t, "param_0", c.AddValue("a"))
	assert.Equal(t, "param_1", c.AddValue([]any{1, 2}))
	assert.Equal(t, []string{"param_0", "param_1"}, c.ParamNames())
	assert.Equal(t, "a", c.Values["param_0"])

	var zero Context
	assert.Equal(t, "param_0", zero.AddValue(1))
}

func TestContext_Defaults(t *testing.T) {
	c := New(1)
	assert.True(t, c.EnableSelectQueries)
	assert.True(t, c.LimitTopSelect)
	assert.Equal(t, DefaultMaxRows, c.RowCap())
	assert.Equal(t, "UTC", c.ActiveTimezone())

	c.MaxRows = 100
	assert.Equal(t, 100, c.RowCap())

	c.Timezone = "Europe/Tallinn"
	db := c.EnsureDatabase()
	assert.Same(t, db, c.EnsureDatabase())
	assert.Equal(t, "Europe/Tallinn", c.ActiveTimezone())
}

func TestContext_LookupMaterialized(t *testing.T) {
	c := New(1)
	_, ok := c.LookupMaterialized("events", "$browser", "properties")
	assert.False(t, ok)

	c.Materialized = stubMaterialized{"events|$browser|properties": "mat_browser"}
	col, ok := c.LookupMaterialized("events", "$browser", "properties")
	require.True(t, ok)
	assert.Equal(t, "mat_browser", col)
}
