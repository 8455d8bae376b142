package printer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"tenantql/internal/domain"
	"tenantql/internal/parser"
	"tenantql/internal/query"
)

// goldenCase compiles sql and compares the text and bound parameters with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/printer -run TestPrintAST_Golden -update
type goldenCase struct {
	name    string
	sql     string
	dialect query.Dialect
	setup   func(*query.Context)
}

var goldenCases = []goldenCase{
	{
		name:    "tenant_guard_single_table",
		sql:     "SELECT * FROM events WHERE distinct_id = 'abc'",
		dialect: query.DialectExecution,
		setup:   func(ctx *query.Context) { ctx.TeamID = 5 },
	},
	{
		name: "tenant_guard_joins",
		sql: `SELECT e.event, g.key FROM events AS e
			INNER JOIN groups AS g ON e.distinct_id = g.key
			WHERE e.event = 'signup' AND g.key = 'acme'`,
		dialect: query.DialectExecution,
	},
	{
		name:    "lazy_join_pdi",
		sql:     "SELECT event, pdi.person_id FROM events",
		dialect: query.DialectExecution,
	},
	{
		name:    "property_json_extract",
		sql:     "SELECT properties.$browser FROM events",
		dialect: query.DialectExecution,
	},
	{
		name:    "property_materialized",
		sql:     "SELECT properties.$browser, properties.$set.email FROM events",
		dialect: query.DialectExecution,
		setup: func(ctx *query.Context) {
			ctx.Materialized = stubMaterialized{"events|$browser|properties": "mat_browser"}
		},
	},
	{
		name:    "property_materialized_nested",
		sql:     "SELECT properties.$browser.version FROM events",
		dialect: query.DialectExecution,
		setup: func(ctx *query.Context) {
			ctx.Materialized = stubMaterialized{"events|$browser|properties": "mat_browser"}
		},
	},
	{
		name:    "property_materialized_person_on_events",
		sql:     "SELECT poe.properties.email, person.properties.email.domain FROM events",
		dialect: query.DialectExecution,
		setup: func(ctx *query.Context) {
			ctx.PersonOnEvents = true
			ctx.Materialized = stubMaterialized{"events|email|person_properties": "mat_pp_email"}
		},
	},
	{
		name:    "property_casts",
		sql:     "SELECT properties.$screen_width, properties.is_admin FROM events",
		dialect: query.DialectExecution,
		setup: func(ctx *query.Context) {
			ctx.PropertyDefinitions = stubDefinitions{
				domain.PropertyKindEvent: {
					"$screen_width": domain.PropertyTypeNumeric,
					"is_admin":      domain.PropertyTypeBoolean,
				},
			}
		},
	},
	{
		name:    "union_top_level",
		sql:     "SELECT event FROM events UNION ALL SELECT event FROM events LIMIT 5",
		dialect: query.DialectExecution,
	},
	{
		name:    "union_in_subquery",
		sql:     "SELECT event FROM (SELECT event FROM events UNION ALL SELECT event FROM events)",
		dialect: query.DialectExecution,
	},
	{
		name:    "timezone_functions",
		sql:     "SELECT toStartOfDay(timestamp), now() FROM events",
		dialect: query.DialectExecution,
		setup:   func(ctx *query.Context) { ctx.Timezone = "Europe/Amsterdam" },
	},
	{
		name:    "settings",
		sql:     "SELECT 1",
		dialect: query.DialectExecution,
		setup: func(ctx *query.Context) {
			ctx.Settings = []query.Setting{{Key: "max_threads", Value: 4}, {Key: "readonly", Value: "2"}}
		},
	},
	{
		name: "source_round_trip",
		sql: `SELECT event, count() AS c FROM events AS e
			WHERE event = 'pageview' AND (timestamp > now() OR distinct_id IS NULL)
			GROUP BY event ORDER BY c DESC LIMIT 10`,
		dialect: query.DialectSource,
	},
}

func TestPrintAST_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tc := range goldenCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := query.New(42)
			if tc.setup != nil {
				tc.setup(ctx)
			}
			node, err := parser.ParseSelect(tc.sql)
			require.NoError(t, err)

			out, err := PrintAST(node, ctx, tc.dialect)
			require.NoError(t, err)
			g.Assert(t, tc.name, []byte(renderGolden(out, ctx)))
		})
	}
}

func renderGolden(out string, ctx *query.Context) string {
	var b strings.Builder
	b.WriteString(out)
	b.WriteByte('\n')
	for _, name := range ctx.ParamNames() {
		fmt.Fprintf(&b, "%s = %v\n", name, ctx.Values[name])
	}
	return b.String()
}
