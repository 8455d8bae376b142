package transforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantql/internal/ast"
	"tenantql/internal/domain"
	"tenantql/internal/parser"
	"tenantql/internal/query"
	"tenantql/internal/resolver"
)

type stubMaterialized map[string]string

func (s stubMaterialized) Lookup(table, property, field string) (string, bool) {
	col, ok := s[table+"|"+property+"|"+field]
	return col, ok
}

type stubDefinitions map[domain.PropertyKind]map[string]string

func (s stubDefinitions) PropertyType(kind domain.PropertyKind, name string) (string, bool) {
	typ, ok := s[kind][name]
	return typ, ok
}

func parseSelect(t *testing.T, sql string) *ast.SelectQuery {
	t.Helper()
	node, err := parser.ParseSelect(sql)
	require.NoError(t, err)
	sel, ok := node.(*ast.SelectQuery)
	require.True(t, ok, "expected a single select, got %T", node)
	return sel
}

// prepare runs the passes up to lazy table resolution against ctx's catalog.
func prepare(t *testing.T, ctx *query.Context, sql string) *ast.SelectQuery {
	t.Helper()
	node, err := ExpandMacros(parseSelect(t, sql))
	require.NoError(t, err)
	require.NoError(t, resolver.ResolveTypes(node, ctx.EnsureDatabase()))
	require.NoError(t, ExpandAsterisks(node))
	return node.(*ast.SelectQuery)
}

func chainsOf(exprs []ast.Expr) [][]string {
	var out [][]string
	for _, e := range exprs {
		switch n := e.(type) {
		case *ast.Field:
			out = append(out, n.Chain)
		case *ast.Alias:
			out = append(out, []string{n.Alias})
		default:
			out = append(out, nil)
		}
	}
	return out
}

// === Macros ===

func TestExpandMacros_Column(t *testing.T) {
	input := parseSelect(t, "WITH 1 + 1 AS two SELECT two, event FROM events")
	out, err := ExpandMacros(input)
	require.NoError(t, err)

	sel := out.(*ast.SelectQuery)
	assert.Empty(t, sel.Macros)
	require.Len(t, sel.Select, 2)
	assert.IsType(t, &ast.BinaryOperation{}, sel.Select[0])
	assert.Equal(t, []string{"event"}, sel.Select[1].(*ast.Field).Chain)

	// The input keeps its declarations.
	assert.Len(t, input.Macros, 1)
	assert.IsType(t, &ast.Field{}, input.Select[0])
}

func TestExpandMacros_Subquery(t *testing.T) {
	out, err := ExpandMacros(parseSelect(t, "WITH e AS (SELECT event FROM events) SELECT event FROM e"))
	require.NoError(t, err)

	sel := out.(*ast.SelectQuery)
	require.NotNil(t, sel.From)
	assert.Equal(t, "e", sel.From.Alias)
	sub, ok := sel.From.Table.(*ast.SelectQuery)
	require.True(t, ok)
	assert.Equal(t, []string{"events"}, sub.From.Table.(*ast.Field).Chain)
}

func TestExpandMacros_KeepsExplicitAlias(t *testing.T) {
	out, err := ExpandMacros(parseSelect(t, "WITH e AS (SELECT event FROM events) SELECT x.event FROM e AS x"))
	require.NoError(t, err)
	assert.Equal(t, "x", out.(*ast.SelectQuery).From.Alias)
}

func TestExpandMacros_NestedScopes(t *testing.T) {
	out, err := ExpandMacros(parseSelect(t, "WITH 1 AS one SELECT (SELECT one FROM events) FROM events"))
	require.NoError(t, err)

	inner := out.(*ast.SelectQuery).Select[0].(*ast.SelectQuery)
	c, ok := inner.Select[0].(*ast.Constant)
	require.True(t, ok)
	assert.Equal(t, int64(1), c.Value)
}

func TestExpandMacros_Stack(t *testing.T) {
	outer := parseSelect(t, "WITH 'x' AS label SELECT 1 FROM events")
	out, err := ExpandMacros(parseSelect(t, "SELECT label FROM events"), outer)
	require.NoError(t, err)
	assert.Equal(t, "x", out.(*ast.SelectQuery).Select[0].(*ast.Constant).Value)
}

func TestExpandMacros_Errors(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr string
	}{
		{"column macro as table", "WITH 1 AS t SELECT 1 FROM t", `Cannot use column macro "t" as a table`},
		{"subquery macro as column", "WITH t AS (SELECT 1 FROM events) SELECT t FROM events", `Cannot use subquery macro "t" in this context`},
		{"self referencing column", "WITH b + 1 AS b SELECT b FROM events", `Macro "b" references itself`},
		{"self referencing subquery", "WITH t AS (SELECT 1 FROM t) SELECT 1 FROM t", `Macro "t" references itself`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExpandMacros(parseSelect(t, tc.sql))
			require.Error(t, err)
			assert.True(t, domain.IsCompileError(err, domain.KindResolution))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

// === Placeholders ===

func TestReplacePlaceholders(t *testing.T) {
	input := parseSelect(t, "SELECT {a} FROM events WHERE event = {b}")
	out, err := ReplacePlaceholders(input, map[string]ast.Expr{
		"a": &ast.Field{Chain: []string{"event"}},
		"b": &ast.Constant{Value: "$pageview"},
	})
	require.NoError(t, err)

	sel := out.(*ast.SelectQuery)
	assert.Equal(t, []string{"event"}, sel.Select[0].(*ast.Field).Chain)
	cmp := sel.Where.(*ast.CompareOperation)
	assert.Equal(t, "$pageview", cmp.Right.(*ast.Constant).Value)
	assert.IsType(t, &ast.Placeholder{}, input.Select[0])
}

func TestReplacePlaceholders_Missing(t *testing.T) {
	_, err := ReplacePlaceholders(parseSelect(t, "SELECT {c} FROM events"), map[string]ast.Expr{
		"b": &ast.Constant{Value: 1},
		"a": &ast.Constant{Value: 2},
	})
	require.Error(t, err)
	assert.True(t, domain.IsCompileError(err, domain.KindResolution))
	assert.Contains(t, err.Error(), "You can use the following: a, b")

	_, err = ReplacePlaceholders(parseSelect(t, "SELECT {c} FROM events"), nil)
	require.Error(t, err)
	assert.Equal(t, "Placeholder {c} is not available in this context", err.Error())
}

// === Asterisks ===

func TestExpandAsterisks(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want [][]string
	}{
		{
			name: "single table",
			sql:  "SELECT * FROM events",
			want: [][]string{{"uuid"}, {"event"}, {"properties"}, {"timestamp"}, {"distinct_id"}, {"elements_chain"}, {"created_at"}},
		},
		{
			name: "qualified",
			sql:  "SELECT e.* FROM groups e",
			want: [][]string{{"e", "index"}, {"e", "key"}, {"e", "created_at"}, {"e", "updated_at"}, {"e", "properties"}},
		},
		{
			name: "subquery",
			sql:  "SELECT * FROM (SELECT event, timestamp FROM events)",
			want: [][]string{{"event"}, {"timestamp"}},
		},
		{
			name: "nested wildcards",
			sql:  "SELECT * FROM (SELECT * FROM cohort_people)",
			want: [][]string{{"person_id"}, {"cohort_id"}, {"sign"}, {"version"}},
		},
		{
			name: "mixed with columns",
			sql:  "SELECT 1, * FROM static_cohort_people",
			want: [][]string{nil, {"person_id"}, {"cohort_id"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sel := prepare(t, query.New(1), tc.sql)
			assert.Equal(t, tc.want, chainsOf(sel.Select))
			for _, e := range sel.Select {
				if f, ok := e.(*ast.Field); ok {
					assert.IsType(t, &ast.FieldType{}, f.Type)
				}
			}
		})
	}
}

func TestExpandAsterisks_Idempotent(t *testing.T) {
	sel := prepare(t, query.New(1), "SELECT * FROM events")
	before := chainsOf(sel.Select)
	require.NoError(t, ExpandAsterisks(sel))
	assert.Equal(t, before, chainsOf(sel.Select))
}

// === Lazy tables ===

func TestResolveLazyTables_Join(t *testing.T) {
	ctx := query.New(42)
	sel := prepare(t, ctx, "SELECT event, person_id FROM events")
	require.NoError(t, ResolveLazyTables(sel, ctx))

	join := sel.From.Next
	require.NotNil(t, join)
	assert.Nil(t, join.Next)
	assert.Equal(t, "INNER JOIN", join.JoinType)
	assert.Equal(t, "events__pdi", join.Alias)

	sub := join.Table.(*ast.SelectQuery)
	assert.Equal(t, [][]string{{"person_id"}, {"distinct_id"}}, chainsOf(sub.Select))
	assert.Equal(t, "argMax", sub.Select[0].(*ast.Alias).Expr.(*ast.Call).Name)
	assert.Equal(t, [][]string{{"distinct_id"}}, chainsOf(sub.GroupBy))
	require.NotNil(t, sub.Having)

	on := join.Constraint.(*ast.CompareOperation)
	assert.Equal(t, []string{"events", "distinct_id"}, on.Left.(*ast.Field).Chain)
	assert.Equal(t, []string{"events__pdi", "distinct_id"}, on.Right.(*ast.Field).Chain)
	assert.IsType(t, &ast.FieldType{}, on.Right.ResolvedType())

	personID := sel.Select[1].ResolvedType().(*ast.FieldType)
	alias, ok := personID.Table.(*ast.SelectQueryAliasType)
	require.True(t, ok)
	assert.Equal(t, "events__pdi", alias.Alias)
}

func TestResolveLazyTables_ChainedJoinWithProperty(t *testing.T) {
	ctx := query.New(42)
	sel := prepare(t, ctx, "SELECT person.properties.email FROM events")
	require.NoError(t, ResolveLazyTables(sel, ctx))

	pdi := sel.From.Next
	require.NotNil(t, pdi)
	person := pdi.Next
	require.NotNil(t, person)
	assert.Equal(t, "events__pdi", pdi.Alias)
	assert.Equal(t, "events__pdi__person", person.Alias)

	// The chained join reads its key from the first join.
	assert.Equal(t, [][]string{{"person_id"}, {"distinct_id"}}, chainsOf(pdi.Table.(*ast.SelectQuery).Select))
	personSub := person.Table.(*ast.SelectQuery)
	assert.Equal(t, [][]string{{"properties___email"}, {"id"}}, chainsOf(personSub.Select))

	on := person.Constraint.(*ast.CompareOperation)
	assert.Equal(t, []string{"events__pdi", "person_id"}, on.Left.(*ast.Field).Chain)

	prop := sel.Select[0].ResolvedType().(*ast.PropertyType)
	require.NotNil(t, prop.JoinedSubquery)
	assert.Equal(t, "events__pdi__person", prop.JoinedSubquery.Alias)
	assert.Equal(t, "properties___email", prop.JoinedSubqueryField)
}

func TestResolveLazyTables_SharedJoin(t *testing.T) {
	ctx := query.New(42)
	sel := prepare(t, ctx, "SELECT person_id, pdi.distinct_id, person.id FROM events")
	require.NoError(t, ResolveLazyTables(sel, ctx))

	var aliases []string
	for j := sel.From.Next; j != nil; j = j.Next {
		aliases = append(aliases, j.Alias)
	}
	assert.Equal(t, []string{"events__pdi", "events__pdi__person"}, aliases)
}

func TestResolveLazyTables_LazyTable(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want [][]string
	}{
		{"key only", "SELECT id FROM persons", [][]string{{"id"}}},
		{"no fields", "SELECT count() FROM persons", [][]string{{"id"}}},
		{"property", "SELECT properties.email FROM persons", [][]string{{"properties___email"}, {"id"}}},
		{"column", "SELECT created_at FROM persons", [][]string{{"created_at"}, {"id"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := query.New(7)
			sel := prepare(t, ctx, tc.sql)
			require.NoError(t, ResolveLazyTables(sel, ctx))

			assert.Equal(t, "persons", sel.From.Alias)
			sub, ok := sel.From.Table.(*ast.SelectQuery)
			require.True(t, ok)
			assert.Equal(t, tc.want, chainsOf(sub.Select))
			assert.Equal(t, []string{"raw_persons"}, sub.From.Table.(*ast.Field).Chain)
			assert.IsType(t, &ast.SelectQueryAliasType{}, sel.From.Type)
		})
	}
}

func TestResolveLazyTables_AliasedLazyTableWithJoin(t *testing.T) {
	ctx := query.New(7)
	sel := prepare(t, ctx, "SELECT p.person.properties.name FROM person_distinct_ids p")
	require.NoError(t, ResolveLazyTables(sel, ctx))

	assert.Equal(t, "p", sel.From.Alias)
	assert.Equal(t, [][]string{{"person_id"}, {"distinct_id"}}, chainsOf(sel.From.Table.(*ast.SelectQuery).Select))
	require.NotNil(t, sel.From.Next)
	assert.Equal(t, "p__person", sel.From.Next.Alias)
}

func TestResolveLazyTables_Subqueries(t *testing.T) {
	ctx := query.New(42)
	sel := prepare(t, ctx, "SELECT person_id FROM (SELECT person_id FROM events)")
	require.NoError(t, ResolveLazyTables(sel, ctx))

	assert.Nil(t, sel.From.Next)
	inner := sel.From.Table.(*ast.SelectQuery)
	require.NotNil(t, inner.From.Next)
	assert.Equal(t, "events__pdi", inner.From.Next.Alias)
}

func TestResolveLazyTables_PersonOnEvents(t *testing.T) {
	ctx := query.New(42)
	ctx.PersonOnEvents = true
	sel := prepare(t, ctx, "SELECT person.properties.email, person_id FROM events")
	require.NoError(t, ResolveLazyTables(sel, ctx))
	assert.Nil(t, sel.From.Next)
}

func TestResolveLazyTables_Idempotent(t *testing.T) {
	ctx := query.New(42)
	sel := prepare(t, ctx, "SELECT person.properties.email, person_id FROM events")
	require.NoError(t, ResolveLazyTables(sel, ctx))
	require.NoError(t, ResolveLazyTables(sel, ctx))

	count := 0
	for j := sel.From; j != nil; j = j.Next {
		count++
	}
	assert.Equal(t, 3, count)
	assert.Equal(t, "properties___email", sel.Select[0].ResolvedType().(*ast.PropertyType).JoinedSubqueryField)
}

// === Property types ===

func TestResolvePropertyTypes(t *testing.T) {
	ctx := query.New(1)
	ctx.PropertyDefinitions = stubDefinitions{
		domain.PropertyKindEvent: {
			"$time": domain.PropertyTypeDateTime,
			"n":     domain.PropertyTypeNumeric,
			"flag":  domain.PropertyTypeBoolean,
			"name":  domain.PropertyTypeString,
		},
		domain.PropertyKindPerson: {"age": domain.PropertyTypeNumeric},
	}
	sel := prepare(t, ctx, `SELECT properties.$time, properties.n, properties.flag, properties.name,
		properties.missing, toTimeZone(properties.$time, 'UTC'), person.properties.age, properties.n.deep
		FROM events`)

	out, err := ResolvePropertyTypes(sel, ctx)
	require.NoError(t, err)
	require.Same(t, sel, out)

	callName := func(e ast.Expr) string {
		if c, ok := e.(*ast.Call); ok {
			return c.Name
		}
		return ""
	}
	assert.Equal(t, "toDateTime", callName(sel.Select[0]))
	assert.Equal(t, "toFloat", callName(sel.Select[1]))
	assert.Equal(t, "transform", callName(sel.Select[2]))
	assert.Equal(t, "", callName(sel.Select[3]))
	assert.Equal(t, "", callName(sel.Select[4]))
	assert.Equal(t, "toTimeZone", callName(sel.Select[5]))
	assert.IsType(t, &ast.Field{}, sel.Select[5].(*ast.Call).Args[0])
	assert.Equal(t, "toFloat", callName(sel.Select[6]))
	assert.Equal(t, "", callName(sel.Select[7]))

	transform := sel.Select[2].(*ast.Call)
	require.Len(t, transform.Args, 4)
	assert.Equal(t, []any{"true", "false"}, transform.Args[1].(*ast.Constant).Value)
	assert.Equal(t, []any{true, false}, transform.Args[2].(*ast.Constant).Value)
	assert.Nil(t, transform.Args[3].(*ast.Constant).Value)
	assert.IsType(t, &ast.CallType{}, transform.ResolvedType())
}

func TestResolvePropertyTypes_NoDefinitions(t *testing.T) {
	ctx := query.New(1)
	sel := prepare(t, ctx, "SELECT properties.n FROM events")
	out, err := ResolvePropertyTypes(sel, ctx)
	require.NoError(t, err)
	assert.IsType(t, &ast.Field{}, out.(*ast.SelectQuery).Select[0])
}

func TestResolvePropertyTypes_ThenLazyTables(t *testing.T) {
	ctx := query.New(1)
	ctx.PropertyDefinitions = stubDefinitions{domain.PropertyKindPerson: {"age": domain.PropertyTypeNumeric}}
	sel := prepare(t, ctx, "SELECT person.properties.age FROM events")

	_, err := ResolvePropertyTypes(sel, ctx)
	require.NoError(t, err)
	require.NoError(t, ResolveLazyTables(sel, ctx))

	call := sel.Select[0].(*ast.Call)
	prop := call.Args[0].ResolvedType().(*ast.PropertyType)
	assert.Equal(t, "properties___age", prop.JoinedSubqueryField)
}

func TestMaterializedProperty(t *testing.T) {
	materialized := stubMaterialized{
		"events|$browser|properties":      "mat_browser",
		"events|email|person_properties":  "mat_pp_email",
		"person|email|properties":         "pmat_email",
		"groups|industry|group_properties": "mat_industry",
	}

	propertyOf := func(t *testing.T, ctx *query.Context, sql string) *ast.PropertyType {
		t.Helper()
		sel := prepare(t, ctx, sql)
		p, ok := sel.Select[0].ResolvedType().(*ast.PropertyType)
		require.True(t, ok)
		return p
	}

	t.Run("qualified column", func(t *testing.T) {
		ctx := query.New(1)
		ctx.Materialized = materialized
		access, ok := MaterializedProperty(propertyOf(t, ctx, "SELECT properties.$browser FROM events"), ctx)
		require.True(t, ok)
		assert.Equal(t, "mat_browser", access.Column)
		assert.IsType(t, &ast.TableType{}, access.Table)
		assert.Empty(t, access.Rest)
	})

	t.Run("nested chain", func(t *testing.T) {
		ctx := query.New(1)
		ctx.Materialized = materialized
		access, ok := MaterializedProperty(propertyOf(t, ctx, "SELECT e.properties.$browser.version FROM events e"), ctx)
		require.True(t, ok)
		assert.IsType(t, &ast.TableAliasType{}, access.Table)
		assert.Equal(t, []string{"version"}, access.Rest)
	})

	t.Run("renamed column", func(t *testing.T) {
		ctx := query.New(1)
		ctx.Materialized = materialized
		access, ok := MaterializedProperty(propertyOf(t, ctx, "SELECT properties.industry FROM groups"), ctx)
		require.True(t, ok)
		assert.Equal(t, "mat_industry", access.Column)
	})

	t.Run("legacy translation prints bare", func(t *testing.T) {
		ctx := query.New(1)
		ctx.Materialized = materialized
		ctx.LegacyTranslation = true
		access, ok := MaterializedProperty(propertyOf(t, ctx, "SELECT properties.$browser FROM events"), ctx)
		require.True(t, ok)
		assert.Nil(t, access.Table)
	})

	t.Run("legacy person on events", func(t *testing.T) {
		ctx := query.New(1)
		ctx.Materialized = materialized
		ctx.LegacyTranslation = true
		ctx.PersonOnEvents = true
		access, ok := MaterializedProperty(propertyOf(t, ctx, "SELECT person.properties.email FROM events"), ctx)
		require.True(t, ok)
		assert.Equal(t, "mat_pp_email", access.Column)
		assert.Nil(t, access.Table)
	})

	t.Run("person on events qualified with events", func(t *testing.T) {
		for _, sql := range []string{
			"SELECT person.properties.email FROM events",
			"SELECT poe.properties.email FROM events",
		} {
			ctx := query.New(1)
			ctx.Materialized = materialized
			ctx.PersonOnEvents = true
			access, ok := MaterializedProperty(propertyOf(t, ctx, sql), ctx)
			require.True(t, ok, sql)
			assert.Equal(t, "mat_pp_email", access.Column)
			table, isTable := access.Table.(*ast.TableType)
			require.True(t, isTable, sql)
			assert.Equal(t, "events", table.Table.ExecutionName())
			assert.Empty(t, access.Rest)
		}
	})

	t.Run("person on events through alias", func(t *testing.T) {
		ctx := query.New(1)
		ctx.Materialized = materialized
		ctx.PersonOnEvents = true
		access, ok := MaterializedProperty(propertyOf(t, ctx, "SELECT e.poe.properties.email.domain FROM events e"), ctx)
		require.True(t, ok)
		assert.IsType(t, &ast.TableAliasType{}, access.Table)
		assert.Equal(t, []string{"domain"}, access.Rest)
	})

	t.Run("person on events unregistered property", func(t *testing.T) {
		ctx := query.New(1)
		ctx.Materialized = materialized
		ctx.PersonOnEvents = true
		_, ok := MaterializedProperty(propertyOf(t, ctx, "SELECT poe.properties.name FROM events"), ctx)
		assert.False(t, ok)
	})

	t.Run("no match", func(t *testing.T) {
		ctx := query.New(1)
		ctx.Materialized = materialized
		_, ok := MaterializedProperty(propertyOf(t, ctx, "SELECT properties.$os FROM events"), ctx)
		assert.False(t, ok)
	})

	t.Run("no collaborator", func(t *testing.T) {
		ctx := query.New(1)
		_, ok := MaterializedProperty(propertyOf(t, ctx, "SELECT properties.$browser FROM events"), ctx)
		assert.False(t, ok)
	})

	t.Run("joined subquery", func(t *testing.T) {
		ctx := query.New(1)
		ctx.Materialized = materialized
		sel := prepare(t, ctx, "SELECT person.properties.email FROM events")
		require.NoError(t, ResolveLazyTables(sel, ctx))
		_, ok := MaterializedProperty(sel.Select[0].ResolvedType().(*ast.PropertyType), ctx)
		assert.False(t, ok)
	})
}
