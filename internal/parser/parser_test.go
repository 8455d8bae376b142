package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantql/internal/ast"
	"tenantql/internal/domain"
)

// === Entry point tests ===

func TestParseSelect_Empty(t *testing.T) {
	_, err := ParseSelect("  ")
	require.Error(t, err)
	assert.True(t, domain.IsCompileError(err, domain.KindSyntax))
}

func TestParseSelect_TrailingGarbage(t *testing.T) {
	_, err := ParseSelect("SELECT 1; SELECT 2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected token")
}

func TestParseSelect_Invalid(t *testing.T) {
	for _, sql := range []string{
		"SELEKT * FROM events",
		"SELECT FROM events",
		"SELECT 1 FROM",
		"SELECT 'unterminated",
		"SELECT a ! b",
		"SELECT x NOT BETWEEN 1",
		"SELECT 1 FROM events SAMPLE x",
		"SELECT 1 UNION SELECT 2",
	} {
		t.Run(sql, func(t *testing.T) {
			_, err := ParseSelect(sql)
			require.Error(t, err)
			assert.True(t, domain.IsCompileError(err, domain.KindSyntax), "got %v", err)
		})
	}
}

func TestParseExpr_TrailingGarbage(t *testing.T) {
	_, err := ParseExpr("1 + 2 GARBAGE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected token")
}

// === Expression parsing ===

func TestParseExpr_Literals(t *testing.T) {
	tests := []struct {
		sql  string
		want any
	}{
		{"1", int64(1)},
		{"-7", int64(-7)},
		{"1.5", 1.5},
		{"1e3", 1000.0},
		{"'it''s'", "it's"},
		{`'a\nb'`, "a\nb"},
		{"true", true},
		{"FALSE", false},
		{"null", nil},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			expr, err := ParseExpr(tt.sql)
			require.NoError(t, err)
			require.IsType(t, &ast.Constant{}, expr)
			assert.Equal(t, tt.want, expr.(*ast.Constant).Value)
		})
	}
}

func TestParseExpr_CompareOperators(t *testing.T) {
	tests := []struct {
		sql string
		op  ast.CompareOp
	}{
		{"a = 1", ast.CmpEq},
		{"a == 1", ast.CmpEq},
		{"a != 1", ast.CmpNotEq},
		{"a <> 1", ast.CmpNotEq},
		{"a < 1", ast.CmpLt},
		{"a <= 1", ast.CmpLtE},
		{"a > 1", ast.CmpGt},
		{"a >= 1", ast.CmpGtE},
		{"a LIKE 'x%'", ast.CmpLike},
		{"a ILIKE 'x%'", ast.CmpILike},
		{"a NOT LIKE 'x%'", ast.CmpNotLike},
		{"a NOT ILIKE 'x%'", ast.CmpNotILike},
		{"a IN (1, 2)", ast.CmpIn},
		{"a NOT IN (1, 2)", ast.CmpNotIn},
		{"a =~ '^x'", ast.CmpRegex},
		{"a !~ '^x'", ast.CmpNotRegex},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			expr, err := ParseExpr(tt.sql)
			require.NoError(t, err)
			require.IsType(t, &ast.CompareOperation{}, expr)
			cmp := expr.(*ast.CompareOperation)
			assert.Equal(t, tt.op, cmp.Op)
			assert.Equal(t, []string{"a"}, cmp.Left.(*ast.Field).Chain)
		})
	}
}

func TestParseExpr_IsNull(t *testing.T) {
	expr, err := ParseExpr("a IS NOT NULL")
	require.NoError(t, err)
	cmp := expr.(*ast.CompareOperation)
	assert.Equal(t, ast.CmpNotEq, cmp.Op)
	assert.Nil(t, cmp.Right.(*ast.Constant).Value)

	expr, err = ParseExpr("a IS NULL")
	require.NoError(t, err)
	assert.Equal(t, ast.CmpEq, expr.(*ast.CompareOperation).Op)
}

func TestParseExpr_Precedence(t *testing.T) {
	expr, err := ParseExpr("1 + 2 * 3")
	require.NoError(t, err)
	add := expr.(*ast.BinaryOperation)
	assert.Equal(t, ast.OpAdd, add.Op)
	assert.Equal(t, ast.OpMult, add.Right.(*ast.BinaryOperation).Op)

	expr, err = ParseExpr("a = 1 OR b = 2 AND c = 3 OR d")
	require.NoError(t, err)
	or := expr.(*ast.Or)
	require.Len(t, or.Exprs, 3)
	assert.IsType(t, &ast.And{}, or.Exprs[1])

	expr, err = ParseExpr("NOT a = 1")
	require.NoError(t, err)
	assert.IsType(t, &ast.CompareOperation{}, expr.(*ast.Not).Expr)

	expr, err = ParseExpr("-x")
	require.NoError(t, err)
	assert.Equal(t, ast.OpSub, expr.(*ast.BinaryOperation).Op)
}

func TestParseExpr_Fields(t *testing.T) {
	expr, err := ParseExpr("events.properties.$browser")
	require.NoError(t, err)
	assert.Equal(t, []string{"events", "properties", "$browser"}, expr.(*ast.Field).Chain)

	expr, err = ParseExpr("`odd name`.x")
	require.NoError(t, err)
	assert.Equal(t, []string{"odd name", "x"}, expr.(*ast.Field).Chain)

	expr, err = ParseExpr(`e."from"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "from"}, expr.(*ast.Field).Chain)

	expr, err = ParseExpr("e.*")
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "*"}, expr.(*ast.Field).Chain)
}

func TestParseExpr_CallsAndCollections(t *testing.T) {
	expr, err := ParseExpr("count(DISTINCT person_id)")
	require.NoError(t, err)
	call := expr.(*ast.Call)
	assert.Equal(t, "count", call.Name)
	assert.True(t, call.Distinct)
	require.Len(t, call.Args, 1)

	expr, err = ParseExpr("count()")
	require.NoError(t, err)
	assert.Empty(t, expr.(*ast.Call).Args)

	expr, err = ParseExpr("[1, 2, 3][1]")
	require.NoError(t, err)
	access := expr.(*ast.ArrayAccess)
	assert.Len(t, access.Array.(*ast.Array).Exprs, 3)

	expr, err = ParseExpr("(1, 'a')")
	require.NoError(t, err)
	assert.Len(t, expr.(*ast.Tuple).Exprs, 2)

	expr, err = ParseExpr("{filters}")
	require.NoError(t, err)
	assert.Equal(t, "filters", expr.(*ast.Placeholder).Field)
}

func TestParseExpr_Lambdas(t *testing.T) {
	expr, err := ParseExpr("arrayMap(x -> x * 2, [1, 2])")
	require.NoError(t, err)
	lambda := expr.(*ast.Call).Args[0].(*ast.Lambda)
	assert.Equal(t, []string{"x"}, lambda.Args)

	expr, err = ParseExpr("(a, b) -> a + b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, expr.(*ast.Lambda).Args)

	expr, err = ParseExpr("() -> 1")
	require.NoError(t, err)
	assert.Empty(t, expr.(*ast.Lambda).Args)

	_, err = ParseExpr("a.b -> 1")
	require.Error(t, err)
}

// === Statement parsing ===

func TestParseSelect_Clauses(t *testing.T) {
	node, err := ParseSelect(`
		SELECT DISTINCT event, count() AS c
		FROM events AS e FINAL SAMPLE 1/10 OFFSET 1/2
		PREWHERE timestamp > '2024-01-01'
		WHERE event = '$pageview' -- trailing comment
		GROUP BY event
		HAVING c > 1
		ORDER BY c DESC, event
		LIMIT 10 OFFSET 5 BY event WITH TIES;`)
	require.NoError(t, err)
	sel := node.(*ast.SelectQuery)

	assert.True(t, sel.Distinct)
	require.Len(t, sel.Select, 2)
	assert.Equal(t, "c", sel.Select[1].(*ast.Alias).Alias)

	assert.Equal(t, "e", sel.From.Alias)
	assert.True(t, sel.From.Final)
	assert.Equal(t, int64(1), sel.From.Sample.Sample.Left.Value)
	assert.Equal(t, int64(10), sel.From.Sample.Sample.Right.Value)
	assert.Equal(t, int64(2), sel.From.Sample.Offset.Right.Value)

	assert.NotNil(t, sel.Prewhere)
	assert.NotNil(t, sel.Where)
	assert.Len(t, sel.GroupBy, 1)
	assert.NotNil(t, sel.Having)
	require.Len(t, sel.OrderBy, 2)
	assert.Equal(t, "DESC", sel.OrderBy[0].Order)
	assert.Equal(t, "ASC", sel.OrderBy[1].Order)
	assert.Equal(t, int64(10), sel.Limit.(*ast.Constant).Value)
	assert.Equal(t, int64(5), sel.Offset.(*ast.Constant).Value)
	assert.Len(t, sel.LimitBy, 1)
	assert.True(t, sel.LimitWithTies)
}

func TestParseSelect_LimitCommaForm(t *testing.T) {
	node, err := ParseSelect("SELECT 1 LIMIT 20, 10")
	require.NoError(t, err)
	sel := node.(*ast.SelectQuery)
	assert.Equal(t, int64(10), sel.Limit.(*ast.Constant).Value)
	assert.Equal(t, int64(20), sel.Offset.(*ast.Constant).Value)
}

func TestParseSelect_Joins(t *testing.T) {
	node, err := ParseSelect(`
		SELECT e.event FROM events e
		INNER JOIN persons p ON e.person_id = p.id
		LEFT OUTER JOIN (SELECT 1 AS id) AS s ON s.id = p.id
		CROSS JOIN groups
		, cohort_people`)
	require.NoError(t, err)
	from := node.(*ast.SelectQuery).From

	var kinds []string
	var aliases []string
	for j := from; j != nil; j = j.Next {
		kinds = append(kinds, j.JoinType)
		aliases = append(aliases, j.Alias)
	}
	assert.Equal(t, []string{"", "INNER JOIN", "LEFT OUTER JOIN", "CROSS JOIN", "CROSS JOIN"}, kinds)
	assert.Equal(t, []string{"e", "p", "s", "", ""}, aliases)
	assert.IsType(t, &ast.SelectQuery{}, from.Next.Next.Table)
	assert.NotNil(t, from.Next.Constraint)
	assert.Nil(t, from.Next.Next.Next.Constraint)
}

func TestParseSelect_Union(t *testing.T) {
	node, err := ParseSelect("SELECT 1 UNION ALL (SELECT 2 UNION ALL SELECT 3) UNION ALL SELECT 4")
	require.NoError(t, err)
	union := node.(*ast.SelectUnionQuery)
	assert.Len(t, union.Queries, 4)
}

func TestParseSelect_Macros(t *testing.T) {
	node, err := ParseSelect(`
		WITH recent AS (SELECT event FROM events), 1 + 1 AS two
		SELECT two FROM recent`)
	require.NoError(t, err)
	sel := node.(*ast.SelectQuery)
	require.Len(t, sel.Macros, 2)

	assert.Equal(t, "recent", sel.Macros[0].Name)
	assert.Equal(t, ast.MacroSubquery, sel.Macros[0].Kind)
	assert.IsType(t, &ast.SelectQuery{}, sel.Macros[0].Expr)

	assert.Equal(t, "two", sel.Macros[1].Name)
	assert.Equal(t, ast.MacroColumn, sel.Macros[1].Kind)
	assert.IsType(t, &ast.BinaryOperation{}, sel.Macros[1].Expr)
}

func TestParseSelect_Subqueries(t *testing.T) {
	node, err := ParseSelect("SELECT x FROM events WHERE event IN (SELECT event FROM events LIMIT 1)")
	require.NoError(t, err)
	cmp := node.(*ast.SelectQuery).Where.(*ast.CompareOperation)
	assert.IsType(t, &ast.SelectQuery{}, cmp.Right)
}

func TestLexer_Tokens(t *testing.T) {
	l := NewLexer("select `a b` -> x != 'y' /* c */ =~ {p}")
	var got []TokenType
	for tok := l.NextToken(); tok.Type != TOKEN_EOF; tok = l.NextToken() {
		got = append(got, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TOKEN_SELECT, TOKEN_IDENT, TOKEN_ARROW, TOKEN_IDENT, TOKEN_NE, TOKEN_STRING,
		TOKEN_REGEX, TOKEN_LBRACE, TOKEN_IDENT, TOKEN_RBRACE,
	}, got)
}
