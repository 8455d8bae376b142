package parser

import (
	"fmt"
	"strings"

	"tenantql/internal/ast"
)

// parseSelectUnion parses select_stmt (UNION ALL select_stmt)*. A single
// statement is returned unwrapped.
func (p *Parser) parseSelectUnion() ast.Expr {
	first := p.parseSelectOrParenthesized()
	if first == nil {
		return nil
	}
	if !p.check(TOKEN_UNION) {
		return first
	}

	union := &ast.SelectUnionQuery{}
	union.Queries = appendUnionMember(union.Queries, first)
	for p.match(TOKEN_UNION) {
		if !p.expect(TOKEN_ALL) {
			return nil
		}
		next := p.parseSelectOrParenthesized()
		if next == nil {
			return nil
		}
		union.Queries = appendUnionMember(union.Queries, next)
	}
	return union
}

// appendUnionMember flattens a parenthesized union into its parent.
func appendUnionMember(queries []*ast.SelectQuery, member ast.Expr) []*ast.SelectQuery {
	switch m := member.(type) {
	case *ast.SelectQuery:
		return append(queries, m)
	case *ast.SelectUnionQuery:
		return append(queries, m.Queries...)
	}
	return queries
}

func (p *Parser) parseSelectOrParenthesized() ast.Expr {
	if p.check(TOKEN_LPAREN) {
		p.nextToken()
		inner := p.parseSelectUnion()
		if inner == nil || !p.expect(TOKEN_RPAREN) {
			return nil
		}
		return inner
	}
	sel := p.parseSelectStatement()
	if sel == nil {
		return nil
	}
	return sel
}

// parseSelectStatement parses a single SELECT with its optional WITH prefix.
func (p *Parser) parseSelectStatement() *ast.SelectQuery {
	sel := &ast.SelectQuery{}

	if p.match(TOKEN_WITH) {
		sel.Macros = p.parseMacros()
		if p.failed() {
			return nil
		}
	}

	if !p.expect(TOKEN_SELECT) {
		return nil
	}
	sel.Distinct = p.match(TOKEN_DISTINCT)

	sel.Select = p.parseSelectList()
	if p.failed() {
		return nil
	}

	if p.match(TOKEN_FROM) {
		sel.From = p.parseJoinChain()
		if p.failed() {
			return nil
		}
	}

	if p.match(TOKEN_PREWHERE) {
		sel.Prewhere = p.parseExpression()
	}
	if p.match(TOKEN_WHERE) {
		sel.Where = p.parseExpression()
	}
	if p.check(TOKEN_GROUP) {
		p.nextToken()
		if !p.expect(TOKEN_BY) {
			return nil
		}
		sel.GroupBy = p.parseExpressionList()
	}
	if p.match(TOKEN_HAVING) {
		sel.Having = p.parseExpression()
	}
	if p.check(TOKEN_ORDER) {
		p.nextToken()
		if !p.expect(TOKEN_BY) {
			return nil
		}
		sel.OrderBy = p.parseOrderList()
	}
	if p.match(TOKEN_LIMIT) {
		p.parseLimitClause(sel)
	}
	if sel.Offset == nil && p.match(TOKEN_OFFSET) {
		sel.Offset = p.parseExpression()
	}

	if p.failed() {
		return nil
	}
	return sel
}

// parseMacros parses the WITH list. `name AS (SELECT ...)` declares a
// subquery macro and `expr AS name` declares a column macro.
func (p *Parser) parseMacros() []*ast.Macro {
	var macros []*ast.Macro
	for {
		var m *ast.Macro
		if p.check(TOKEN_IDENT) && p.checkPeek(TOKEN_AS) && p.checkPeek2(TOKEN_LPAREN) {
			name := p.token.Literal
			p.nextToken() // name
			p.nextToken() // AS
			p.nextToken() // (
			sub := p.parseSelectUnion()
			if sub == nil || !p.expect(TOKEN_RPAREN) {
				return nil
			}
			m = &ast.Macro{Name: name, Expr: sub, Kind: ast.MacroSubquery}
		} else {
			expr := p.parseExpression()
			if expr == nil || !p.expect(TOKEN_AS) {
				return nil
			}
			name, ok := p.expectIdent()
			if !ok {
				return nil
			}
			m = &ast.Macro{Name: name, Expr: expr, Kind: ast.MacroColumn}
		}
		macros = append(macros, m)
		if !p.match(TOKEN_COMMA) {
			return macros
		}
	}
}

// parseSelectList parses the projection, attaching aliases.
func (p *Parser) parseSelectList() []ast.Expr {
	var cols []ast.Expr
	for {
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		if alias, ok := p.parseOptionalAlias(); ok {
			expr = &ast.Alias{Alias: alias, Expr: expr}
		}
		cols = append(cols, expr)
		if !p.match(TOKEN_COMMA) {
			return cols
		}
	}
}

// parseOptionalAlias parses [AS] alias. Without AS only a plain identifier
// is taken as an alias.
func (p *Parser) parseOptionalAlias() (string, bool) {
	if p.match(TOKEN_AS) {
		name, ok := p.expectIdent()
		return name, ok
	}
	if p.check(TOKEN_IDENT) {
		name := p.token.Literal
		p.nextToken()
		return name, true
	}
	return "", false
}

func (p *Parser) parseOrderList() []*ast.OrderExpr {
	var items []*ast.OrderExpr
	for {
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		order := "ASC"
		if p.match(TOKEN_DESC) {
			order = "DESC"
		} else {
			p.match(TOKEN_ASC)
		}
		items = append(items, &ast.OrderExpr{Expr: expr, Order: order})
		if !p.match(TOKEN_COMMA) {
			return items
		}
	}
}

// parseLimitClause parses LIMIT n [OFFSET m | , n] [BY exprs] [WITH TIES].
func (p *Parser) parseLimitClause(sel *ast.SelectQuery) {
	sel.Limit = p.parseExpression()
	if sel.Limit == nil {
		return
	}
	switch {
	case p.match(TOKEN_COMMA):
		// LIMIT offset, count
		sel.Offset = sel.Limit
		sel.Limit = p.parseExpression()
	case p.match(TOKEN_OFFSET):
		sel.Offset = p.parseExpression()
	}
	if p.match(TOKEN_BY) {
		sel.LimitBy = p.parseExpressionList()
	}
	if p.check(TOKEN_WITH) && p.checkPeek(TOKEN_TIES) {
		p.nextToken()
		p.nextToken()
		sel.LimitWithTies = true
	}
}

// === FROM clause ===

// parseJoinChain parses table_expr (join_op table_expr [ON expr])*.
func (p *Parser) parseJoinChain() *ast.JoinExpr {
	head := p.parseTableExpr()
	if head == nil {
		return nil
	}
	tail := head
	for p.isJoinStart() {
		joinType := p.parseJoinType()
		if joinType == "" {
			return nil
		}
		next := p.parseTableExpr()
		if next == nil {
			return nil
		}
		next.JoinType = joinType
		if p.match(TOKEN_ON) {
			next.Constraint = p.parseExpression()
			if next.Constraint == nil {
				return nil
			}
		}
		tail.Next = next
		tail = next
	}
	return head
}

// parseJoinType consumes the join operator and returns it normalized, such
// as "LEFT JOIN" or "CROSS JOIN".
func (p *Parser) parseJoinType() string {
	if p.match(TOKEN_COMMA) {
		return "CROSS JOIN"
	}
	var words []string
	switch p.token.Type {
	case TOKEN_INNER, TOKEN_CROSS:
		words = append(words, strings.ToUpper(p.token.Literal))
		p.nextToken()
	case TOKEN_LEFT, TOKEN_RIGHT, TOKEN_FULL:
		words = append(words, strings.ToUpper(p.token.Literal))
		p.nextToken()
		if p.match(TOKEN_OUTER) {
			words = append(words, "OUTER")
		}
	}
	if !p.expect(TOKEN_JOIN) {
		return ""
	}
	return strings.Join(append(words, "JOIN"), " ")
}

// parseTableExpr parses (table | (subquery)) [[AS] alias] [FINAL] [SAMPLE ...].
func (p *Parser) parseTableExpr() *ast.JoinExpr {
	join := &ast.JoinExpr{}

	switch {
	case p.check(TOKEN_LPAREN):
		p.nextToken()
		sub := p.parseSelectUnion()
		if sub == nil || !p.expect(TOKEN_RPAREN) {
			return nil
		}
		join.Table = sub
	case p.check(TOKEN_IDENT):
		chain := []string{p.token.Literal}
		p.nextToken()
		for p.match(TOKEN_DOT) {
			name, ok := p.expectIdent()
			if !ok {
				return nil
			}
			chain = append(chain, name)
		}
		join.Table = &ast.Field{Chain: chain}
	default:
		p.addError(fmt.Sprintf("unexpected token %s, expected table", p.describe(p.token)))
		return nil
	}

	if alias, ok := p.parseOptionalAlias(); ok {
		join.Alias = alias
	} else if p.failed() {
		return nil
	}
	join.Final = p.match(TOKEN_FINAL)

	if p.match(TOKEN_SAMPLE) {
		join.Sample = &ast.SampleExpr{Sample: p.parseRatio()}
		if join.Sample.Sample == nil {
			return nil
		}
		if p.match(TOKEN_OFFSET) {
			join.Sample.Offset = p.parseRatio()
			if join.Sample.Offset == nil {
				return nil
			}
		}
	}
	return join
}

// parseRatio parses number [/ number].
func (p *Parser) parseRatio() *ast.RatioExpr {
	left, ok := p.parseRatioNumber()
	if !ok {
		return nil
	}
	ratio := &ast.RatioExpr{Left: left}
	if p.match(TOKEN_SLASH) {
		right, ok := p.parseRatioNumber()
		if !ok {
			return nil
		}
		ratio.Right = right
	}
	return ratio
}

func (p *Parser) parseRatioNumber() (*ast.Constant, bool) {
	if !p.check(TOKEN_NUMBER) {
		p.addError(fmt.Sprintf("unexpected token %s, expected number in SAMPLE", p.describe(p.token)))
		return nil, false
	}
	c, ok := p.parseNumber().(*ast.Constant)
	return c, ok
}
