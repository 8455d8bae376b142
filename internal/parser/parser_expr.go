package parser

import (
	"fmt"
	"strconv"

	"tenantql/internal/ast"
)

// Expression parsing using Pratt parser (precedence climbing).

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() ast.Expr {
	return p.parseExpressionWithPrecedence(PrecedenceNone + 1)
}

// parseExpressionWithPrecedence implements Pratt parsing.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) ast.Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for !p.failed() {
		prec := p.getInfixPrecedence()
		if prec < minPrecedence {
			break
		}
		left = p.parseInfixExpr(left, prec)
		if left == nil {
			break
		}
	}

	return left
}

// parsePrefixExpr parses prefix expressions (unary operators and primary expressions).
func (p *Parser) parsePrefixExpr() ast.Expr {
	switch p.token.Type {
	case TOKEN_NOT:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(PrecedenceNot)
		if expr == nil {
			return nil
		}
		return &ast.Not{Expr: expr}

	case TOKEN_MINUS:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(PrecedenceUnary)
		if expr == nil {
			return nil
		}
		if c, ok := expr.(*ast.Constant); ok {
			switch v := c.Value.(type) {
			case int64:
				return &ast.Constant{Value: -v}
			case float64:
				return &ast.Constant{Value: -v}
			}
		}
		return &ast.BinaryOperation{Op: ast.OpSub, Left: &ast.Constant{Value: int64(0)}, Right: expr}

	case TOKEN_PLUS:
		p.nextToken()
		return p.parseExpressionWithPrecedence(PrecedenceUnary)

	default:
		return p.parsePrimary()
	}
}

// getInfixPrecedence returns the precedence of the current token as an infix operator.
func (p *Parser) getInfixPrecedence() int {
	switch p.token.Type {
	case TOKEN_OR:
		return PrecedenceOr
	case TOKEN_AND:
		return PrecedenceAnd
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE, TOKEN_REGEX, TOKEN_NOT_REGEX:
		return PrecedenceComparison
	case TOKEN_IS, TOKEN_IN, TOKEN_LIKE, TOKEN_ILIKE:
		return PrecedenceComparison
	case TOKEN_NOT:
		return PrecedenceComparison
	case TOKEN_PLUS, TOKEN_MINUS:
		return PrecedenceAddition
	case TOKEN_STAR, TOKEN_SLASH, TOKEN_MOD:
		return PrecedenceMultiply
	case TOKEN_LBRACKET:
		return PrecedencePostfix
	case TOKEN_ARROW:
		return PrecedenceOr
	default:
		return PrecedenceNone
	}
}

var compareOps = map[TokenType]ast.CompareOp{
	TOKEN_EQ:        ast.CmpEq,
	TOKEN_NE:        ast.CmpNotEq,
	TOKEN_LT:        ast.CmpLt,
	TOKEN_GT:        ast.CmpGt,
	TOKEN_LE:        ast.CmpLtE,
	TOKEN_GE:        ast.CmpGtE,
	TOKEN_REGEX:     ast.CmpRegex,
	TOKEN_NOT_REGEX: ast.CmpNotRegex,
	TOKEN_IN:        ast.CmpIn,
	TOKEN_LIKE:      ast.CmpLike,
	TOKEN_ILIKE:     ast.CmpILike,
}

var binaryOps = map[TokenType]ast.BinaryOp{
	TOKEN_PLUS:  ast.OpAdd,
	TOKEN_MINUS: ast.OpSub,
	TOKEN_STAR:  ast.OpMult,
	TOKEN_SLASH: ast.OpDiv,
	TOKEN_MOD:   ast.OpMod,
}

// parseInfixExpr parses an infix expression given the left operand.
func (p *Parser) parseInfixExpr(left ast.Expr, prec int) ast.Expr {
	switch p.token.Type {
	case TOKEN_AND:
		p.nextToken()
		right := p.parseExpressionWithPrecedence(prec + 1)
		if right == nil {
			return nil
		}
		if and, ok := left.(*ast.And); ok {
			and.Exprs = append(and.Exprs, right)
			return and
		}
		return &ast.And{Exprs: []ast.Expr{left, right}}
	case TOKEN_OR:
		p.nextToken()
		right := p.parseExpressionWithPrecedence(prec + 1)
		if right == nil {
			return nil
		}
		if or, ok := left.(*ast.Or); ok {
			or.Exprs = append(or.Exprs, right)
			return or
		}
		return &ast.Or{Exprs: []ast.Expr{left, right}}
	case TOKEN_NOT:
		return p.parseNotInfixExpr(left)
	case TOKEN_IS:
		return p.parseIsExpr(left)
	case TOKEN_LBRACKET:
		return p.parseArrayAccess(left)
	case TOKEN_ARROW:
		return p.parseLambdaExpr(left)
	}

	if op, ok := compareOps[p.token.Type]; ok {
		p.nextToken()
		right := p.parseExpressionWithPrecedence(prec + 1)
		if right == nil {
			return nil
		}
		return &ast.CompareOperation{Op: op, Left: left, Right: right}
	}
	if op, ok := binaryOps[p.token.Type]; ok {
		p.nextToken()
		right := p.parseExpressionWithPrecedence(prec + 1)
		if right == nil {
			return nil
		}
		return &ast.BinaryOperation{Op: op, Left: left, Right: right}
	}

	p.addError(fmt.Sprintf("unexpected operator %s", p.describe(p.token)))
	return nil
}

// parseNotInfixExpr handles NOT as an infix modifier (NOT IN, NOT LIKE, NOT ILIKE).
func (p *Parser) parseNotInfixExpr(left ast.Expr) ast.Expr {
	p.nextToken() // consume NOT

	var op ast.CompareOp
	switch p.token.Type {
	case TOKEN_IN:
		op = ast.CmpNotIn
	case TOKEN_LIKE:
		op = ast.CmpNotLike
	case TOKEN_ILIKE:
		op = ast.CmpNotILike
	default:
		p.addError(fmt.Sprintf("expected IN, LIKE or ILIKE after NOT, got %s", p.describe(p.token)))
		return nil
	}
	p.nextToken()

	right := p.parseExpressionWithPrecedence(PrecedenceComparison + 1)
	if right == nil {
		return nil
	}
	return &ast.CompareOperation{Op: op, Left: left, Right: right}
}

// parseIsExpr parses IS [NOT] NULL as a comparison against a NULL constant.
func (p *Parser) parseIsExpr(left ast.Expr) ast.Expr {
	p.nextToken() // consume IS
	op := ast.CmpEq
	if p.match(TOKEN_NOT) {
		op = ast.CmpNotEq
	}
	if !p.expect(TOKEN_NULL) {
		return nil
	}
	return &ast.CompareOperation{Op: op, Left: left, Right: &ast.Constant{Value: nil}}
}

// parseArrayAccess parses expr[index].
func (p *Parser) parseArrayAccess(left ast.Expr) ast.Expr {
	p.nextToken() // consume [
	index := p.parseExpression()
	if index == nil || !p.expect(TOKEN_RBRACKET) {
		return nil
	}
	return &ast.ArrayAccess{Array: left, Property: index}
}

// parseLambdaExpr parses x -> expr. The parenthesized form is handled by
// parseParenthesized since its parameter list is not an expression.
func (p *Parser) parseLambdaExpr(left ast.Expr) ast.Expr {
	p.nextToken() // consume ->
	params, err := extractLambdaParams(left)
	if err != nil {
		p.addError(err.Error())
		return nil
	}
	body := p.parseExpression()
	if body == nil {
		return nil
	}
	return &ast.Lambda{Args: params, Expr: body}
}

// extractLambdaParams extracts parameter names from a lambda parameter expression.
func extractLambdaParams(expr ast.Expr) ([]string, error) {
	switch e := expr.(type) {
	case *ast.Field:
		if len(e.Chain) != 1 {
			return nil, fmt.Errorf("invalid lambda parameter: qualified name not allowed")
		}
		return []string{e.Chain[0]}, nil
	case *ast.Tuple:
		var params []string
		for _, item := range e.Exprs {
			names, err := extractLambdaParams(item)
			if err != nil {
				return nil, err
			}
			params = append(params, names...)
		}
		return params, nil
	default:
		return nil, fmt.Errorf("invalid lambda parameter: expected identifier, got %T", expr)
	}
}

// parsePrimary parses literals, references, calls and parenthesized forms.
func (p *Parser) parsePrimary() ast.Expr {
	switch p.token.Type {
	case TOKEN_NUMBER:
		return p.parseNumber()

	case TOKEN_STRING:
		lit := p.token.Literal
		p.nextToken()
		return &ast.Constant{Value: lit}

	case TOKEN_TRUE:
		p.nextToken()
		return &ast.Constant{Value: true}

	case TOKEN_FALSE:
		p.nextToken()
		return &ast.Constant{Value: false}

	case TOKEN_NULL:
		p.nextToken()
		return &ast.Constant{Value: nil}

	case TOKEN_STAR:
		p.nextToken()
		return &ast.Field{Chain: []string{"*"}}

	case TOKEN_LBRACE:
		return p.parsePlaceholder()

	case TOKEN_LBRACKET:
		p.nextToken()
		items := p.parseExpressionListUntil(TOKEN_RBRACKET)
		if !p.expect(TOKEN_RBRACKET) {
			return nil
		}
		return &ast.Array{Exprs: items}

	case TOKEN_LPAREN:
		return p.parseParenthesized()

	case TOKEN_IDENT:
		if p.checkPeek(TOKEN_LPAREN) && !p.token.Quoted {
			return p.parseCall()
		}
		return p.parseFieldChain()

	default:
		p.addError(fmt.Sprintf("unexpected token %s in expression", p.describe(p.token)))
		return nil
	}
}

func (p *Parser) parseNumber() ast.Expr {
	lit := p.token.Literal
	p.nextToken()
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return &ast.Constant{Value: i}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		p.addError(fmt.Sprintf("invalid number %q", lit))
		return nil
	}
	return &ast.Constant{Value: f}
}

// parsePlaceholder parses {name}.
func (p *Parser) parsePlaceholder() ast.Expr {
	p.nextToken() // consume {
	name, ok := p.expectIdent()
	if !ok || !p.expect(TOKEN_RBRACE) {
		return nil
	}
	return &ast.Placeholder{Field: name}
}

// parseFieldChain parses a dotted reference such as events.properties.$browser
// or e.*.
func (p *Parser) parseFieldChain() ast.Expr {
	chain := []string{p.token.Literal}
	p.nextToken()
	for p.check(TOKEN_DOT) {
		p.nextToken()
		switch {
		case p.check(TOKEN_STAR):
			chain = append(chain, "*")
			p.nextToken()
			return &ast.Field{Chain: chain}
		case isWordToken(p.token):
			chain = append(chain, p.token.Literal)
			p.nextToken()
		default:
			p.addError(fmt.Sprintf("unexpected token %s after '.'", p.describe(p.token)))
			return nil
		}
	}
	return &ast.Field{Chain: chain}
}

// parseCall parses name([DISTINCT] args).
func (p *Parser) parseCall() ast.Expr {
	call := &ast.Call{Name: p.token.Literal}
	p.nextToken() // name
	p.nextToken() // (
	call.Distinct = p.match(TOKEN_DISTINCT)
	call.Args = p.parseExpressionListUntil(TOKEN_RPAREN)
	if !p.expect(TOKEN_RPAREN) {
		return nil
	}
	return call
}

// parseParenthesized handles (subquery), (expr), tuples and the
// parenthesized lambda parameter list (a, b) -> expr.
func (p *Parser) parseParenthesized() ast.Expr {
	if p.checkPeek(TOKEN_SELECT) || p.checkPeek(TOKEN_WITH) {
		p.nextToken() // consume (
		sub := p.parseSelectUnion()
		if sub == nil || !p.expect(TOKEN_RPAREN) {
			return nil
		}
		return sub
	}

	p.nextToken() // consume (
	items := p.parseExpressionListUntil(TOKEN_RPAREN)
	if !p.expect(TOKEN_RPAREN) {
		return nil
	}

	if p.check(TOKEN_ARROW) {
		p.nextToken()
		params, err := extractLambdaParams(&ast.Tuple{Exprs: items})
		if err != nil {
			p.addError(err.Error())
			return nil
		}
		body := p.parseExpression()
		if body == nil {
			return nil
		}
		return &ast.Lambda{Args: params, Expr: body}
	}

	switch len(items) {
	case 0:
		p.addError("empty parentheses")
		return nil
	case 1:
		return items[0]
	default:
		return &ast.Tuple{Exprs: items}
	}
}

// parseExpressionListUntil parses a comma-separated list that may be empty
// when the closing token follows immediately.
func (p *Parser) parseExpressionListUntil(closing TokenType) []ast.Expr {
	var exprs []ast.Expr
	if p.check(closing) {
		return exprs
	}
	for {
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		exprs = append(exprs, expr)
		if !p.match(TOKEN_COMMA) {
			return exprs
		}
	}
}

// parseExpressionList parses a non-empty comma-separated list.
func (p *Parser) parseExpressionList() []ast.Expr {
	var exprs []ast.Expr
	for {
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		exprs = append(exprs, expr)
		if !p.match(TOKEN_COMMA) {
			return exprs
		}
	}
}
