package parser

import (
	"fmt"
	"strings"

	"tenantql/internal/ast"
	"tenantql/internal/domain"
)

// Parser parses source-dialect query text into an AST.
type Parser struct {
	lexer  *Lexer
	input  string // original input for error context
	token  Token  // current token
	peek   Token  // lookahead token
	peek2  Token  // second lookahead token
	errors []error
}

// NewParser creates a new parser for the given query text.
func NewParser(sql string) *Parser {
	p := &Parser{
		lexer: NewLexer(sql),
		input: sql,
	}
	// Initialize three-token lookahead
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// ParseSelect parses a SELECT statement or a UNION ALL of them. The result
// is either *ast.SelectQuery or *ast.SelectUnionQuery.
func ParseSelect(sql string) (ast.Expr, error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return nil, domain.ErrSyntax("empty query")
	}

	p := NewParser(sql)
	stmt := p.parseSelectUnion()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}

	p.match(TOKEN_SEMICOLON)
	if p.token.Type != TOKEN_EOF {
		return nil, domain.ErrSyntax("unexpected token after query: %s", p.describe(p.token))
	}

	return stmt, nil
}

// ParseExpr parses a standalone expression.
func ParseExpr(sql string) (ast.Expr, error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return nil, domain.ErrSyntax("empty expression")
	}

	p := NewParser(sql)
	expr := p.parseExpression()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}

	// Ensure we consumed all tokens
	if p.token.Type != TOKEN_EOF {
		return nil, domain.ErrSyntax("unexpected token after expression: %s", p.describe(p.token))
	}

	return expr, nil
}

// === Token Helpers ===

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
	if p.peek2.Type == TOKEN_ILLEGAL {
		p.addError(fmt.Sprintf("illegal token %q at offset %d", p.peek2.Literal, p.peek2.Pos))
	}
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t TokenType) bool {
	return p.peek.Type == t
}

// checkPeek2 returns true if the peek2 token is of the given type.
func (p *Parser) checkPeek2(t TokenType) bool {
	return p.peek2.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("unexpected token %s, expected %s", p.describe(p.token), t))
	return false
}

// expectIdent consumes an identifier and returns its text.
func (p *Parser) expectIdent() (string, bool) {
	if !p.check(TOKEN_IDENT) {
		p.addError(fmt.Sprintf("unexpected token %s, expected identifier", p.describe(p.token)))
		return "", false
	}
	name := p.token.Literal
	p.nextToken()
	return name, true
}

// addError adds a parse error. Only the first error is reported.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, domain.ErrSyntax("parse error: %s", msg))
}

func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

func (p *Parser) describe(tok Token) string {
	if tok.Type == TOKEN_EOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", tok.Literal)
}

// === Keyword Classification ===

// isWordToken returns true if the token is an identifier or any keyword.
// Keywords are accepted as name segments after a dot.
func isWordToken(tok Token) bool {
	return tok.Type == TOKEN_IDENT || tok.Type >= TOKEN_ALL
}

// isJoinStart returns true if the current token begins a join clause.
func (p *Parser) isJoinStart() bool {
	switch p.token.Type {
	case TOKEN_JOIN, TOKEN_INNER, TOKEN_LEFT, TOKEN_RIGHT, TOKEN_FULL, TOKEN_CROSS, TOKEN_COMMA:
		return true
	}
	return false
}
