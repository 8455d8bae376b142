package printer

import (
	"strings"

	"tenantql/internal/ast"
	"tenantql/internal/domain"
)

// Operator precedence in the source dialect, loosest first. Zero marks
// nodes that always need parentheses inside an operator.
const (
	precNone = iota
	precOr
	precAnd
	precNot
	precCompare
	precAdd
	precMult
)

var executionBinary = map[ast.BinaryOp]string{
	ast.OpAdd:  "plus",
	ast.OpSub:  "minus",
	ast.OpMult: "multiply",
	ast.OpDiv:  "divide",
	ast.OpMod:  "modulo",
}

var executionCompare = map[ast.CompareOp]string{
	ast.CmpEq:       "equals",
	ast.CmpNotEq:    "notEquals",
	ast.CmpGt:       "greater",
	ast.CmpGtE:      "greaterOrEquals",
	ast.CmpLt:       "less",
	ast.CmpLtE:      "lessOrEquals",
	ast.CmpLike:     "like",
	ast.CmpILike:    "ilike",
	ast.CmpNotLike:  "notLike",
	ast.CmpNotILike: "notILike",
	ast.CmpIn:       "in",
	ast.CmpNotIn:    "notIn",
	ast.CmpRegex:    "match",
}

func precedence(e ast.Expr) int {
	switch n := e.(type) {
	case *ast.Or:
		return precOr
	case *ast.And:
		return precAnd
	case *ast.Not:
		return precNot
	case *ast.CompareOperation:
		return precCompare
	case *ast.BinaryOperation:
		if n.Op == ast.OpAdd || n.Op == ast.OpSub {
			return precAdd
		}
		return precMult
	case *ast.Lambda, *ast.Alias:
		return precNone
	}
	return precMult + 1
}

// operand prints a child of an operator with precedence prec, adding
// parentheses when the child binds looser, or equally when tight is set.
func (p *printer) operand(e ast.Expr, prec int, tight bool) (string, error) {
	s, err := p.visit(e)
	if err != nil {
		return "", err
	}
	if p.execution() {
		return s, nil
	}
	child := precedence(e)
	if child < prec || (tight && child == prec) {
		return "(" + s + ")", nil
	}
	return s, nil
}

// printConstant binds strings and collections as parameters. Numbers, dates
// and uuids are inlined, the latter two through conversion functions.
func (p *printer) printConstant(n *ast.Constant) (string, error) {
	if p.execution() {
		switch n.Value.(type) {
		case string, []any, ast.TupleValue:
			return p.parameter(n.Value), nil
		}
	}
	return EscapeValue(n.Value, p.dialect, p.ctx.ActiveTimezone())
}

func (p *printer) printField(n *ast.Field) (string, error) {
	if n.Type == nil {
		return "", domain.ErrResolution("Field %s has no type", strings.Join(n.Chain, "."))
	}
	if p.execution() {
		return p.visitType(n.Type)
	}
	parts := make([]string, len(n.Chain))
	for i, part := range n.Chain {
		if part == "*" {
			parts[i] = part
			continue
		}
		s, err := p.identifier(part)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, "."), nil
}

func (p *printer) printBinary(n *ast.BinaryOperation) (string, error) {
	prec := precedence(n)
	left, err := p.operand(n.Left, prec, false)
	if err != nil {
		return "", err
	}
	right, err := p.operand(n.Right, prec, true)
	if err != nil {
		return "", err
	}
	if p.execution() {
		fn, ok := executionBinary[n.Op]
		if !ok {
			return "", domain.ErrInternal("Unknown binary operator %d", n.Op)
		}
		return fn + "(" + left + ", " + right + ")", nil
	}
	return left + " " + n.Op.String() + " " + right, nil
}

func (p *printer) printCompare(n *ast.CompareOperation) (string, error) {
	left, err := p.operand(n.Left, precCompare, true)
	if err != nil {
		return "", err
	}
	right, err := p.operand(n.Right, precCompare, true)
	if err != nil {
		return "", err
	}
	isNull := false
	if c, ok := n.Right.(*ast.Constant); ok && c.Value == nil {
		isNull = n.Op == ast.CmpEq || n.Op == ast.CmpNotEq
	}

	if !p.execution() {
		switch {
		case isNull && n.Op == ast.CmpEq:
			return left + " IS NULL", nil
		case isNull:
			return left + " IS NOT NULL", nil
		}
		return left + " " + n.Op.String() + " " + right, nil
	}

	switch {
	case isNull && n.Op == ast.CmpEq:
		return "isNull(" + left + ")", nil
	case isNull:
		return "isNotNull(" + left + ")", nil
	case n.Op == ast.CmpNotRegex:
		return "not(match(" + left + ", " + right + "))", nil
	}
	fn, ok := executionCompare[n.Op]
	if !ok {
		return "", domain.ErrInternal("Unknown comparison operator %d", n.Op)
	}
	return fn + "(" + left + ", " + right + ")", nil
}

// printLogical prints and/or as a call in execution and as an infix chain
// in source.
func (p *printer) printLogical(fn, keyword string, exprs []ast.Expr) (string, error) {
	prec := precAnd
	if keyword == "OR" {
		prec = precOr
	}
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		s, err := p.operand(e, prec, true)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	if p.execution() {
		return fn + "(" + strings.Join(parts, ", ") + ")", nil
	}
	return strings.Join(parts, " "+keyword+" "), nil
}

func (p *printer) printNot(n *ast.Not) (string, error) {
	inner, err := p.operand(n.Expr, precNot, false)
	if err != nil {
		return "", err
	}
	if p.execution() {
		return "not(" + inner + ")", nil
	}
	return "NOT " + inner, nil
}

func (p *printer) printTuple(n *ast.Tuple) (string, error) {
	items, err := p.visitList(n.Exprs)
	if err != nil {
		return "", err
	}
	if !p.execution() && len(n.Exprs) > 1 {
		return "(" + items + ")", nil
	}
	return "tuple(" + items + ")", nil
}

func (p *printer) printLambda(n *ast.Lambda) (string, error) {
	if len(n.Args) == 0 {
		return "", domain.ErrStructural("Lambdas require at least one argument")
	}
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		s, err := p.identifier(a)
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	body, err := p.visit(n.Expr)
	if err != nil {
		return "", err
	}
	if len(args) == 1 {
		return args[0] + " -> " + body, nil
	}
	return "(" + strings.Join(args, ", ") + ") -> " + body, nil
}

func (p *printer) printAlias(n *ast.Alias) (string, error) {
	inner, err := p.visit(n.Expr)
	if err != nil {
		return "", err
	}
	if _, ok := n.Expr.(*ast.Alias); ok {
		inner = "(" + inner + ")"
	}
	alias, err := p.identifier(n.Alias)
	if err != nil {
		return "", err
	}
	return inner + " AS " + alias, nil
}
