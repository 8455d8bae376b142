// Package printer renders a typed expression tree as query text, either
// back in the source dialect or as SQL for the execution engine.
package printer

import (
	"strings"

	"tenantql/internal/ast"
	"tenantql/internal/domain"
	"tenantql/internal/query"
	"tenantql/internal/resolver"
	"tenantql/internal/transforms"
)

// PrintAST prepares node and prints it. stack holds the enclosing selects,
// outermost first, when node is a fragment of a larger query.
func PrintAST(node ast.Expr, ctx *query.Context, dialect query.Dialect, stack ...*ast.SelectQuery) (string, error) {
	prepared, err := PrepareAST(node, ctx, dialect, stack...)
	if err != nil {
		return "", err
	}
	return PrintPrepared(prepared, ctx, dialect, stack...)
}

// PrepareAST runs the passes that turn a parsed tree into a printable one:
// macro expansion, type resolution and wildcard expansion, plus property
// typing and lazy table inlining for the execution dialect. The input tree
// is left untouched.
func PrepareAST(node ast.Expr, ctx *query.Context, dialect query.Dialect, stack ...*ast.SelectQuery) (ast.Expr, error) {
	db := ctx.EnsureDatabase()

	var scopes []*ast.SelectQueryType
	if len(stack) > 0 && stack[len(stack)-1] != nil {
		if scope, ok := stack[len(stack)-1].Type.(*ast.SelectQueryType); ok {
			scopes = append(scopes, scope)
		}
	}

	node, err := transforms.ExpandMacros(node, stack...)
	if err != nil {
		return nil, err
	}
	if err := resolver.ResolveTypes(node, db, scopes...); err != nil {
		return nil, err
	}
	if err := transforms.ExpandAsterisks(node); err != nil {
		return nil, err
	}
	if dialect == query.DialectExecution {
		node, err = transforms.ResolvePropertyTypes(node, ctx)
		if err != nil {
			return nil, err
		}
		if err := transforms.ResolveLazyTables(node, ctx); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// PrintPrepared prints a tree PrepareAST returned. Parameterized literals
// are added to ctx.Values.
func PrintPrepared(node ast.Expr, ctx *query.Context, dialect query.Dialect, stack ...*ast.SelectQuery) (string, error) {
	p := &printer{ctx: ctx, dialect: dialect}
	for _, s := range stack {
		if s != nil {
			p.stack = append(p.stack, s)
		}
	}
	return p.visit(node)
}

// printer walks one tree. stack holds the nodes from the root to the one
// being printed.
type printer struct {
	ctx     *query.Context
	dialect query.Dialect
	stack   []ast.Expr
}

func (p *printer) execution() bool {
	return p.dialect == query.DialectExecution
}

func (p *printer) visit(node ast.Expr) (string, error) {
	p.stack = append(p.stack, node)
	out, err := p.dispatch(node)
	p.stack = p.stack[:len(p.stack)-1]
	if err != nil {
		return "", err
	}

	if len(p.stack) == 0 && p.execution() && len(p.ctx.Settings) > 0 {
		settings, err := p.printSettings(node)
		if err != nil {
			return "", err
		}
		out += settings
	}
	return out, nil
}

func (p *printer) dispatch(node ast.Expr) (string, error) {
	switch n := node.(type) {
	case *ast.SelectUnionQuery:
		return p.printUnion(n)
	case *ast.SelectQuery:
		return p.printSelect(n)
	case *ast.Constant:
		return p.printConstant(n)
	case *ast.Field:
		return p.printField(n)
	case *ast.Call:
		return p.printCall(n)
	case *ast.BinaryOperation:
		return p.printBinary(n)
	case *ast.CompareOperation:
		return p.printCompare(n)
	case *ast.And:
		return p.printLogical("and", "AND", n.Exprs)
	case *ast.Or:
		return p.printLogical("or", "OR", n.Exprs)
	case *ast.Not:
		return p.printNot(n)
	case *ast.Tuple:
		return p.printTuple(n)
	case *ast.Array:
		items, err := p.visitList(n.Exprs)
		if err != nil {
			return "", err
		}
		return "[" + items + "]", nil
	case *ast.ArrayAccess:
		array, err := p.visit(n.Array)
		if err != nil {
			return "", err
		}
		index, err := p.visit(n.Property)
		if err != nil {
			return "", err
		}
		return array + "[" + index + "]", nil
	case *ast.Lambda:
		return p.printLambda(n)
	case *ast.Alias:
		return p.printAlias(n)
	case *ast.OrderExpr:
		expr, err := p.visit(n.Expr)
		if err != nil {
			return "", err
		}
		return expr + " " + n.Order, nil
	case *ast.SampleExpr:
		return p.printSample(n)
	case *ast.RatioExpr:
		return p.printRatio(n)
	case *ast.Placeholder:
		return "", domain.ErrResolution("Found a Placeholder {%s} in the tree. Can't generate query!", n.Field)
	default:
		return "", domain.ErrInternal("Unknown AST node %T", node)
	}
}

func (p *printer) visitList(exprs []ast.Expr) (string, error) {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		s, err := p.visit(e)
		if err != nil {
			return "", err
		}
		out[i] = s
	}
	return strings.Join(out, ", "), nil
}

// lastSelect returns the innermost select being printed.
func (p *printer) lastSelect() *ast.SelectQuery {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if s, ok := p.stack[i].(*ast.SelectQuery); ok {
			return s
		}
	}
	return nil
}

func (p *printer) identifier(name string) (string, error) {
	return EscapeIdentifier(name, p.dialect)
}

// parameter stores v in the context and returns its placeholder.
func (p *printer) parameter(v any) string {
	return "%(" + p.ctx.AddValue(v) + ")s"
}
