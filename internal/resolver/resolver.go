// Package resolver attaches types to an expression tree: every field and
// table reference is resolved against the catalog and the lexical scopes of
// the enclosing selects.
package resolver

import (
	"errors"
	"strings"

	"tenantql/internal/ast"
	"tenantql/internal/domain"
	"tenantql/internal/schema"
)

// Catalog is the table registry names are resolved against.
type Catalog interface {
	LookupTable(name string) (*schema.Table, error)
}

// maxTraversals bounds field traverser redirects within one chain.
const maxTraversals = 16

// ResolveTypes annotates node in place. scopes are the enclosing select
// scopes, outermost first, for resolving an expression inside an existing
// query.
func ResolveTypes(node ast.Expr, db Catalog, scopes ...*ast.SelectQueryType) error {
	r := &resolver{db: db}
	for _, s := range scopes {
		if s != nil {
			r.scopes = append(r.scopes, s)
		}
	}
	return r.visit(node)
}

type resolver struct {
	db     Catalog
	scopes []*ast.SelectQueryType
}

func (r *resolver) current() *ast.SelectQueryType {
	if len(r.scopes) == 0 {
		return nil
	}
	return r.scopes[len(r.scopes)-1]
}

func (r *resolver) visitAll(es []ast.Expr) error {
	for _, e := range es {
		if err := r.visit(e); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) typesOf(es []ast.Expr) []ast.Type {
	out := make([]ast.Type, len(es))
	for i, e := range es {
		out[i] = e.ResolvedType()
	}
	return out
}

func (r *resolver) visit(node ast.Expr) error {
	switch n := node.(type) {
	case nil:
		return nil
	case *ast.SelectUnionQuery:
		return r.visitSelectUnion(n)
	case *ast.SelectQuery:
		if n == nil {
			return nil
		}
		return r.visitSelect(n)
	case *ast.JoinExpr:
		if n == nil {
			return nil
		}
		return r.visitJoin(n)
	case *ast.Field:
		return r.visitField(n)
	case *ast.Alias:
		return r.visitAlias(n)
	case *ast.Lambda:
		return r.visitLambda(n)
	case *ast.Constant:
		if n == nil {
			return nil
		}
		n.Type = &ast.ConstantType{Value: n.Value}
		return nil
	case *ast.Call:
		if err := r.visitAll(n.Args); err != nil {
			return err
		}
		n.Type = &ast.CallType{Name: n.Name, Args: r.typesOf(n.Args)}
		return nil
	case *ast.Placeholder:
		return domain.ErrResolution("Unresolved placeholder {%s}", n.Field)
	case *ast.BinaryOperation:
		return r.visitOperator(n, n.Op.String(), n.Left, n.Right)
	case *ast.CompareOperation:
		return r.visitOperator(n, n.Op.String(), n.Left, n.Right)
	case *ast.And:
		return r.visitOperator(n, "and", n.Exprs...)
	case *ast.Or:
		return r.visitOperator(n, "or", n.Exprs...)
	case *ast.Not:
		return r.visitOperator(n, "not", n.Expr)
	case *ast.Tuple:
		return r.visitOperator(n, "tuple", n.Exprs...)
	case *ast.Array:
		return r.visitOperator(n, "array", n.Exprs...)
	case *ast.ArrayAccess:
		return r.visitOperator(n, "arrayElement", n.Array, n.Property)
	case *ast.OrderExpr:
		if n == nil {
			return nil
		}
		return r.visit(n.Expr)
	case *ast.SampleExpr:
		if n == nil {
			return nil
		}
		if n.Sample != nil {
			if err := r.visit(n.Sample); err != nil {
				return err
			}
		}
		if n.Offset != nil {
			return r.visit(n.Offset)
		}
		return nil
	case *ast.RatioExpr:
		if n == nil {
			return nil
		}
		if n.Left != nil {
			if err := r.visit(n.Left); err != nil {
				return err
			}
		}
		if n.Right != nil {
			return r.visit(n.Right)
		}
		return nil
	case *ast.Macro:
		return domain.ErrResolution("Macro %s was not expanded", n.Name)
	default:
		return domain.ErrInternal("unknown AST node %T", node)
	}
}

// visitOperator resolves operands and types the operator as a call.
func (r *resolver) visitOperator(n ast.Expr, name string, args ...ast.Expr) error {
	if err := r.visitAll(args); err != nil {
		return err
	}
	n.SetType(&ast.CallType{Name: name, Args: r.typesOf(args)})
	return nil
}

func (r *resolver) visitSelectUnion(n *ast.SelectUnionQuery) error {
	t := &ast.SelectUnionQueryType{}
	for _, q := range n.Queries {
		if err := r.visit(q); err != nil {
			return err
		}
		st, ok := q.Type.(*ast.SelectQueryType)
		if !ok {
			return domain.ErrInternal("union arm resolved to %T", q.Type)
		}
		t.Types = append(t.Types, st)
	}
	n.Type = t
	return nil
}

func (r *resolver) visitSelect(n *ast.SelectQuery) error {
	if n.Type != nil {
		return nil
	}
	scope := ast.NewSelectQueryType()
	n.Type = scope
	r.scopes = append(r.scopes, scope)
	defer func() { r.scopes = r.scopes[:len(r.scopes)-1] }()

	// FROM first so the select list can see the joined tables.
	if n.From != nil {
		if err := r.visit(n.From); err != nil {
			return err
		}
	}
	for _, e := range n.Select {
		if err := r.visit(e); err != nil {
			return err
		}
		switch t := e.ResolvedType().(type) {
		case *ast.FieldAliasType:
			scope.SetColumn(t.Alias, t)
		case *ast.FieldType:
			scope.SetColumn(t.Name, t)
		case *ast.AsteriskType:
			// Registered now so enclosing queries can reference the
			// expanded columns before the asterisk pass runs.
			fields, err := t.Fields()
			if err != nil {
				return err
			}
			for _, f := range fields {
				scope.SetColumn(f.Name, f)
			}
		}
	}

	for _, e := range []ast.Expr{n.Prewhere, n.Where} {
		if err := r.visit(e); err != nil {
			return err
		}
	}
	if err := r.visitAll(n.GroupBy); err != nil {
		return err
	}
	if err := r.visit(n.Having); err != nil {
		return err
	}
	for _, o := range n.OrderBy {
		if err := r.visit(o); err != nil {
			return err
		}
	}
	if err := r.visitAll(n.LimitBy); err != nil {
		return err
	}
	if err := r.visit(n.Limit); err != nil {
		return err
	}
	return r.visit(n.Offset)
}

func (r *resolver) visitJoin(n *ast.JoinExpr) error {
	scope := r.current()
	if scope == nil {
		return domain.ErrInternal("join outside of a select query")
	}

	switch table := n.Table.(type) {
	case *ast.Field:
		if len(table.Chain) != 1 {
			return domain.ErrResolution("Table names must be a single identifier, got %q", strings.Join(table.Chain, "."))
		}
		name := table.Chain[0]
		alias := n.Alias
		if alias == "" {
			alias = name
		}
		if _, exists := scope.Table(alias); exists {
			return domain.ErrResolution("Already have joined a table called %q. Can't redefine.", alias)
		}
		dbTable, err := r.db.LookupTable(name)
		if err != nil {
			var nf *domain.NotFoundError
			if errors.As(err, &nf) {
				return domain.ErrResolution("Unknown table %q.", name)
			}
			return err
		}

		var tableType ast.BaseTableType = &ast.TableType{Table: dbTable}
		if dbTable.IsLazy() {
			tableType = &ast.LazyTableType{Table: dbTable}
		}
		var joinType ast.BaseTableType = tableType
		if alias != name {
			joinType = &ast.TableAliasType{Alias: alias, TableType: tableType}
		}
		scope.AddTable(alias, joinType)
		table.Type = tableType
		n.Type = joinType

	case *ast.SelectQuery, *ast.SelectUnionQuery:
		if err := r.visit(table); err != nil {
			return err
		}
		sub, ok := table.ResolvedType().(ast.TableOrSelectType)
		if !ok {
			return domain.ErrInternal("subquery resolved to %T", table.ResolvedType())
		}
		if n.Alias != "" {
			if _, exists := scope.Table(n.Alias); exists {
				return domain.ErrResolution("Already have joined a table called %q. Can't redefine.", n.Alias)
			}
			aliasType := &ast.SelectQueryAliasType{Alias: n.Alias, SelectQueryType: sub}
			scope.AddTable(n.Alias, aliasType)
			n.Type = aliasType
		} else {
			scope.AddAnonymousTable(sub)
			n.Type = sub
		}

	default:
		return domain.ErrResolution("JoinExpr with table of type %T not supported", n.Table)
	}

	if n.Next != nil {
		if err := r.visit(n.Next); err != nil {
			return err
		}
	}
	if err := r.visit(n.Constraint); err != nil {
		return err
	}
	if n.Sample != nil {
		return r.visit(n.Sample)
	}
	return nil
}

func (r *resolver) visitAlias(n *ast.Alias) error {
	scope := r.current()
	if scope == nil {
		return domain.ErrResolution("Aliases are only allowed within a select query")
	}
	if n.Alias == "" {
		return domain.ErrResolution("Alias cannot be empty")
	}
	if _, exists := scope.Alias(n.Alias); exists {
		return domain.ErrResolution("Cannot redefine an alias with the name: %s", n.Alias)
	}
	if err := r.visit(n.Expr); err != nil {
		return err
	}
	inner := n.Expr.ResolvedType()
	if inner == nil {
		return domain.ErrResolution("Cannot alias an expression without a type: %s", n.Alias)
	}
	t := &ast.FieldAliasType{Alias: n.Alias, Type: inner}
	scope.AddAlias(t)
	n.Type = t
	return nil
}

func (r *resolver) visitLambda(n *ast.Lambda) error {
	scope := ast.NewSelectQueryType()
	for _, arg := range n.Args {
		scope.AddAlias(&ast.FieldAliasType{Alias: arg, Type: &ast.LambdaArgumentType{Name: arg}})
	}
	r.scopes = append(r.scopes, scope)
	err := r.visit(n.Expr)
	r.scopes = r.scopes[:len(r.scopes)-1]
	if err != nil {
		return err
	}
	n.Type = &ast.CallType{Name: "lambda", Args: []ast.Type{n.Expr.ResolvedType()}}
	return nil
}

func (r *resolver) visitField(n *ast.Field) error {
	if len(n.Chain) == 0 {
		return domain.ErrInternal("invalid field access with empty chain")
	}
	scope := r.current()
	if scope == nil {
		return domain.ErrResolution("Unable to resolve field %s outside of a select query", strings.Join(n.Chain, "."))
	}

	name := n.Chain[0]
	var t ast.Type
	if name == "*" && len(n.Chain) == 1 {
		tables := scope.JoinedTables()
		if len(tables) == 0 {
			return domain.ErrResolution("Cannot use '*' when there are no tables in the query")
		}
		t = &ast.AsteriskType{Tables: append([]ast.TableOrSelectType(nil), tables...)}
	} else {
		var err error
		t, err = r.lookup(n.Chain)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrResolution("Unable to resolve field: %s", name)
		}
	}

	// Walk the rest of the chain down to the deepest type.
	chain := append([]string(nil), n.Chain[1:]...)
	traversals := 0
	for {
		if tr, ok := t.(*ast.FieldTraverserType); ok {
			traversals++
			if traversals > maxTraversals {
				return domain.ErrResolution("Field traverser loop while resolving %s", strings.Join(n.Chain, "."))
			}
			chain = append(append([]string(nil), tr.Chain...), chain...)
			t = tr.Table
			continue
		}
		if len(chain) == 0 {
			break
		}
		next := chain[0]
		chain = chain[1:]
		child, err := getChild(t, next)
		if err != nil {
			return domain.ErrResolution("Cannot resolve type %s. Unable to resolve %s.", strings.Join(n.Chain, "."), next)
		}
		t = child
	}
	n.Type = t
	return nil
}

func getChild(t ast.Type, name string) (ast.Type, error) {
	switch t := t.(type) {
	case ast.ChildResolver:
		return t.GetChild(name)
	case *ast.FieldAliasType:
		return getChild(t.Type, name)
	default:
		return nil, domain.ErrResolution("type %T has no children", t)
	}
}

// lookup resolves the head of a chain, searching from the innermost scope
// outwards. Within a scope a table prefix wins over aliases, which win over
// table columns.
func (r *resolver) lookup(chain []string) (ast.Type, error) {
	name := chain[0]
	for i := len(r.scopes) - 1; i >= 0; i-- {
		scope := r.scopes[i]
		if len(chain) > 1 {
			if t, ok := scope.Table(name); ok {
				return t, nil
			}
		}
		t, err := LookupFieldByName(scope, name)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
	}
	return nil, nil
}

// LookupFieldByName finds name among the aliases of scope, then among the
// columns of its joined tables. A name present on several tables is
// ambiguous.
func LookupFieldByName(scope *ast.SelectQueryType, name string) (ast.Type, error) {
	if a, ok := scope.Alias(name); ok {
		return a, nil
	}
	var found []ast.TableOrSelectType
	for _, t := range scope.JoinedTables() {
		if t.HasChild(name) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0].GetChild(name)
	default:
		return nil, domain.ErrResolution("Ambiguous query. Found multiple sources for field: %s", name)
	}
}
