package transforms

import (
	"strings"

	"tenantql/internal/ast"
	"tenantql/internal/domain"
	"tenantql/internal/query"
	"tenantql/internal/resolver"
	"tenantql/internal/schema"
)

// ResolveLazyTables inlines the lazy joins and lazy tables node reaches.
// Every select gets its own joins, named after the path that reached them
// (events__pdi__person), and its lazy tables are swapped for subqueries
// aliased with the table name. Fields are retargeted to the new aliases.
// node must be resolved; running it on an inlined tree is a no-op.
func ResolveLazyTables(node ast.Expr, ctx *query.Context) error {
	db := ctx.EnsureDatabase()
	selects := collectSelects(node)
	for i := len(selects) - 1; i >= 0; i-- {
		if err := resolveLazySelect(selects[i], db); err != nil {
			return err
		}
	}
	return nil
}

// lazyAccess is one field or property read through a lazy table.
type lazyAccess struct {
	field    *ast.FieldType
	property *ast.PropertyType
	target   string // long name of the table the access reads from
}

type joinToAdd struct {
	lazyJoin *schema.LazyJoin
	from     string
	to       string
	fields   accessedFields
}

type tableToAdd struct {
	table  *schema.Table
	fields accessedFields
}

// lazyPlan keeps the joins and tables to add in discovery order.
type lazyPlan struct {
	joins      map[string]*joinToAdd
	joinOrder  []string
	tables     map[string]*tableToAdd
	tableOrder []string
}

func (p *lazyPlan) join(to, from string, lj *schema.LazyJoin) *joinToAdd {
	j, ok := p.joins[to]
	if !ok {
		j = &joinToAdd{lazyJoin: lj, from: from, to: to}
		p.joins[to] = j
		p.joinOrder = append(p.joinOrder, to)
	}
	return j
}

func (p *lazyPlan) table(name string, t *schema.Table) *tableToAdd {
	tt, ok := p.tables[name]
	if !ok {
		tt = &tableToAdd{table: t}
		p.tables[name] = tt
		p.tableOrder = append(p.tableOrder, name)
	}
	return tt
}

func resolveLazySelect(node *ast.SelectQuery, db resolver.Catalog) error {
	scope, ok := node.Type.(*ast.SelectQueryType)
	if !ok {
		return domain.ErrInternal("select query must be resolved before inlining lazy tables")
	}

	accesses := collectLazyAccesses(node)
	plan := &lazyPlan{joins: map[string]*joinToAdd{}, tables: map[string]*tableToAdd{}}

	// Lazy tables in FROM are inlined even when no field is read from them.
	for j := node.From; j != nil; j = j.Next {
		if lazy := lazyTableOf(j.Type); lazy != nil {
			name, err := longTableName(scope, j.Type.(ast.BaseTableType))
			if err != nil {
				return err
			}
			plan.table(name, lazy.Table)
		}
	}

	for _, a := range accesses {
		if err := plan.addAccess(scope, a); err != nil {
			return err
		}
	}

	// Chained joins read their ON column from the join before them.
	for _, to := range plan.joinOrder {
		j := plan.joins[to]
		from := j.lazyJoin.FromField
		if prev, ok := plan.joins[j.from]; ok {
			prev.fields.add(from, []string{from})
		} else if prev, ok := plan.tables[j.from]; ok {
			prev.fields.add(from, []string{from})
		}
	}

	for _, name := range plan.tableOrder {
		if err := inlineLazyTable(node, scope, db, name, plan.tables[name]); err != nil {
			return err
		}
	}
	for _, to := range plan.joinOrder {
		if err := appendLazyJoin(node, scope, db, plan.joins[to]); err != nil {
			return err
		}
	}

	for _, a := range accesses {
		t, ok := scope.Table(a.target)
		if !ok {
			return domain.ErrInternal("lazy table %s was not inlined", a.target)
		}
		alias, ok := t.(*ast.SelectQueryAliasType)
		if !ok {
			return domain.ErrInternal("lazy table %s resolved to %T", a.target, t)
		}
		a.field.Table = alias
		if a.property != nil {
			a.property.JoinedSubquery = alias
		}
	}
	return nil
}

// addAccess records the joins and tables a lazy access walks through and
// the column it needs from the last of them.
func (p *lazyPlan) addAccess(scope *ast.SelectQueryType, a *lazyAccess) error {
	var path []ast.BaseTableType
	var t ast.TableOrSelectType = a.field.Table
walk:
	for {
		switch tt := t.(type) {
		case *ast.LazyJoinType:
			path = append(path, tt)
			t = tt.Table
		case *ast.LazyTableType:
			path = append(path, tt)
			break walk
		case *ast.TableAliasType:
			if _, lazy := tt.TableType.(*ast.LazyTableType); lazy {
				path = append(path, tt)
			}
			break walk
		default:
			break walk
		}
	}

	name, chain := a.field.Name, []string{a.field.Name}
	if a.property != nil {
		name = a.field.Name + "___" + strings.Join(a.property.Chain, "___")
		chain = append(chain, a.property.Chain...)
		a.property.JoinedSubqueryField = name
	}

	for i := len(path) - 1; i >= 0; i-- {
		var fields *accessedFields
		switch tt := path[i].(type) {
		case *ast.LazyJoinType:
			from, err := longTableName(scope, tt.Table)
			if err != nil {
				return err
			}
			to, err := longTableName(scope, tt)
			if err != nil {
				return err
			}
			fields = &p.join(to, from, tt.LazyJoin).fields
			if i == 0 {
				a.target = to
			}
		default:
			tableName, err := longTableName(scope, tt)
			if err != nil {
				return err
			}
			fields = &p.table(tableName, tt.ResolveDatabaseTable()).fields
			if i == 0 {
				a.target = tableName
			}
		}
		if i == 0 {
			fields.add(name, chain)
		}
	}
	return nil
}

func inlineLazyTable(node *ast.SelectQuery, scope *ast.SelectQueryType, db resolver.Catalog, name string, add *tableToAdd) error {
	old, ok := scope.Table(name)
	if !ok {
		return domain.ErrInternal("lazy table %s is not joined", name)
	}
	sub := buildLazySelect(schema.LazySelectFor(add.table, ""), add.fields)
	if err := resolver.ResolveTypes(sub, db, scope); err != nil {
		return err
	}
	subType, ok := sub.Type.(*ast.SelectQueryType)
	if !ok {
		return domain.ErrInternal("lazy table subquery resolved to %T", sub.Type)
	}
	aliasType := &ast.SelectQueryAliasType{Alias: name, SelectQueryType: subType}
	scope.ReplaceTable(name, aliasType)

	for j := node.From; j != nil; j = j.Next {
		if j.Type == old {
			j.Table = sub
			j.Type = aliasType
			j.Alias = name
			return nil
		}
	}
	return domain.ErrInternal("lazy table %s not found in the join chain", name)
}

func appendLazyJoin(node *ast.SelectQuery, scope *ast.SelectQueryType, db resolver.Catalog, add *joinToAdd) error {
	if node.From == nil {
		return domain.ErrInternal("lazy join %s on a query without FROM", add.to)
	}
	join := buildLazyJoin(add.lazyJoin, add.from, add.to, add.fields)
	if err := resolver.ResolveTypes(join, db, scope); err != nil {
		return err
	}
	node.From.LastJoin().Next = join
	return nil
}

// longTableName names a table by the path that reached it.
func longTableName(scope *ast.SelectQueryType, t ast.TableOrSelectType) (string, error) {
	switch tt := t.(type) {
	case *ast.TableType:
		if name := scope.AliasForTable(tt); name != "" {
			return name, nil
		}
		return tt.Table.SourceName(), nil
	case *ast.LazyTableType:
		if name := scope.AliasForTable(tt); name != "" {
			return name, nil
		}
		return tt.Table.SourceName(), nil
	case *ast.TableAliasType:
		return tt.Alias, nil
	case *ast.SelectQueryAliasType:
		return tt.Alias, nil
	case *ast.LazyJoinType:
		parent, err := longTableName(scope, tt.Table)
		if err != nil {
			return "", err
		}
		return parent + "__" + tt.Field, nil
	case *ast.VirtualTableType:
		parent, err := longTableName(scope, tt.Table)
		if err != nil {
			return "", err
		}
		return parent + "__" + tt.Field, nil
	default:
		return "", domain.ErrInternal("unknown table type %T in lazy table resolution", t)
	}
}

// lazyTableOf returns the lazy table behind a join type, if any.
func lazyTableOf(t ast.Type) *ast.LazyTableType {
	switch tt := t.(type) {
	case *ast.LazyTableType:
		return tt
	case *ast.TableAliasType:
		if lazy, ok := tt.TableType.(*ast.LazyTableType); ok {
			return lazy
		}
	}
	return nil
}

func isLazyTable(t ast.TableOrSelectType) bool {
	switch tt := t.(type) {
	case *ast.LazyJoinType, *ast.LazyTableType:
		return true
	case *ast.TableAliasType:
		return lazyTableOf(tt) != nil
	}
	return false
}

// collectLazyAccesses finds the fields of node, outside nested queries,
// that read from a lazy table. Properties come first so the narrowest
// columns are requested before whole ones.
func collectLazyAccesses(node *ast.SelectQuery) []*lazyAccess {
	var properties, fields []*lazyAccess
	seen := map[ast.Type]bool{}

	var visit func(e ast.Expr) bool
	visit = func(e ast.Expr) bool {
		switch e.(type) {
		case *ast.SelectQuery, *ast.SelectUnionQuery:
			if e != ast.Expr(node) {
				return false
			}
		}
		f, ok := e.(*ast.Field)
		if !ok || seen[f.Type] {
			return true
		}
		switch t := f.Type.(type) {
		case *ast.FieldType:
			if isLazyTable(t.Table) {
				seen[t] = true
				fields = append(fields, &lazyAccess{field: t})
			}
		case *ast.PropertyType:
			if t.JoinedSubquery == nil && isLazyTable(t.Parent.Table) {
				seen[t] = true
				properties = append(properties, &lazyAccess{field: t.Parent, property: t})
			}
		}
		return true
	}
	ast.Walk(node, visit)
	return append(properties, fields...)
}
