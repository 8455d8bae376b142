package transforms

import (
	"tenantql/internal/ast"
	"tenantql/internal/domain"
	"tenantql/internal/query"
	"tenantql/internal/schema"
)

// personJoinAlias is the join the person traverser of events inlines to.
const personJoinAlias = "events__pdi__person"

// ResolvePropertyTypes casts property reads whose definition declares a
// non-string type: DateTime reads go through toDateTime, Numeric through
// toFloat and Boolean through a 'true'/'false' transform. Only single
// segment reads of event or person properties are cast. Without property
// definitions in ctx node is returned unchanged.
func ResolvePropertyTypes(node ast.Expr, ctx *query.Context) (ast.Expr, error) {
	if ctx.PropertyDefinitions == nil {
		return node, nil
	}
	return ast.Transform(node, &propertyCaster{defs: ctx.PropertyDefinitions})
}

type propertyCaster struct {
	defs domain.PropertyDefinitions
	// skip counts the enclosing calls whose arguments keep their raw type.
	skip int
}

func (c *propertyCaster) Enter(e ast.Expr) error {
	if call, ok := e.(*ast.Call); ok && call.Name == "toTimeZone" {
		c.skip++
	}
	return nil
}

func (c *propertyCaster) Leave(e ast.Expr) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.Call:
		if n.Name == "toTimeZone" {
			c.skip--
		}
	case *ast.Field:
		if c.skip > 0 {
			return n, nil
		}
		p, ok := n.Type.(*ast.PropertyType)
		if !ok || len(p.Chain) != 1 {
			return n, nil
		}
		kind, ok := propertyOwner(p.Parent.Table)
		if !ok || p.Parent.Name != "properties" {
			return n, nil
		}
		typ, ok := c.defs.PropertyType(kind, p.Chain[0])
		if !ok {
			return n, nil
		}
		return castProperty(n, typ), nil
	}
	return e, nil
}

func castProperty(f *ast.Field, typ string) ast.Expr {
	switch typ {
	case domain.PropertyTypeDateTime:
		return typedCall("toDateTime", f)
	case domain.PropertyTypeNumeric:
		return typedCall("toFloat", f)
	case domain.PropertyTypeBoolean:
		return typedCall("transform", f,
			typedConstant([]any{"true", "false"}),
			typedConstant([]any{true, false}),
			typedConstant(nil),
		)
	default:
		return f
	}
}

func typedCall(name string, args ...ast.Expr) *ast.Call {
	call := &ast.Call{Name: name, Args: args}
	types := make([]ast.Type, len(args))
	for i, a := range args {
		types[i] = a.ResolvedType()
	}
	call.Type = &ast.CallType{Name: name, Args: types}
	return call
}

func typedConstant(v any) *ast.Constant {
	c := &ast.Constant{Value: v}
	c.Type = &ast.ConstantType{Value: v}
	return c
}

// propertyOwner tells whose properties a JSON column of t holds.
func propertyOwner(t ast.TableOrSelectType) (domain.PropertyKind, bool) {
	switch tt := t.(type) {
	case *ast.TableAliasType:
		return propertyOwner(tt.TableType)
	case *ast.TableType, *ast.LazyTableType, *ast.LazyJoinType:
		return tableOwner(tt.(ast.BaseTableType).ResolveDatabaseTable().ExecutionName())
	case *ast.VirtualTableType:
		if tt.Field == "poe" {
			return domain.PropertyKindPerson, true
		}
	}
	return "", false
}

func tableOwner(executionName string) (domain.PropertyKind, bool) {
	switch executionName {
	case "events":
		return domain.PropertyKindEvent, true
	case "person":
		return domain.PropertyKindPerson, true
	}
	return "", false
}

// PropertyAccess is a property read served by a materialized column.
// Table qualifies Column when non-nil; Rest is the part of the chain still
// extracted from the column's JSON.
type PropertyAccess struct {
	Column string
	Table  ast.TableOrSelectType
	Rest   []string
}

// MaterializedProperty finds the materialized column standing in for the
// first segment of p. Reads already rewritten into a joined subquery are
// never materialized here.
func MaterializedProperty(p *ast.PropertyType, ctx *query.Context) (PropertyAccess, bool) {
	if p.JoinedSubquery != nil || len(p.Chain) == 0 || p.Parent == nil {
		return PropertyAccess{}, false
	}
	rest := p.Chain[1:]

	table := p.Parent.Table
	for {
		alias, ok := table.(*ast.TableAliasType)
		if !ok {
			break
		}
		table = alias.TableType
	}

	switch t := table.(type) {
	case *ast.TableType:
		f, _ := p.Parent.ResolveDatabaseField()
		dbField, ok := f.(*schema.DatabaseField)
		if !ok {
			return PropertyAccess{}, false
		}
		column, ok := ctx.LookupMaterialized(t.Table.ExecutionName(), p.Chain[0], dbField.Name)
		if !ok {
			return PropertyAccess{}, false
		}
		access := PropertyAccess{Column: column, Rest: rest}
		if !ctx.LegacyTranslation {
			access.Table = p.Parent.Table
		}
		return access, true

	case *ast.VirtualTableType:
		if ctx.LegacyTranslation && isLegacyPersonTable(t) {
			return legacyPersonMaterialized(p, ctx)
		}
		owner, physical := virtualTableOwner(t)
		if physical == nil {
			return PropertyAccess{}, false
		}
		f, _ := p.Parent.ResolveDatabaseField()
		dbField, ok := f.(*schema.DatabaseField)
		if !ok {
			return PropertyAccess{}, false
		}
		column, ok := ctx.LookupMaterialized(physical.Table.ExecutionName(), p.Chain[0], dbField.Name)
		if !ok {
			return PropertyAccess{}, false
		}
		access := PropertyAccess{Column: column, Rest: rest}
		if !ctx.LegacyTranslation {
			access.Table = owner
		}
		return access, true

	case *ast.SelectQueryAliasType:
		if !ctx.LegacyTranslation || !isLegacyPersonTable(t) {
			return PropertyAccess{}, false
		}
		return legacyPersonMaterialized(p, ctx)
	}
	return PropertyAccess{}, false
}

// legacyPersonMaterialized looks up a person property the way legacy insights
// store it: on events when persons live on events, on person otherwise.
// The column is printed bare.
func legacyPersonMaterialized(p *ast.PropertyType, ctx *query.Context) (PropertyAccess, bool) {
	var (
		column string
		ok     bool
	)
	if ctx.PersonOnEvents {
		column, ok = ctx.LookupMaterialized("events", p.Chain[0], "person_properties")
	} else {
		column, ok = ctx.LookupMaterialized("person", p.Chain[0], "properties")
	}
	if !ok {
		return PropertyAccess{}, false
	}
	return PropertyAccess{Column: column, Rest: p.Chain[1:]}, true
}

// virtualTableOwner walks out of nested virtual tables to the table that
// physically stores their fields. owner is the type the column is qualified
// with; physical is nil when the chain ends in something other than a table.
func virtualTableOwner(vt *ast.VirtualTableType) (ast.TableOrSelectType, *ast.TableType) {
	var owner ast.TableOrSelectType = vt.Table
	for {
		switch t := owner.(type) {
		case *ast.VirtualTableType:
			owner = t.Table
			continue
		case *ast.TableAliasType:
			physical, _ := t.TableType.(*ast.TableType)
			return t, physical
		case *ast.TableType:
			return t, t
		}
		return owner, nil
	}
}

func isLegacyPersonTable(t ast.TableOrSelectType) bool {
	switch tt := t.(type) {
	case *ast.SelectQueryAliasType:
		return tt.Alias == personJoinAlias
	case *ast.VirtualTableType:
		return tt.Field == "poe"
	}
	return false
}
