package printer

import (
	"strings"

	"tenantql/internal/ast"
	"tenantql/internal/domain"
	"tenantql/internal/resolver"
	"tenantql/internal/schema"
	"tenantql/internal/transforms"
)

// visitType prints the column or table a resolved type points at.
func (p *printer) visitType(t ast.Type) (string, error) {
	switch t := t.(type) {
	case *ast.FieldType:
		return p.printFieldType(t)
	case *ast.PropertyType:
		return p.printPropertyType(t)
	case *ast.TableType:
		return p.identifier(p.tableName(t))
	case *ast.TableAliasType:
		return p.identifier(t.Alias)
	case *ast.SelectQueryAliasType:
		return p.identifier(t.Alias)
	case *ast.FieldAliasType:
		return p.identifier(t.Alias)
	case *ast.LambdaArgumentType:
		return p.identifier(t.Name)
	case *ast.VirtualTableType:
		return p.visitType(t.Table)
	case *ast.AsteriskType:
		return "*", nil
	case *ast.LazyJoinType:
		return "", domain.ErrInternal("Unexpected LazyJoinType. Lazy joins must be resolved before printing.")
	case *ast.LazyTableType:
		return "", domain.ErrInternal("Unexpected LazyTableType. Lazy tables must be resolved before printing.")
	case *ast.FieldTraverserType:
		return "", domain.ErrInternal("Unexpected FieldTraverserType. This should have been resolved.")
	default:
		return "", domain.ErrInternal("Unknown type %T", t)
	}
}

func (p *printer) printFieldType(t *ast.FieldType) (string, error) {
	switch table := t.Table.(type) {
	case *ast.TableType, *ast.TableAliasType, *ast.VirtualTableType:
		f, ok := t.ResolveDatabaseField()
		if !ok {
			return "", domain.ErrResolution("Can't resolve field %q on table.", t.Name)
		}
		switch f := f.(type) {
		case *schema.Table:
			return "*", nil
		case *schema.DatabaseField:
			if p.ctx.LegacyTranslation {
				if vt, ok := table.(*ast.VirtualTableType); ok && vt.Field == "poe" && t.Name == "properties" {
					return p.legacyPersonProperties(), nil
				}
			}
			column, err := p.identifier(f.Name)
			if err != nil {
				return "", err
			}
			if p.ctx.LegacyTranslation && p.inScopeUnqualified(t) {
				return column, nil
			}
			owner, err := p.visitType(table)
			if err != nil {
				return "", err
			}
			return owner + "." + column, nil
		default:
			return "", domain.ErrResolution("Can't resolve field %q on table.", t.Name)
		}

	case *ast.LazyJoinType, *ast.LazyTableType:
		return p.visitType(table)

	case *ast.SelectQueryType, *ast.SelectUnionQueryType:
		return p.identifier(t.Name)

	case *ast.SelectQueryAliasType:
		column, err := p.identifier(t.Name)
		if err != nil {
			return "", err
		}
		alias, err := p.identifier(table.Alias)
		if err != nil {
			return "", err
		}
		out := alias + "." + column
		if p.ctx.LegacyTranslation && out == personJoinProperties {
			return p.legacyPersonProperties(), nil
		}
		return out, nil

	default:
		return "", domain.ErrResolution("Unknown FieldType table type: %T", t.Table)
	}
}

const personJoinProperties = "events__pdi__person.properties"

func (p *printer) legacyPersonProperties() string {
	if p.ctx.PersonOnEvents {
		return "person_properties"
	}
	return "person_props"
}

// inScopeUnqualified reports whether t is what its bare name resolves to in
// the innermost select.
func (p *printer) inScopeUnqualified(t *ast.FieldType) bool {
	last := p.lastSelect()
	if last == nil {
		return false
	}
	scope, ok := last.Type.(*ast.SelectQueryType)
	if !ok {
		return false
	}
	found, err := resolver.LookupFieldByName(scope, t.Name)
	if err != nil {
		return false
	}
	ft, ok := found.(*ast.FieldType)
	return ok && ft.Name == t.Name && ft.Table == t.Table
}

func (p *printer) printPropertyType(t *ast.PropertyType) (string, error) {
	if t.JoinedSubquery != nil && t.JoinedSubqueryField != "" {
		alias, err := p.identifier(t.JoinedSubquery.Alias)
		if err != nil {
			return "", err
		}
		field, err := p.identifier(t.JoinedSubqueryField)
		if err != nil {
			return "", err
		}
		return alias + "." + field, nil
	}

	if access, ok := transforms.MaterializedProperty(t, p.ctx); ok {
		column, err := p.identifier(access.Column)
		if err != nil {
			return "", err
		}
		if access.Table != nil {
			owner, err := p.visitType(access.Table)
			if err != nil {
				return "", err
			}
			column = owner + "." + column
		}
		if len(access.Rest) == 0 {
			return column, nil
		}
		return p.extractRaw(column, access.Rest), nil
	}

	if t.Parent == nil {
		return "", domain.ErrInternal("property %s has no parent field", strings.Join(t.Chain, "."))
	}
	column, err := p.printFieldType(t.Parent)
	if err != nil {
		return "", err
	}
	return p.extractRaw(column, t.Chain), nil
}

// extractRaw reads chain out of the JSON in column, parameterizing every key.
func (p *printer) extractRaw(column string, chain []string) string {
	args := make([]string, 0, len(chain)+1)
	args = append(args, column)
	for _, key := range chain {
		args = append(args, p.parameter(key))
	}
	return trimQuotes("JSONExtractRaw(" + strings.Join(args, ", ") + ")")
}

// trimQuotes strips the quotes JSONExtractRaw leaves around strings.
func trimQuotes(expr string) string {
	return "replaceRegexpAll(" + expr + `, '^"|"$', '')`
}
