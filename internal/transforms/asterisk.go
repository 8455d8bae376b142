package transforms

import (
	"tenantql/internal/ast"
)

// ExpandAsterisks replaces wildcard select items with the fields they stand
// for, innermost queries first. node must be resolved. Running it on an
// expanded tree is a no-op.
func ExpandAsterisks(node ast.Expr) error {
	selects := collectSelects(node)
	for i := len(selects) - 1; i >= 0; i-- {
		if err := expandSelect(selects[i]); err != nil {
			return err
		}
	}
	return nil
}

func expandSelect(s *ast.SelectQuery) error {
	scope, _ := s.Type.(*ast.SelectQueryType)

	var columns []ast.Expr
	changed := false
	for _, col := range s.Select {
		field, isField := col.(*ast.Field)
		at, isAsterisk := col.ResolvedType().(*ast.AsteriskType)
		if !isField || !isAsterisk {
			columns = append(columns, col)
			continue
		}
		changed = true

		fields, err := at.Fields()
		if err != nil {
			return err
		}
		qualify := len(at.Tables) > 1 || len(field.Chain) > 1
		for _, f := range fields {
			chain := []string{f.Name}
			if qualify && scope != nil {
				if alias := scope.AliasForTable(f.Table); alias != "" {
					chain = []string{alias, f.Name}
				}
			}
			expanded := &ast.Field{Chain: chain}
			expanded.Type = f
			columns = append(columns, expanded)
			if scope != nil {
				scope.SetColumn(f.Name, f)
			}
		}
	}
	if changed {
		s.Select = columns
	}
	return nil
}

// collectSelects returns every select query under node in pre-order.
func collectSelects(node ast.Expr) []*ast.SelectQuery {
	var selects []*ast.SelectQuery
	ast.Walk(node, func(e ast.Expr) bool {
		if s, ok := e.(*ast.SelectQuery); ok {
			selects = append(selects, s)
		}
		return true
	})
	return selects
}
