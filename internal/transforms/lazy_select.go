package transforms

import (
	"tenantql/internal/ast"
	"tenantql/internal/schema"
)

// accessedField is a column a lazy subquery must expose: Name is the
// output column and Chain the path read from the underlying table.
type accessedField struct {
	Name  string
	Chain []string
}

// accessedFields keeps requested columns unique and in request order.
type accessedFields struct {
	order []accessedField
	seen  map[string]bool
}

func (a *accessedFields) add(name string, chain []string) {
	if a.seen == nil {
		a.seen = map[string]bool{}
	}
	if a.seen[name] {
		return
	}
	a.seen[name] = true
	a.order = append(a.order, accessedField{Name: name, Chain: chain})
}

// buildLazySelect returns the subquery standing in for a lazy table or join
// target. Key columns are always selected. With a version column every other
// column is read through argMax(column, version), grouped by the keys, and
// rows whose latest deleted flag is set are dropped.
func buildLazySelect(sel schema.LazySelect, fields accessedFields) *ast.SelectQuery {
	isKey := map[string]bool{}
	for _, k := range sel.KeyFields {
		isKey[k] = true
	}
	versioned := sel.VersionField != ""

	argMax := func(e ast.Expr) ast.Expr {
		return &ast.Call{Name: "argMax", Args: []ast.Expr{e, field(sel.VersionField)}}
	}

	q := &ast.SelectQuery{
		From: &ast.JoinExpr{Table: field(sel.Table)},
	}
	for _, f := range fields.order {
		if len(f.Chain) == 1 && isKey[f.Chain[0]] && f.Name == f.Chain[0] {
			continue
		}
		var expr ast.Expr = &ast.Field{Chain: append([]string(nil), f.Chain...)}
		if versioned {
			expr = argMax(expr)
		} else if len(f.Chain) == 1 && f.Chain[0] == f.Name {
			q.Select = append(q.Select, expr)
			continue
		}
		q.Select = append(q.Select, &ast.Alias{Alias: f.Name, Expr: expr})
	}
	for _, k := range sel.KeyFields {
		q.Select = append(q.Select, field(k))
	}

	if versioned {
		for _, k := range sel.KeyFields {
			q.GroupBy = append(q.GroupBy, field(k))
		}
		if sel.DeletedField != "" {
			q.Having = &ast.CompareOperation{
				Op:    ast.CmpEq,
				Left:  argMax(field(sel.DeletedField)),
				Right: &ast.Constant{Value: int64(0)},
			}
		}
	}
	return q
}

// buildLazyJoin returns the join that inlines lj under alias to.
func buildLazyJoin(lj *schema.LazyJoin, from, to string, fields accessedFields) *ast.JoinExpr {
	return &ast.JoinExpr{
		JoinType: lj.JoinType,
		Table:    buildLazySelect(lj.Select, fields),
		Alias:    to,
		Constraint: &ast.CompareOperation{
			Op:    ast.CmpEq,
			Left:  field(from, lj.FromField),
			Right: field(to, lj.ToField),
		},
	}
}

func field(chain ...string) *ast.Field {
	return &ast.Field{Chain: chain}
}
