// Package transforms holds the tree rewrites that run between parsing and
// printing: macro and placeholder substitution, wildcard expansion, lazy
// table inlining and property typing.
package transforms

import (
	"sort"
	"strings"

	"tenantql/internal/ast"
	"tenantql/internal/domain"
)

// ReplacePlaceholders returns a copy of node with every {name} placeholder
// replaced by a copy of values[name]. A placeholder without a value is a
// resolution error.
func ReplacePlaceholders(node ast.Expr, values map[string]ast.Expr) (ast.Expr, error) {
	return ast.Transform(ast.Clone(node), &placeholderReplacer{values: values})
}

type placeholderReplacer struct {
	values map[string]ast.Expr
}

func (r *placeholderReplacer) Enter(ast.Expr) error { return nil }

func (r *placeholderReplacer) Leave(e ast.Expr) (ast.Expr, error) {
	p, ok := e.(*ast.Placeholder)
	if !ok {
		return e, nil
	}
	v, ok := r.values[p.Field]
	if !ok {
		if len(r.values) == 0 {
			return nil, domain.ErrResolution("Placeholder {%s} is not available in this context", p.Field)
		}
		return nil, domain.ErrResolution("Placeholder {%s} is not available in this context. You can use the following: %s",
			p.Field, strings.Join(placeholderNames(r.values), ", "))
	}
	return ast.Clone(v), nil
}

func placeholderNames(values map[string]ast.Expr) []string {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
