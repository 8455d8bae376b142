package transforms

import (
	"tenantql/internal/ast"
	"tenantql/internal/domain"
)

// ExpandMacros returns a copy of node with its WITH macros inlined. Column
// macros replace single-segment field references, subquery macros replace
// table references in FROM clauses. Macros of the enclosing selects in
// stack, outermost first, are visible as well. The expanded tree carries no
// macro declarations.
func ExpandMacros(node ast.Expr, stack ...*ast.SelectQuery) (ast.Expr, error) {
	m := &macroExpander{
		expanding:   map[string]bool{},
		joins:       map[*ast.JoinExpr]string{},
		tableFields: map[*ast.Field]bool{},
	}
	for _, s := range stack {
		if s != nil && len(s.Macros) > 0 {
			m.scopes = append(m.scopes, s.Macros)
		}
	}
	return ast.Transform(ast.Clone(node), m)
}

type macroExpander struct {
	// scopes holds the macro lists in effect, outermost first.
	scopes [][]*ast.Macro
	// pushed records, per entered select, whether it opened a scope.
	pushed      []bool
	expanding   map[string]bool
	joins       map[*ast.JoinExpr]string
	tableFields map[*ast.Field]bool
}

func (m *macroExpander) find(name string) *ast.Macro {
	for i := len(m.scopes) - 1; i >= 0; i-- {
		for _, macro := range m.scopes[i] {
			if macro.Name == name {
				return macro
			}
		}
	}
	return nil
}

func (m *macroExpander) Enter(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.SelectQuery:
		if len(n.Macros) == 0 {
			m.pushed = append(m.pushed, false)
			return nil
		}
		m.scopes = append(m.scopes, n.Macros)
		m.pushed = append(m.pushed, true)
		n.Macros = nil

	case *ast.JoinExpr:
		f, ok := n.Table.(*ast.Field)
		if !ok || len(f.Chain) != 1 {
			return nil
		}
		name := f.Chain[0]
		macro := m.find(name)
		if macro == nil {
			m.tableFields[f] = true
			return nil
		}
		if macro.Kind != ast.MacroSubquery {
			return domain.ErrResolution("Cannot use column macro %q as a table", name)
		}
		if m.expanding[name] {
			return domain.ErrResolution("Macro %q references itself", name)
		}
		m.expanding[name] = true
		m.joins[n] = name
		n.Table = ast.Clone(macro.Expr)
		if n.Alias == "" {
			n.Alias = name
		}
	}
	return nil
}

func (m *macroExpander) Leave(e ast.Expr) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.SelectQuery:
		last := len(m.pushed) - 1
		if m.pushed[last] {
			m.scopes = m.scopes[:len(m.scopes)-1]
		}
		m.pushed = m.pushed[:last]

	case *ast.JoinExpr:
		if name, ok := m.joins[n]; ok {
			delete(m.expanding, name)
			delete(m.joins, n)
		}

	case *ast.Field:
		if m.tableFields[n] {
			delete(m.tableFields, n)
			return n, nil
		}
		if len(n.Chain) != 1 {
			return n, nil
		}
		name := n.Chain[0]
		macro := m.find(name)
		if macro == nil {
			return n, nil
		}
		if macro.Kind != ast.MacroColumn {
			return nil, domain.ErrResolution("Cannot use subquery macro %q in this context", name)
		}
		if m.expanding[name] {
			return nil, domain.ErrResolution("Macro %q references itself", name)
		}
		m.expanding[name] = true
		out, err := ast.Transform(ast.Clone(macro.Expr), m)
		delete(m.expanding, name)
		return out, err
	}
	return e, nil
}
