package ast

// Children returns the direct sub-expressions of e in source order.
func Children(e Expr) []Expr {
	var out []Expr
	add := func(es ...Expr) {
		for _, c := range es {
			if !isNil(c) {
				out = append(out, c)
			}
		}
	}

	switch n := e.(type) {
	case *Constant, *Field, *Placeholder:
	case *Call:
		add(n.Args...)
	case *BinaryOperation:
		add(n.Left, n.Right)
	case *CompareOperation:
		add(n.Left, n.Right)
	case *And:
		add(n.Exprs...)
	case *Or:
		add(n.Exprs...)
	case *Not:
		add(n.Expr)
	case *Tuple:
		add(n.Exprs...)
	case *Array:
		add(n.Exprs...)
	case *ArrayAccess:
		add(n.Array, n.Property)
	case *Lambda:
		add(n.Expr)
	case *Alias:
		add(n.Expr)
	case *OrderExpr:
		add(n.Expr)
	case *RatioExpr:
		if n.Left != nil {
			add(n.Left)
		}
		if n.Right != nil {
			add(n.Right)
		}
	case *SampleExpr:
		if n.Sample != nil {
			add(n.Sample)
		}
		if n.Offset != nil {
			add(n.Offset)
		}
	case *Macro:
		add(n.Expr)
	case *JoinExpr:
		add(n.Table)
		if n.Sample != nil {
			add(n.Sample)
		}
		add(n.Constraint)
		if n.Next != nil {
			add(n.Next)
		}
	case *SelectQuery:
		for _, m := range n.Macros {
			add(m)
		}
		add(n.Select...)
		if n.From != nil {
			add(n.From)
		}
		add(n.Prewhere, n.Where)
		add(n.GroupBy...)
		add(n.Having)
		for _, o := range n.OrderBy {
			add(o)
		}
		add(n.Limit, n.Offset)
		add(n.LimitBy...)
	case *SelectUnionQuery:
		for _, q := range n.Queries {
			add(q)
		}
	}
	return out
}

// Walk calls fn for e and, while fn returns true, for its descendants in
// depth-first order.
func Walk(e Expr, fn func(Expr) bool) {
	if isNil(e) || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// isNil reports whether e is nil or a typed nil pointer.
func isNil(e Expr) bool {
	if e == nil {
		return true
	}
	switch n := e.(type) {
	case *SelectQuery:
		return n == nil
	case *JoinExpr:
		return n == nil
	case *Constant:
		return n == nil
	case *OrderExpr:
		return n == nil
	case *RatioExpr:
		return n == nil
	case *SampleExpr:
		return n == nil
	case *Macro:
		return n == nil
	}
	return false
}
