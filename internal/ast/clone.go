package ast

// Clone deep-copies the node structure of e. Resolved types are shared,
// not copied.
func Clone(e Expr) Expr {
	if isNil(e) {
		return nil
	}
	switch n := e.(type) {
	case *Constant:
		c := *n
		return &c
	case *Field:
		c := *n
		c.Chain = append([]string(nil), n.Chain...)
		return &c
	case *Placeholder:
		c := *n
		return &c
	case *Call:
		c := *n
		c.Args = cloneList(n.Args)
		return &c
	case *BinaryOperation:
		c := *n
		c.Left, c.Right = Clone(n.Left), Clone(n.Right)
		return &c
	case *CompareOperation:
		c := *n
		c.Left, c.Right = Clone(n.Left), Clone(n.Right)
		return &c
	case *And:
		c := *n
		c.Exprs = cloneList(n.Exprs)
		return &c
	case *Or:
		c := *n
		c.Exprs = cloneList(n.Exprs)
		return &c
	case *Not:
		c := *n
		c.Expr = Clone(n.Expr)
		return &c
	case *Tuple:
		c := *n
		c.Exprs = cloneList(n.Exprs)
		return &c
	case *Array:
		c := *n
		c.Exprs = cloneList(n.Exprs)
		return &c
	case *ArrayAccess:
		c := *n
		c.Array, c.Property = Clone(n.Array), Clone(n.Property)
		return &c
	case *Lambda:
		c := *n
		c.Args = append([]string(nil), n.Args...)
		c.Expr = Clone(n.Expr)
		return &c
	case *Alias:
		c := *n
		c.Expr = Clone(n.Expr)
		return &c
	case *OrderExpr:
		return cloneOrder(n)
	case *RatioExpr:
		return cloneRatio(n)
	case *SampleExpr:
		return cloneSample(n)
	case *Macro:
		c := *n
		c.Expr = Clone(n.Expr)
		return &c
	case *JoinExpr:
		return CloneJoin(n)
	case *SelectQuery:
		return CloneSelect(n)
	case *SelectUnionQuery:
		c := *n
		c.Queries = make([]*SelectQuery, len(n.Queries))
		for i, q := range n.Queries {
			c.Queries[i] = CloneSelect(q)
		}
		return &c
	}
	return e
}

// CloneSelect deep-copies a select query.
func CloneSelect(n *SelectQuery) *SelectQuery {
	if n == nil {
		return nil
	}
	c := *n
	if n.Macros != nil {
		c.Macros = make([]*Macro, len(n.Macros))
		for i, m := range n.Macros {
			c.Macros[i] = Clone(m).(*Macro)
		}
	}
	c.Select = cloneList(n.Select)
	c.From = CloneJoin(n.From)
	c.Prewhere = Clone(n.Prewhere)
	c.Where = Clone(n.Where)
	c.GroupBy = cloneList(n.GroupBy)
	c.Having = Clone(n.Having)
	if n.OrderBy != nil {
		c.OrderBy = make([]*OrderExpr, len(n.OrderBy))
		for i, o := range n.OrderBy {
			c.OrderBy[i] = cloneOrder(o)
		}
	}
	c.Limit = Clone(n.Limit)
	c.Offset = Clone(n.Offset)
	c.LimitBy = cloneList(n.LimitBy)
	return &c
}

// CloneJoin deep-copies a join chain.
func CloneJoin(n *JoinExpr) *JoinExpr {
	if n == nil {
		return nil
	}
	c := *n
	c.Table = Clone(n.Table)
	c.Sample = cloneSample(n.Sample)
	c.Constraint = Clone(n.Constraint)
	c.Next = CloneJoin(n.Next)
	return &c
}

func cloneOrder(n *OrderExpr) *OrderExpr {
	c := *n
	c.Expr = Clone(n.Expr)
	return &c
}

func cloneRatio(n *RatioExpr) *RatioExpr {
	if n == nil {
		return nil
	}
	c := *n
	if n.Left != nil {
		l := *n.Left
		c.Left = &l
	}
	if n.Right != nil {
		r := *n.Right
		c.Right = &r
	}
	return &c
}

func cloneSample(n *SampleExpr) *SampleExpr {
	if n == nil {
		return nil
	}
	c := *n
	c.Sample = cloneRatio(n.Sample)
	c.Offset = cloneRatio(n.Offset)
	return &c
}

func cloneList(es []Expr) []Expr {
	if es == nil {
		return nil
	}
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = Clone(e)
	}
	return out
}
