package ast

import "tenantql/internal/domain"

// Transformer rewrites a tree. Enter runs before a node's children are
// visited and may mutate the node in place; Leave runs after and its result
// replaces the node in its parent.
type Transformer interface {
	Enter(Expr) error
	Leave(Expr) (Expr, error)
}

// Transform applies t to e and its descendants, rewriting child slots in
// place. The caller owns e; clone it first to keep the input intact.
func Transform(e Expr, t Transformer) (Expr, error) {
	if isNil(e) {
		return e, nil
	}
	if err := t.Enter(e); err != nil {
		return nil, err
	}
	if err := transformChildren(e, t); err != nil {
		return nil, err
	}
	return t.Leave(e)
}

func transformChildren(e Expr, t Transformer) error {
	switch n := e.(type) {
	case *Constant, *Field, *Placeholder:
		return nil
	case *Call:
		return transformList(n.Args, t)
	case *BinaryOperation:
		return transformSlots(t, &n.Left, &n.Right)
	case *CompareOperation:
		return transformSlots(t, &n.Left, &n.Right)
	case *And:
		return transformList(n.Exprs, t)
	case *Or:
		return transformList(n.Exprs, t)
	case *Not:
		return transformSlots(t, &n.Expr)
	case *Tuple:
		return transformList(n.Exprs, t)
	case *Array:
		return transformList(n.Exprs, t)
	case *ArrayAccess:
		return transformSlots(t, &n.Array, &n.Property)
	case *Lambda:
		return transformSlots(t, &n.Expr)
	case *Alias:
		return transformSlots(t, &n.Expr)
	case *OrderExpr:
		return transformSlots(t, &n.Expr)
	case *RatioExpr, *SampleExpr:
		// Ratios hold numeric literals only.
		return nil
	case *Macro:
		return transformSlots(t, &n.Expr)
	case *JoinExpr:
		if err := transformSlots(t, &n.Table, &n.Constraint); err != nil {
			return err
		}
		next, err := transformTyped(n.Next, t)
		if err != nil {
			return err
		}
		n.Next = next
		return nil
	case *SelectQuery:
		for i, m := range n.Macros {
			out, err := transformTyped(m, t)
			if err != nil {
				return err
			}
			n.Macros[i] = out
		}
		if err := transformList(n.Select, t); err != nil {
			return err
		}
		from, err := transformTyped(n.From, t)
		if err != nil {
			return err
		}
		n.From = from
		if err := transformSlots(t, &n.Prewhere, &n.Where); err != nil {
			return err
		}
		if err := transformList(n.GroupBy, t); err != nil {
			return err
		}
		if err := transformSlots(t, &n.Having); err != nil {
			return err
		}
		for i, o := range n.OrderBy {
			out, err := transformTyped(o, t)
			if err != nil {
				return err
			}
			n.OrderBy[i] = out
		}
		if err := transformSlots(t, &n.Limit, &n.Offset); err != nil {
			return err
		}
		return transformList(n.LimitBy, t)
	case *SelectUnionQuery:
		for i, q := range n.Queries {
			out, err := transformTyped(q, t)
			if err != nil {
				return err
			}
			n.Queries[i] = out
		}
		return nil
	default:
		return domain.ErrInternal("cannot transform node %T", e)
	}
}

func transformSlots(t Transformer, slots ...*Expr) error {
	for _, slot := range slots {
		if isNil(*slot) {
			continue
		}
		out, err := Transform(*slot, t)
		if err != nil {
			return err
		}
		*slot = out
	}
	return nil
}

func transformList(list []Expr, t Transformer) error {
	for i := range list {
		if err := transformSlots(t, &list[i]); err != nil {
			return err
		}
	}
	return nil
}

// transformTyped transforms a slot whose static type is a concrete node
// pointer; the transformer must return the same node type for it.
func transformTyped[T Expr](n T, t Transformer) (T, error) {
	var zero T
	if isNil(n) {
		return n, nil
	}
	out, err := Transform(n, t)
	if err != nil {
		return zero, err
	}
	typed, ok := out.(T)
	if !ok {
		return zero, domain.ErrInternal("transform replaced %T with %T", n, out)
	}
	return typed, nil
}
