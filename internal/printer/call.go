package printer

import (
	"fmt"
	"strings"

	"tenantql/internal/ast"
	"tenantql/internal/domain"
)

func (p *printer) printCall(n *ast.Call) (string, error) {
	if want, ok := aggregations[n.Name]; ok {
		return p.printAggregation(n, want)
	}
	fn, ok := functions[n.Name]
	if !ok {
		return "", domain.ErrStructural("Unsupported function call '%s(...)'", n.Name)
	}
	if err := checkFunctionArity(n.Name, fn.arity, len(n.Args)); err != nil {
		return "", err
	}
	if n.Distinct {
		return "", domain.ErrStructural("DISTINCT is only supported in aggregations, not in '%s(...)'", n.Name)
	}

	args := make([]string, 0, len(n.Args)+1)
	for _, a := range n.Args {
		s, err := p.visit(a)
		if err != nil {
			return "", err
		}
		args = append(args, s)
	}
	if !p.execution() {
		return n.Name + "(" + strings.Join(args, ", ") + ")", nil
	}
	if timezoneFunctions[n.Name] {
		tz, err := p.visit(&ast.Constant{Value: p.ctx.ActiveTimezone()})
		if err != nil {
			return "", err
		}
		args = append(args, tz)
	}
	return fn.name + "(" + strings.Join(args, ", ") + ")", nil
}

func (p *printer) printAggregation(n *ast.Call, want arity) (string, error) {
	if err := checkAggregationArity(n.Name, want, len(n.Args)); err != nil {
		return "", err
	}
	for _, e := range p.stack {
		outer, ok := e.(*ast.Call)
		if ok && outer != n && IsAggregation(outer.Name) {
			return "", domain.ErrStructural("Aggregation '%s' cannot be nested inside another aggregation '%s'.", n.Name, outer.Name)
		}
	}

	args, err := p.visitList(n.Args)
	if err != nil {
		return "", err
	}
	if n.Distinct {
		args = "DISTINCT " + args
	}
	return n.Name + "(" + args + ")", nil
}

func checkAggregationArity(name string, want arity, got int) error {
	if got >= want.min && (want.max == unbounded || got <= want.max) {
		return nil
	}
	switch {
	case want.min == want.max:
		return domain.ErrStructural("Aggregation '%s' requires %s, found %d", name, plural(want.min, "argument"), got)
	case want.max == unbounded:
		return domain.ErrStructural("Aggregation '%s' requires at least %s, found %d", name, plural(want.min, "argument"), got)
	default:
		return domain.ErrStructural("Aggregation '%s' requires between %d and %d arguments, found %d", name, want.min, want.max, got)
	}
}

func checkFunctionArity(name string, want arity, got int) error {
	if got < want.min {
		if want.min == want.max {
			return domain.ErrStructural("Function '%s' expects %d arguments. Passed %d.", name, want.min, got)
		}
		return domain.ErrStructural("Function '%s' expects at least %d arguments. Passed %d.", name, want.min, got)
	}
	if want.max != unbounded && got > want.max {
		if want.min == want.max {
			return domain.ErrStructural("Function '%s' expects %d arguments. Passed %d.", name, want.max, got)
		}
		return domain.ErrStructural("Function '%s' expects at most %d arguments. Passed %d.", name, want.max, got)
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
