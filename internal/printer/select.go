package printer

import (
	"regexp"
	"strconv"
	"strings"

	"tenantql/internal/ast"
	"tenantql/internal/domain"
	"tenantql/internal/query"
)

// === Queries ===

func (p *printer) printUnion(n *ast.SelectUnionQuery) (string, error) {
	parts := make([]string, len(n.Queries))
	for i, q := range n.Queries {
		s, err := p.visit(q)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	out := strings.Join(parts, " UNION ALL ")
	if len(p.stack) > 1 {
		return "(" + out + ")", nil
	}
	return out, nil
}

func (p *printer) printSelect(n *ast.SelectQuery) (string, error) {
	if p.execution() {
		if !p.ctx.EnableSelectQueries {
			return "", domain.ErrPolicy("Full SELECT queries are disabled if EnableSelectQueries is false")
		}
		if p.ctx.TeamID == 0 {
			return "", domain.ErrPolicy("Full SELECT queries are disabled if the team id is not set")
		}
	}

	depth := len(p.stack)
	partOfUnion := depth >= 2 && isUnion(p.stack[depth-2])
	topLevel := depth <= 1 || (depth == 2 && partOfUnion)

	var joins []string
	var guardExprs []ast.Expr
	for j := n.From; j != nil; j = j.Next {
		if j.Type == nil {
			return "", domain.ErrResolution("Printing queries with a FROM clause is not permitted before type resolution")
		}
		sql, guard, err := p.printJoin(j)
		if err != nil {
			return "", err
		}
		joins = append(joins, sql)
		if guard != nil {
			guardExprs = append(guardExprs, guard)
		}
	}

	where := n.Where
	if len(guardExprs) > 0 {
		exprs := guardExprs
		switch w := where.(type) {
		case nil:
		case *ast.And:
			exprs = append(exprs, w.Exprs...)
		default:
			exprs = append(exprs, w)
		}
		if len(exprs) == 1 {
			where = exprs[0]
		} else {
			where = &ast.And{Exprs: exprs}
		}
	}

	columns := "1"
	if len(n.Select) > 0 {
		var err error
		if columns, err = p.visitList(n.Select); err != nil {
			return "", err
		}
	}
	clauses := []string{"SELECT " + columns}
	if n.Distinct {
		clauses[0] = "SELECT DISTINCT " + columns
	}
	if len(joins) > 0 {
		clauses = append(clauses, "FROM "+strings.Join(joins, " "))
	}

	// Clauses are visited in a fixed order so parameter numbering is stable.
	orderBy := make([]ast.Expr, len(n.OrderBy))
	for i, o := range n.OrderBy {
		orderBy[i] = o
	}
	var whereSQL, havingSQL, prewhereSQL, groupSQL, orderSQL string
	steps := []struct {
		out   *string
		exprs []ast.Expr
	}{
		{&whereSQL, single(where)},
		{&havingSQL, single(n.Having)},
		{&prewhereSQL, single(n.Prewhere)},
		{&groupSQL, n.GroupBy},
		{&orderSQL, orderBy},
	}
	for _, step := range steps {
		if len(step.exprs) == 0 {
			continue
		}
		s, err := p.visitList(step.exprs)
		if err != nil {
			return "", err
		}
		*step.out = s
	}
	for _, c := range []struct{ keyword, sql string }{
		{"PREWHERE", prewhereSQL},
		{"WHERE", whereSQL},
		{"GROUP BY", groupSQL},
		{"HAVING", havingSQL},
		{"ORDER BY", orderSQL},
	} {
		if c.sql != "" {
			clauses = append(clauses, c.keyword+" "+c.sql)
		}
	}

	limit := n.Limit
	if p.ctx.LimitTopSelect && topLevel {
		limit = cappedLimit(limit, p.ctx.RowCap())
	}
	if limit != nil {
		s, err := p.visit(limit)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, "LIMIT "+s)
	}
	if n.Offset != nil {
		s, err := p.visit(n.Offset)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, "OFFSET "+s)
	}
	if limit != nil && len(n.LimitBy) > 0 {
		s, err := p.visitList(n.LimitBy)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, "BY "+s)
	}
	if limit != nil && n.LimitWithTies {
		clauses = append(clauses, "WITH TIES")
	}

	out := strings.Join(clauses, " ")
	if !partOfUnion && !topLevel {
		out = "(" + out + ")"
	}
	return out, nil
}

func single(e ast.Expr) []ast.Expr {
	if e == nil {
		return nil
	}
	return []ast.Expr{e}
}

func isUnion(e ast.Expr) bool {
	_, ok := e.(*ast.SelectUnionQuery)
	return ok
}

// cappedLimit bounds limit by rowCap without touching the query's own node.
func cappedLimit(limit ast.Expr, rowCap int) ast.Expr {
	capConst := &ast.Constant{Value: int64(rowCap)}
	if limit == nil {
		return capConst
	}
	if c, ok := limit.(*ast.Constant); ok {
		if v, ok := integerValue(c.Value); ok {
			if v > int64(rowCap) {
				v = int64(rowCap)
			}
			return &ast.Constant{Value: v}
		}
	}
	return &ast.Call{Name: "min2", Args: []ast.Expr{capConst, limit}}
}

func integerValue(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

// === Joins ===

// printJoin renders one link of a join chain. A physical table also
// returns the tenant guard its select must filter on.
func (p *printer) printJoin(j *ast.JoinExpr) (string, ast.Expr, error) {
	var parts []string
	var guard ast.Expr
	if j.JoinType != "" {
		parts = append(parts, j.JoinType)
	}

	switch t := j.Type.(type) {
	case *ast.TableAliasType:
		table, err := p.joinedTableName(t.TableType, t.Alias)
		if err != nil {
			return "", nil, err
		}
		alias, err := p.identifier(t.Alias)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, table, "AS "+alias)
		if p.execution() {
			guard = p.teamGuard(t)
		}

	case *ast.TableType:
		table, err := p.identifier(p.tableName(t))
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, table)
		if p.execution() {
			guard = p.teamGuard(t)
		}

	case *ast.SelectQueryType, *ast.SelectUnionQueryType:
		sub, err := p.visit(j.Table)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sub)

	case *ast.SelectQueryAliasType:
		if j.Alias == "" {
			return "", nil, domain.ErrInternal("subquery alias type without an alias")
		}
		sub, err := p.visit(j.Table)
		if err != nil {
			return "", nil, err
		}
		alias, err := p.identifier(j.Alias)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sub, "AS "+alias)

	case *ast.LazyTableType:
		if p.execution() {
			return "", nil, domain.ErrInternal("Unexpected LazyTableType. Lazy tables must be resolved before printing.")
		}
		table, err := p.identifier(t.Table.SourceName())
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, table)

	default:
		return "", nil, domain.ErrResolution("Only selecting from a table or a subquery is supported")
	}

	if j.Final {
		parts = append(parts, "FINAL")
	}
	if j.Sample != nil {
		sample, err := p.visit(j.Sample)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sample)
	}
	if j.Constraint != nil {
		on, err := p.visit(j.Constraint)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "ON "+on)
	}
	return strings.Join(parts, " "), guard, nil
}

// joinedTableName names the table behind an alias.
func (p *printer) joinedTableName(t ast.BaseTableType, alias string) (string, error) {
	switch inner := t.(type) {
	case *ast.TableType:
		return p.identifier(p.tableName(inner))
	case *ast.LazyTableType:
		if !p.execution() {
			return p.identifier(inner.Table.SourceName())
		}
	}
	return "", domain.ErrInternal("Table alias %s does not resolve to a table", alias)
}

func (p *printer) tableName(t *ast.TableType) string {
	if p.execution() {
		return t.Table.ExecutionName()
	}
	return t.Table.SourceName()
}

// teamGuard is the tenant filter for a physical table joined as t.
func (p *printer) teamGuard(t ast.BaseTableType) ast.Expr {
	field := &ast.Field{Chain: []string{"team_id"}}
	field.Type = &ast.FieldType{Name: "team_id", Table: t}
	return &ast.CompareOperation{
		Op:    ast.CmpEq,
		Left:  field,
		Right: &ast.Constant{Value: p.ctx.TeamID},
	}
}

func (p *printer) printSample(n *ast.SampleExpr) (string, error) {
	if n.Sample == nil {
		return "", domain.ErrInternal("SAMPLE without a ratio")
	}
	sample, err := p.printRatio(n.Sample)
	if err != nil {
		return "", err
	}
	out := "SAMPLE " + sample
	if n.Offset != nil {
		offset, err := p.printRatio(n.Offset)
		if err != nil {
			return "", err
		}
		out += " OFFSET " + offset
	}
	return out, nil
}

func (p *printer) printRatio(n *ast.RatioExpr) (string, error) {
	if n.Left == nil {
		return "", domain.ErrInternal("ratio without a value")
	}
	left, err := p.ratioTerm(n.Left)
	if err != nil {
		return "", err
	}
	if n.Right == nil {
		return left, nil
	}
	right, err := p.ratioTerm(n.Right)
	if err != nil {
		return "", err
	}
	return left + "/" + right, nil
}

// ratioTerm prints one side of a ratio. Only numbers are allowed.
func (p *printer) ratioTerm(c *ast.Constant) (string, error) {
	switch c.Value.(type) {
	case int, int32, int64, uint64, float64:
		return EscapeValue(c.Value, p.dialect, p.ctx.ActiveTimezone())
	default:
		return "", domain.ErrStructural("Ratio values must be numbers, got %T", c.Value)
	}
}

// === Settings ===

var settingKey = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// printSettings renders the SETTINGS clause of a top-level query.
func (p *printer) printSettings(node ast.Expr) (string, error) {
	switch node.(type) {
	case *ast.SelectQuery, *ast.SelectUnionQuery:
	default:
		return "", domain.ErrPolicy("Settings can only be applied to SELECT queries")
	}
	parts := make([]string, 0, len(p.ctx.Settings))
	for _, s := range p.ctx.Settings {
		value, err := settingValue(s)
		if err != nil {
			return "", err
		}
		parts = append(parts, s.Key+"="+value)
	}
	return " SETTINGS " + strings.Join(parts, ", "), nil
}

func settingValue(s query.Setting) (string, error) {
	if !settingKey.MatchString(s.Key) {
		return "", domain.ErrPolicy("Setting %s is not supported", s.Key)
	}
	switch v := s.Value.(type) {
	case string:
		return EscapeString(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return formatFloat(v), nil
	default:
		return "", domain.ErrPolicy("Setting %s must be a string, int, or float", s.Key)
	}
}
