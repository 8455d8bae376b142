package ast

// === Query Nodes ===

// SelectQuery is a single SELECT statement.
type SelectQuery struct {
	Typed
	Macros        []*Macro
	Select        []Expr
	Distinct      bool
	From          *JoinExpr
	Prewhere      Expr
	Where         Expr
	GroupBy       []Expr
	Having        Expr
	OrderBy       []*OrderExpr
	Limit         Expr
	Offset        Expr
	LimitBy       []Expr
	LimitWithTies bool
}

// SelectUnionQuery combines queries with UNION ALL.
type SelectUnionQuery struct {
	Typed
	Queries []*SelectQuery
}

// JoinExpr is one link in a FROM clause join chain. Table is a *Field
// naming a catalog table, a *SelectQuery or a *SelectUnionQuery.
type JoinExpr struct {
	Typed
	JoinType   string // empty for the first link
	Table      Expr
	Alias      string
	Final      bool
	Sample     *SampleExpr
	Constraint Expr
	Next       *JoinExpr
}

// RatioExpr is a SAMPLE ratio: left or left/right.
type RatioExpr struct {
	Typed
	Left  *Constant
	Right *Constant
}

// SampleExpr is a SAMPLE clause.
type SampleExpr struct {
	Typed
	Sample *RatioExpr
	Offset *RatioExpr
}

// MacroKind tells how a macro expands.
type MacroKind int

const (
	// MacroColumn replaces a bare field reference: WITH expr AS name.
	MacroColumn MacroKind = iota
	// MacroSubquery replaces a table reference: WITH name AS (SELECT ...).
	MacroSubquery
)

// Macro is a named expression declared in a WITH clause.
type Macro struct {
	Typed
	Name string
	Expr Expr
	Kind MacroKind
}

// Macro returns the macro declared under name, or nil.
func (s *SelectQuery) Macro(name string) *Macro {
	for _, m := range s.Macros {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// LastJoin returns the final link of the FROM chain.
func (j *JoinExpr) LastJoin() *JoinExpr {
	for j.Next != nil {
		j = j.Next
	}
	return j
}

func (*SelectQuery) node()      {}
func (*SelectUnionQuery) node() {}
func (*JoinExpr) node()         {}
func (*RatioExpr) node()        {}
func (*SampleExpr) node()       {}
func (*Macro) node()            {}

func (*SelectQuery) exprNode()      {}
func (*SelectUnionQuery) exprNode() {}
func (*JoinExpr) exprNode()         {}
func (*RatioExpr) exprNode()        {}
func (*SampleExpr) exprNode()       {}
func (*Macro) exprNode()            {}
