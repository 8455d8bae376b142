package ast

// === Expression Nodes ===

// Constant is a literal value. Value is nil, bool, an integer, float64,
// string, uuid.UUID, time.Time, []any or TupleValue.
type Constant struct {
	Typed
	Value any
}

// TupleValue is a tuple literal value.
type TupleValue []any

// Field references a column, table or property by its dotted chain.
type Field struct {
	Typed
	Chain []string
}

// Placeholder is a {name} slot replaced before resolution.
type Placeholder struct {
	Typed
	Field string
}

// Call is a function or aggregation call.
type Call struct {
	Typed
	Name     string
	Args     []Expr
	Distinct bool // count(DISTINCT x)
}

// BinaryOperation is an arithmetic operation.
type BinaryOperation struct {
	Typed
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// CompareOperation compares two expressions.
type CompareOperation struct {
	Typed
	Op    CompareOp
	Left  Expr
	Right Expr
}

// And is a conjunction of two or more expressions.
type And struct {
	Typed
	Exprs []Expr
}

// Or is a disjunction of two or more expressions.
type Or struct {
	Typed
	Exprs []Expr
}

// Not negates an expression.
type Not struct {
	Typed
	Expr Expr
}

// Tuple is a tuple constructor.
type Tuple struct {
	Typed
	Exprs []Expr
}

// Array is an array constructor.
type Array struct {
	Typed
	Exprs []Expr
}

// ArrayAccess indexes into an array: array[property].
type ArrayAccess struct {
	Typed
	Array    Expr
	Property Expr
}

// Lambda is an inline function: x -> expr or (x, y) -> expr.
type Lambda struct {
	Typed
	Args []string
	Expr Expr
}

// Alias names an expression in a select list.
type Alias struct {
	Typed
	Alias string
	Expr  Expr
}

// OrderExpr is an ORDER BY item.
type OrderExpr struct {
	Typed
	Expr  Expr
	Order string // "ASC" or "DESC"
}

func (*Constant) node()         {}
func (*Field) node()            {}
func (*Placeholder) node()      {}
func (*Call) node()             {}
func (*BinaryOperation) node()  {}
func (*CompareOperation) node() {}
func (*And) node()              {}
func (*Or) node()               {}
func (*Not) node()              {}
func (*Tuple) node()            {}
func (*Array) node()            {}
func (*ArrayAccess) node()      {}
func (*Lambda) node()           {}
func (*Alias) node()            {}
func (*OrderExpr) node()        {}

func (*Constant) exprNode()         {}
func (*Field) exprNode()            {}
func (*Placeholder) exprNode()      {}
func (*Call) exprNode()             {}
func (*BinaryOperation) exprNode()  {}
func (*CompareOperation) exprNode() {}
func (*And) exprNode()              {}
func (*Or) exprNode()               {}
func (*Not) exprNode()              {}
func (*Tuple) exprNode()            {}
func (*Array) exprNode()            {}
func (*ArrayAccess) exprNode()      {}
func (*Lambda) exprNode()           {}
func (*Alias) exprNode()            {}
func (*OrderExpr) exprNode()        {}

// BinaryOp is an arithmetic operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMult
	OpDiv
	OpMod
)

var binaryOpSymbols = map[BinaryOp]string{
	OpAdd:  "+",
	OpSub:  "-",
	OpMult: "*",
	OpDiv:  "/",
	OpMod:  "%",
}

func (op BinaryOp) String() string { return binaryOpSymbols[op] }

// CompareOp is a comparison operator.
type CompareOp int

const (
	CmpEq CompareOp = iota
	CmpNotEq
	CmpGt
	CmpGtE
	CmpLt
	CmpLtE
	CmpLike
	CmpILike
	CmpNotLike
	CmpNotILike
	CmpIn
	CmpNotIn
	CmpRegex
	CmpNotRegex
)

var compareOpSymbols = map[CompareOp]string{
	CmpEq:       "=",
	CmpNotEq:    "!=",
	CmpGt:       ">",
	CmpGtE:      ">=",
	CmpLt:       "<",
	CmpLtE:      "<=",
	CmpLike:     "LIKE",
	CmpILike:    "ILIKE",
	CmpNotLike:  "NOT LIKE",
	CmpNotILike: "NOT ILIKE",
	CmpIn:       "IN",
	CmpNotIn:    "NOT IN",
	CmpRegex:    "=~",
	CmpNotRegex: "!~",
}

func (op CompareOp) String() string { return compareOpSymbols[op] }
