package schema

// Table is a catalog relation. A table with a Lazy select is never read
// directly: the lazy table pass swaps it for that subquery. A virtual
// table has no names of its own and only exists nested in a parent table.
type Table struct {
	sourceName    string
	executionName string
	columns       []Column
	index         map[string]int
	avoidAsterisk map[string]bool
	virtual       bool

	Lazy *LazySelect
}

// NewTable creates a physical table.
func NewTable(sourceName, executionName string, columns ...Column) *Table {
	t := &Table{
		sourceName:    sourceName,
		executionName: executionName,
		index:         make(map[string]int, len(columns)),
		avoidAsterisk: map[string]bool{},
	}
	for _, c := range columns {
		t.AddColumn(c)
	}
	return t
}

// NewVirtualTable creates a table nested inside another table's columns.
func NewVirtualTable(columns ...Column) *Table {
	t := NewTable("", "", columns...)
	t.virtual = true
	return t
}

// SourceName is the name the table is written as in the source dialect.
func (t *Table) SourceName() string { return t.sourceName }

// ExecutionName is the physical table name in the execution dialect.
func (t *Table) ExecutionName() string { return t.executionName }

// IsVirtual reports whether the table is nested inside a parent table.
func (t *Table) IsVirtual() bool { return t.virtual }

// IsLazy reports whether the table is replaced by a subquery before printing.
func (t *Table) IsLazy() bool { return t.Lazy != nil }

// AddColumn appends a column, replacing an existing one with the same name
// in place.
func (t *Table) AddColumn(c Column) {
	if i, ok := t.index[c.Name]; ok {
		t.columns[i] = c
		return
	}
	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
}

// AvoidAsterisk hides columns from wildcard expansion.
func (t *Table) AvoidAsterisk(names ...string) *Table {
	for _, n := range names {
		t.avoidAsterisk[n] = true
	}
	return t
}

// HasField reports whether name is declared on the table.
func (t *Table) HasField(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Field returns the field declared under name.
func (t *Table) Field(name string) (Field, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i].Field, true
}

// Columns returns the columns in declaration order.
func (t *Table) Columns() []Column {
	return t.columns
}

// AsteriskColumns returns the physical columns a wildcard expands to, in
// declaration order. Joins, traversers, virtual tables and hidden columns
// are skipped.
func (t *Table) AsteriskColumns() []Column {
	var out []Column
	for _, c := range t.columns {
		if t.avoidAsterisk[c.Name] {
			continue
		}
		if _, ok := c.Field.(*DatabaseField); ok {
			out = append(out, c)
		}
	}
	return out
}
