// Package schema holds the catalog the compiler resolves names against:
// tables, their columns, lazy joins, lazy tables and virtual tables.
package schema

// FieldKind is the storage type of a DatabaseField.
type FieldKind int

const (
	KindString FieldKind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindDateTime
	KindDate
	KindJSON // JSON encoded string column, accessed through property chains
)

var kindNames = map[FieldKind]string{
	KindString:   "string",
	KindInteger:  "integer",
	KindFloat:    "float",
	KindBoolean:  "boolean",
	KindDateTime: "datetime",
	KindDate:     "date",
	KindJSON:     "json",
}

func (k FieldKind) String() string { return kindNames[k] }

// ParseFieldKind maps a catalog file type name to a FieldKind.
func ParseFieldKind(s string) (FieldKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Field is a named member of a Table.
// Implemented by *DatabaseField, *LazyJoin, *FieldTraverser and *Table (a
// virtual table nested in its parent).
//
//sumtype:decl
type Field interface {
	schemaField()
}

// DatabaseField is a physical column. Name is the column name in the
// execution dialect, which may differ from the key it is declared under.
type DatabaseField struct {
	Name string
	Kind FieldKind
}

// LazyJoin is a relation reached by joining another table on demand.
// The join is inlined by the lazy table pass only when a query touches it.
type LazyJoin struct {
	FromField string // column on the owning table
	ToField   string // column on the joined subquery
	JoinType  string // e.g. "INNER JOIN"
	JoinTable *Table // table used to type fields reached through the join
	Select    LazySelect
}

// FieldTraverser redirects a field to another chain on the same table.
type FieldTraverser struct {
	Chain []string
}

func (*DatabaseField) schemaField()  {}
func (*LazyJoin) schemaField()       {}
func (*FieldTraverser) schemaField() {}
func (*Table) schemaField()          {}

// LazySelect describes the subquery that stands in for a lazy table or join.
// With a VersionField every non-key column is read through
// argMax(column, version) grouped by KeyFields, and rows whose latest
// DeletedField is set are dropped.
type LazySelect struct {
	Table        string // source name of the physical table
	KeyFields    []string
	VersionField string
	DeletedField string
}

// Column is a field declared on a table under its logical name.
type Column struct {
	Name  string
	Field Field
}

// String is a shorthand for a string DatabaseField column.
func String(name string) Column { return Column{Name: name, Field: &DatabaseField{Name: name, Kind: KindString}} }

// Integer is a shorthand for an integer DatabaseField column.
func Integer(name string) Column { return Column{Name: name, Field: &DatabaseField{Name: name, Kind: KindInteger}} }

// Boolean is a shorthand for a boolean DatabaseField column.
func Boolean(name string) Column { return Column{Name: name, Field: &DatabaseField{Name: name, Kind: KindBoolean}} }

// DateTime is a shorthand for a datetime DatabaseField column.
func DateTime(name string) Column { return Column{Name: name, Field: &DatabaseField{Name: name, Kind: KindDateTime}} }

// JSON is a shorthand for a JSON DatabaseField column.
func JSON(name string) Column { return Column{Name: name, Field: &DatabaseField{Name: name, Kind: KindJSON}} }

// Renamed declares a column whose physical name differs from its logical name.
func Renamed(name, column string, kind FieldKind) Column {
	return Column{Name: name, Field: &DatabaseField{Name: column, Kind: kind}}
}
