package ast

import (
	"tenantql/internal/domain"
	"tenantql/internal/schema"
)

// Type is what a resolved expression refers to.
//
//sumtype:decl
type Type interface {
	typeNode()
}

// TableOrSelectType is a type that can be joined in a FROM clause and
// looked into for fields.
type TableOrSelectType interface {
	Type
	HasChild(name string) bool
	GetChild(name string) (Type, error)
}

// BaseTableType is a table-like type backed by a catalog table.
type BaseTableType interface {
	TableOrSelectType
	ResolveDatabaseTable() *schema.Table
}

// === Table Types ===

// TableType is a catalog table joined under its own name.
type TableType struct {
	Table *schema.Table
}

// TableAliasType is a catalog table joined under an alias. TableType is a
// *TableType, or a *LazyTableType until the lazy table pass runs.
type TableAliasType struct {
	Alias     string
	TableType BaseTableType
}

// LazyTableType is a lazy catalog table before it is swapped for its subquery.
type LazyTableType struct {
	Table *schema.Table
}

// LazyJoinType is a join reached through a field of Table, not yet inlined.
type LazyJoinType struct {
	Table    BaseTableType
	Field    string
	LazyJoin *schema.LazyJoin
}

// VirtualTableType is a table nested in Table under Field.
type VirtualTableType struct {
	Table        BaseTableType
	Field        string
	VirtualTable *schema.Table
}

// SelectUnionQueryType is the scope of a UNION ALL; fields come from the
// first arm.
type SelectUnionQueryType struct {
	Types []*SelectQueryType
}

// SelectQueryAliasType is a subquery joined under an alias.
// SelectQueryType is a *SelectQueryType or *SelectUnionQueryType.
type SelectQueryAliasType struct {
	Alias           string
	SelectQueryType TableOrSelectType
}

// === Field Types ===

// FieldType is a column of Table.
type FieldType struct {
	Name  string
	Table TableOrSelectType
}

// PropertyType is a path into the JSON column Parent. After the lazy
// table pass, accesses through a join are read from JoinedSubquery under
// JoinedSubqueryField.
type PropertyType struct {
	Chain               []string
	Parent              *FieldType
	JoinedSubquery      *SelectQueryAliasType
	JoinedSubqueryField string
}

// FieldAliasType is a reference to a select-list alias.
type FieldAliasType struct {
	Alias string
	Type  Type
}

// FieldTraverserType redirects the rest of a chain; the resolver removes it.
type FieldTraverserType struct {
	Chain []string
	Table BaseTableType
}

// LambdaArgumentType is a reference to a lambda parameter.
type LambdaArgumentType struct {
	Name string
}

// AsteriskType is a wildcard over one or more tables, in join order.
type AsteriskType struct {
	Tables []TableOrSelectType
}

// CallType is the type of a function call.
type CallType struct {
	Name string
	Args []Type
}

// ConstantType is the type of a literal.
type ConstantType struct {
	Value any
}

func (*TableType) typeNode()            {}
func (*TableAliasType) typeNode()       {}
func (*LazyTableType) typeNode()        {}
func (*LazyJoinType) typeNode()         {}
func (*VirtualTableType) typeNode()     {}
func (*SelectQueryType) typeNode()      {}
func (*SelectUnionQueryType) typeNode() {}
func (*SelectQueryAliasType) typeNode() {}
func (*FieldType) typeNode()            {}
func (*PropertyType) typeNode()         {}
func (*FieldAliasType) typeNode()       {}
func (*FieldTraverserType) typeNode()   {}
func (*LambdaArgumentType) typeNode()   {}
func (*AsteriskType) typeNode()         {}
func (*CallType) typeNode()             {}
func (*ConstantType) typeNode()         {}

// === Catalog-backed tables ===

func (t *TableType) ResolveDatabaseTable() *schema.Table      { return t.Table }
func (t *TableAliasType) ResolveDatabaseTable() *schema.Table { return t.TableType.ResolveDatabaseTable() }
func (t *LazyTableType) ResolveDatabaseTable() *schema.Table  { return t.Table }
func (t *LazyJoinType) ResolveDatabaseTable() *schema.Table   { return t.LazyJoin.JoinTable }
func (t *VirtualTableType) ResolveDatabaseTable() *schema.Table {
	return t.VirtualTable
}

func (t *TableType) HasChild(name string) bool        { return t.Table.HasField(name) }
func (t *TableAliasType) HasChild(name string) bool   { return t.ResolveDatabaseTable().HasField(name) }
func (t *LazyTableType) HasChild(name string) bool    { return t.Table.HasField(name) }
func (t *LazyJoinType) HasChild(name string) bool     { return t.LazyJoin.JoinTable.HasField(name) }
func (t *VirtualTableType) HasChild(name string) bool { return t.VirtualTable.HasField(name) }

func (t *TableType) GetChild(name string) (Type, error)        { return tableChild(t, name) }
func (t *TableAliasType) GetChild(name string) (Type, error)   { return tableChild(t, name) }
func (t *LazyTableType) GetChild(name string) (Type, error)    { return tableChild(t, name) }
func (t *LazyJoinType) GetChild(name string) (Type, error)     { return tableChild(t, name) }
func (t *VirtualTableType) GetChild(name string) (Type, error) { return tableChild(t, name) }

func tableChild(parent BaseTableType, name string) (Type, error) {
	if name == "*" {
		return &AsteriskType{Tables: []TableOrSelectType{parent}}, nil
	}
	table := parent.ResolveDatabaseTable()
	f, ok := table.Field(name)
	if !ok {
		return nil, domain.ErrResolution("Field not found: %s", name)
	}
	switch f := f.(type) {
	case *schema.DatabaseField:
		return &FieldType{Name: name, Table: parent}, nil
	case *schema.LazyJoin:
		return &LazyJoinType{Table: parent, Field: name, LazyJoin: f}, nil
	case *schema.Table:
		return &VirtualTableType{Table: parent, Field: name, VirtualTable: f}, nil
	case *schema.FieldTraverser:
		return &FieldTraverserType{Chain: f.Chain, Table: parent}, nil
	default:
		return nil, domain.ErrInternal("unknown field kind %T for %s", f, name)
	}
}

// === Subquery scopes ===

func (t *SelectQueryType) HasChild(name string) bool {
	_, ok := t.columns[name]
	return ok
}

func (t *SelectQueryType) GetChild(name string) (Type, error) {
	if name == "*" {
		return &AsteriskType{Tables: []TableOrSelectType{t}}, nil
	}
	if t.HasChild(name) {
		return &FieldType{Name: name, Table: t}, nil
	}
	return nil, domain.ErrResolution("Field %s not found on query", name)
}

func (t *SelectUnionQueryType) HasChild(name string) bool {
	return len(t.Types) > 0 && t.Types[0].HasChild(name)
}

func (t *SelectUnionQueryType) GetChild(name string) (Type, error) {
	if len(t.Types) == 0 {
		return nil, domain.ErrInternal("empty union query")
	}
	return t.Types[0].GetChild(name)
}

func (t *SelectQueryAliasType) HasChild(name string) bool {
	return t.SelectQueryType.HasChild(name)
}

func (t *SelectQueryAliasType) GetChild(name string) (Type, error) {
	if name == "*" {
		return &AsteriskType{Tables: []TableOrSelectType{t}}, nil
	}
	if t.SelectQueryType.HasChild(name) {
		return &FieldType{Name: name, Table: t}, nil
	}
	return nil, domain.ErrResolution("Field %s not found on query with alias %s", name, t.Alias)
}

// === Fields ===

// ResolveDatabaseField returns the catalog field behind t, when t belongs
// to a catalog-backed table.
func (t *FieldType) ResolveDatabaseField() (schema.Field, bool) {
	bt, ok := t.Table.(BaseTableType)
	if !ok {
		return nil, false
	}
	return bt.ResolveDatabaseTable().Field(t.Name)
}

// GetChild turns a JSON column into a property path.
func (t *FieldType) GetChild(name string) (Type, error) {
	f, ok := t.ResolveDatabaseField()
	if !ok {
		return nil, domain.ErrResolution("Can not access property %s on field %s", name, t.Name)
	}
	if df, ok := f.(*schema.DatabaseField); ok && df.Kind == schema.KindJSON {
		return &PropertyType{Chain: []string{name}, Parent: t}, nil
	}
	return nil, domain.ErrResolution("Can not access property %s on field %s", name, t.Name)
}

// GetChild extends the property path.
func (t *PropertyType) GetChild(name string) (Type, error) {
	chain := make([]string, 0, len(t.Chain)+1)
	chain = append(chain, t.Chain...)
	chain = append(chain, name)
	return &PropertyType{Chain: chain, Parent: t.Parent}, nil
}

// ChildResolver is implemented by every type a field chain can continue through.
type ChildResolver interface {
	GetChild(name string) (Type, error)
}

var (
	_ ChildResolver     = (*FieldType)(nil)
	_ ChildResolver     = (*PropertyType)(nil)
	_ BaseTableType     = (*TableType)(nil)
	_ BaseTableType     = (*TableAliasType)(nil)
	_ BaseTableType     = (*LazyTableType)(nil)
	_ BaseTableType     = (*LazyJoinType)(nil)
	_ BaseTableType     = (*VirtualTableType)(nil)
	_ TableOrSelectType = (*SelectQueryType)(nil)
	_ TableOrSelectType = (*SelectUnionQueryType)(nil)
	_ TableOrSelectType = (*SelectQueryAliasType)(nil)
)

// Fields returns the columns the wildcard stands for: for each table in
// join order, its columns in declaration order.
func (t *AsteriskType) Fields() ([]*FieldType, error) {
	var out []*FieldType
	for _, table := range t.Tables {
		names, err := asteriskNames(table)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			out = append(out, &FieldType{Name: name, Table: table})
		}
	}
	return out, nil
}

func asteriskNames(t TableOrSelectType) ([]string, error) {
	switch t := t.(type) {
	case BaseTableType:
		var names []string
		for _, c := range t.ResolveDatabaseTable().AsteriskColumns() {
			names = append(names, c.Name)
		}
		return names, nil
	case *SelectQueryAliasType:
		return asteriskNames(t.SelectQueryType)
	case *SelectUnionQueryType:
		if len(t.Types) == 0 {
			return nil, domain.ErrInternal("empty union query")
		}
		return t.Types[0].ColumnNames(), nil
	case *SelectQueryType:
		return t.ColumnNames(), nil
	default:
		return nil, domain.ErrResolution("Can't expand asterisk (*) on a type of %T", t)
	}
}
