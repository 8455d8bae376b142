package ast

// SelectQueryType is the lexical scope of one SELECT. Aliases, columns and
// tables keep their insertion order so output never depends on map order.
type SelectQueryType struct {
	aliases     map[string]*FieldAliasType
	columns     map[string]Type
	columnOrder []string
	tables      map[string]TableOrSelectType
	tableOrder  []string

	// AnonymousTables are subqueries joined without an alias.
	AnonymousTables []TableOrSelectType
	// joined lists named and anonymous tables in join order.
	joined []TableOrSelectType
}

// NewSelectQueryType returns an empty scope.
func NewSelectQueryType() *SelectQueryType {
	return &SelectQueryType{
		aliases: map[string]*FieldAliasType{},
		columns: map[string]Type{},
		tables:  map[string]TableOrSelectType{},
	}
}

// Alias returns the select-list alias registered under name.
func (s *SelectQueryType) Alias(name string) (*FieldAliasType, bool) {
	a, ok := s.aliases[name]
	return a, ok
}

// AddAlias registers a select-list or lambda alias.
func (s *SelectQueryType) AddAlias(a *FieldAliasType) {
	s.aliases[a.Alias] = a
}

// Column returns the output column registered under name.
func (s *SelectQueryType) Column(name string) (Type, bool) {
	t, ok := s.columns[name]
	return t, ok
}

// SetColumn records an output column; re-setting keeps the original position.
func (s *SelectQueryType) SetColumn(name string, t Type) {
	if _, ok := s.columns[name]; !ok {
		s.columnOrder = append(s.columnOrder, name)
	}
	s.columns[name] = t
}

// ColumnNames returns output column names in select-list order.
func (s *SelectQueryType) ColumnNames() []string {
	return s.columnOrder
}

// Table returns the table joined under name.
func (s *SelectQueryType) Table(name string) (TableOrSelectType, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// AddTable records a table joined under name.
func (s *SelectQueryType) AddTable(name string, t TableOrSelectType) {
	if _, ok := s.tables[name]; !ok {
		s.tableOrder = append(s.tableOrder, name)
		s.joined = append(s.joined, t)
	}
	s.tables[name] = t
}

// ReplaceTable swaps the type joined under name, keeping its position.
func (s *SelectQueryType) ReplaceTable(name string, t TableOrSelectType) {
	old, ok := s.tables[name]
	if !ok {
		s.AddTable(name, t)
		return
	}
	for i, j := range s.joined {
		if j == old {
			s.joined[i] = t
		}
	}
	s.tables[name] = t
}

// AddAnonymousTable records a subquery joined without an alias.
func (s *SelectQueryType) AddAnonymousTable(t TableOrSelectType) {
	s.AnonymousTables = append(s.AnonymousTables, t)
	s.joined = append(s.joined, t)
}

// TableNames returns the names of joined tables in join order.
func (s *SelectQueryType) TableNames() []string {
	return s.tableOrder
}

// JoinedTables returns named and anonymous tables in join order.
func (s *SelectQueryType) JoinedTables() []TableOrSelectType {
	return s.joined
}

// AliasForTable returns the name t is joined under, or "".
func (s *SelectQueryType) AliasForTable(t TableOrSelectType) string {
	for _, name := range s.tableOrder {
		if s.tables[name] == t {
			return name
		}
	}
	return ""
}
