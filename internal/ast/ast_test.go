package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantql/internal/domain"
	"tenantql/internal/schema"
)

func eventsType(t *testing.T) *TableType {
	t.Helper()
	tbl, err := schema.New(schema.Options{}).LookupTable("events")
	require.NoError(t, err)
	return &TableType{Table: tbl}
}

func TestTableChild(t *testing.T) {
	events := eventsType(t)

	tests := []struct {
		name  string
		field string
		check func(t *testing.T, typ Type)
	}{
		{"column", "event", func(t *testing.T, typ Type) {
			ft, ok := typ.(*FieldType)
			require.True(t, ok)
			assert.Equal(t, "event", ft.Name)
			assert.Same(t, events, ft.Table)
		}},
		{"lazy join", "pdi", func(t *testing.T, typ Type) {
			lj, ok := typ.(*LazyJoinType)
			require.True(t, ok)
			assert.Equal(t, "pdi", lj.Field)
		}},
		{"virtual table", "poe", func(t *testing.T, typ Type) {
			_, ok := typ.(*VirtualTableType)
			require.True(t, ok)
		}},
		{"traverser", "person", func(t *testing.T, typ Type) {
			tr, ok := typ.(*FieldTraverserType)
			require.True(t, ok)
			assert.Equal(t, []string{"pdi", "person"}, tr.Chain)
		}},
		{"asterisk", "*", func(t *testing.T, typ Type) {
			at, ok := typ.(*AsteriskType)
			require.True(t, ok)
			assert.Len(t, at.Tables, 1)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, err := events.GetChild(tt.field)
			require.NoError(t, err)
			tt.check(t, typ)
		})
	}

	_, err := events.GetChild("missing")
	require.Error(t, err)
	assert.True(t, domain.IsCompileError(err, domain.KindResolution))
}

func TestPropertyChain(t *testing.T) {
	events := eventsType(t)
	props, err := events.GetChild("properties")
	require.NoError(t, err)

	p1, err := props.(*FieldType).GetChild("$browser")
	require.NoError(t, err)
	p2, err := p1.(*PropertyType).GetChild("version")
	require.NoError(t, err)

	assert.Equal(t, []string{"$browser"}, p1.(*PropertyType).Chain)
	assert.Equal(t, []string{"$browser", "version"}, p2.(*PropertyType).Chain)

	event, err := events.GetChild("event")
	require.NoError(t, err)
	_, err = event.(*FieldType).GetChild("x")
	require.Error(t, err)
}

func TestSelectQueryType_Order(t *testing.T) {
	s := NewSelectQueryType()
	s.SetColumn("b", &ConstantType{Value: 1})
	s.SetColumn("a", &ConstantType{Value: 2})
	s.SetColumn("b", &ConstantType{Value: 3})
	assert.Equal(t, []string{"b", "a"}, s.ColumnNames())

	events := eventsType(t)
	sub := NewSelectQueryType()
	s.AddTable("e", events)
	s.AddAnonymousTable(sub)
	assert.Equal(t, []TableOrSelectType{events, sub}, s.JoinedTables())
	assert.Equal(t, "e", s.AliasForTable(events))

	alias := &SelectQueryAliasType{Alias: "e", SelectQueryType: sub}
	s.ReplaceTable("e", alias)
	assert.Equal(t, []TableOrSelectType{alias, sub}, s.JoinedTables())
	assert.Equal(t, []string{"e"}, s.TableNames())
}

func TestClone_IsDeep(t *testing.T) {
	orig := &SelectQuery{
		Select: []Expr{&Field{Chain: []string{"event"}}},
		From:   &JoinExpr{Table: &Field{Chain: []string{"events"}}},
		Where: &CompareOperation{
			Op:    CmpEq,
			Left:  &Field{Chain: []string{"event"}},
			Right: &Constant{Value: "$pageview"},
		},
	}
	c := CloneSelect(orig)
	c.Select[0].(*Field).Chain[0] = "uuid"
	c.From.Table.(*Field).Chain[0] = "persons"

	assert.Equal(t, "event", orig.Select[0].(*Field).Chain[0])
	assert.Equal(t, "events", orig.From.Table.(*Field).Chain[0])
	assert.NotSame(t, orig.Where, c.Where)
}

func TestWalk(t *testing.T) {
	q := &SelectQuery{
		Select: []Expr{&Call{Name: "count"}, &Alias{Alias: "x", Expr: &Field{Chain: []string{"a"}}}},
		From:   &JoinExpr{Table: &Field{Chain: []string{"events"}}},
	}
	var fields []string
	Walk(q, func(e Expr) bool {
		if f, ok := e.(*Field); ok {
			fields = append(fields, f.Chain[0])
		}
		return true
	})
	assert.Equal(t, []string{"a", "events"}, fields)
}
