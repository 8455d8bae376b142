package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "tenantql/internal/db"
	"tenantql/internal/domain"
)

func TestMaterializedIndex(t *testing.T) {
	idx := NewMaterializedIndex([]domain.MaterializedColumn{
		{TableName: "events", PropertyName: "$browser", FieldName: "properties", ColumnName: "mat_browser"},
		{TableName: "events", PropertyName: "email", FieldName: "person_properties", ColumnName: "pmat_email"},
	})
	assert.Equal(t, 2, idx.Len())

	col, ok := idx.Lookup("events", "$browser", "properties")
	require.True(t, ok)
	assert.Equal(t, "mat_browser", col)

	_, ok = idx.Lookup("events", "$browser", "person_properties")
	assert.False(t, ok)
	_, ok = idx.Lookup("persons", "email", "properties")
	assert.False(t, ok)
}

func TestDefinitionIndex(t *testing.T) {
	idx := NewDefinitionIndex([]domain.PropertyDefinition{
		{Kind: domain.PropertyKindEvent, Name: "$screen_width", PropertyType: domain.PropertyTypeNumeric},
	})

	typ, ok := idx.PropertyType(domain.PropertyKindEvent, "$screen_width")
	require.True(t, ok)
	assert.Equal(t, domain.PropertyTypeNumeric, typ)

	_, ok = idx.PropertyType(domain.PropertyKindPerson, "$screen_width")
	assert.False(t, ok)
}

func TestLoadIndexesFromMetastore(t *testing.T) {
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, NewMaterializedColumnRepo(writeDB).Upsert(ctx, &domain.MaterializedColumn{
		TableName: "events", PropertyName: "$os", FieldName: "properties", ColumnName: "mat_os",
	}))
	require.NoError(t, NewPropertyDefinitionRepo(writeDB).Upsert(ctx, &domain.PropertyDefinition{
		Kind: domain.PropertyKindPerson, Name: "age", PropertyType: domain.PropertyTypeNumeric,
	}))

	mat, err := LoadMaterializedIndex(ctx, NewMaterializedColumnRepo(readDB))
	require.NoError(t, err)
	col, ok := mat.Lookup("events", "$os", "properties")
	assert.True(t, ok)
	assert.Equal(t, "mat_os", col)

	defs, err := LoadDefinitionIndex(ctx, NewPropertyDefinitionRepo(readDB))
	require.NoError(t, err)
	typ, ok := defs.PropertyType(domain.PropertyKindPerson, "age")
	assert.True(t, ok)
	assert.Equal(t, domain.PropertyTypeNumeric, typ)
}

type failingLister struct{}

func (failingLister) Upsert(context.Context, *domain.MaterializedColumn) error { return nil }
func (failingLister) Delete(context.Context, string, string, string) error     { return nil }
func (failingLister) List(context.Context) ([]domain.MaterializedColumn, error) {
	return nil, errors.New("disk on fire")
}

func TestLoadMaterializedIndex_Error(t *testing.T) {
	_, err := LoadMaterializedIndex(context.Background(), failingLister{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load materialized columns")
}
