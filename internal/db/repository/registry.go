package repository

import (
	"context"
	"fmt"

	"tenantql/internal/domain"
)

var (
	_ domain.MaterializedColumns = (*MaterializedIndex)(nil)
	_ domain.PropertyDefinitions = (*DefinitionIndex)(nil)
)

type materializedKey struct {
	table, property, field string
}

// MaterializedIndex is an immutable in-memory view of the materialized
// column registrations. It is safe for concurrent use.
type MaterializedIndex struct {
	columns map[materializedKey]string
}

// NewMaterializedIndex indexes cols. Later entries win on duplicates.
func NewMaterializedIndex(cols []domain.MaterializedColumn) *MaterializedIndex {
	idx := &MaterializedIndex{columns: make(map[materializedKey]string, len(cols))}
	for _, c := range cols {
		idx.columns[materializedKey{c.TableName, c.PropertyName, c.FieldName}] = c.ColumnName
	}
	return idx
}

// LoadMaterializedIndex reads every registration from repo.
func LoadMaterializedIndex(ctx context.Context, repo domain.MaterializedColumnRepository) (*MaterializedIndex, error) {
	cols, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load materialized columns: %w", err)
	}
	return NewMaterializedIndex(cols), nil
}

// Lookup implements domain.MaterializedColumns.
func (i *MaterializedIndex) Lookup(table, property, field string) (string, bool) {
	col, ok := i.columns[materializedKey{table, property, field}]
	return col, ok
}

// Len returns the number of registrations.
func (i *MaterializedIndex) Len() int { return len(i.columns) }

type definitionKey struct {
	kind domain.PropertyKind
	name string
}

// DefinitionIndex is an immutable in-memory view of the property
// definitions. It is safe for concurrent use.
type DefinitionIndex struct {
	types map[definitionKey]string
}

// NewDefinitionIndex indexes defs.
func NewDefinitionIndex(defs []domain.PropertyDefinition) *DefinitionIndex {
	idx := &DefinitionIndex{types: make(map[definitionKey]string, len(defs))}
	for _, d := range defs {
		idx.types[definitionKey{d.Kind, d.Name}] = d.PropertyType
	}
	return idx
}

// LoadDefinitionIndex reads every definition from repo.
func LoadDefinitionIndex(ctx context.Context, repo domain.PropertyDefinitionRepository) (*DefinitionIndex, error) {
	defs, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load property definitions: %w", err)
	}
	return NewDefinitionIndex(defs), nil
}

// PropertyType implements domain.PropertyDefinitions.
func (i *DefinitionIndex) PropertyType(kind domain.PropertyKind, name string) (string, bool) {
	t, ok := i.types[definitionKey{kind, name}]
	return t, ok
}

// Len returns the number of definitions.
func (i *DefinitionIndex) Len() int { return len(i.types) }
