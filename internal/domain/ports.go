package domain

import "context"

// MaterializedColumns resolves a JSON property to a precomputed physical column.
// Implementations are read-only during a compilation and may be shared.
type MaterializedColumns interface {
	// Lookup returns the column holding property on field of table, if any.
	Lookup(table, property, field string) (string, bool)
}

// PropertyDefinitions reports the declared type of an event or person property.
type PropertyDefinitions interface {
	// PropertyType returns "DateTime", "Numeric", "Boolean" or "String".
	PropertyType(kind PropertyKind, name string) (string, bool)
}

// MaterializedColumnRepository persists materialized column registrations.
// Implemented by repository.MaterializedColumnRepo.
type MaterializedColumnRepository interface {
	Upsert(ctx context.Context, col *MaterializedColumn) error
	Delete(ctx context.Context, table, property, field string) error
	List(ctx context.Context) ([]MaterializedColumn, error)
}

// PropertyDefinitionRepository persists property definitions.
// Implemented by repository.PropertyDefinitionRepo.
type PropertyDefinitionRepository interface {
	Upsert(ctx context.Context, def *PropertyDefinition) error
	List(ctx context.Context) ([]PropertyDefinition, error)
}
