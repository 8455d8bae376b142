package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tenantql/internal/domain"
)

// Compile-time check.
var _ domain.PropertyDefinitionRepository = (*PropertyDefinitionRepo)(nil)

// PropertyDefinitionRepo implements PropertyDefinitionRepository using SQLite.
type PropertyDefinitionRepo struct {
	db *sql.DB
}

// NewPropertyDefinitionRepo creates a new PropertyDefinitionRepo.
func NewPropertyDefinitionRepo(db *sql.DB) *PropertyDefinitionRepo {
	return &PropertyDefinitionRepo{db: db}
}

// Upsert stores def, replacing the type of an existing definition.
func (r *PropertyDefinitionRepo) Upsert(ctx context.Context, def *domain.PropertyDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO property_definitions (kind, name, property_type)
		VALUES (?, ?, ?)
		ON CONFLICT (kind, name) DO UPDATE SET property_type = excluded.property_type`,
		string(def.Kind), def.Name, def.PropertyType)
	if err != nil {
		return fmt.Errorf("upsert property definition: %w", mapDBError(err))
	}
	return nil
}

// List returns every definition ordered by kind and name.
func (r *PropertyDefinitionRepo) List(ctx context.Context) ([]domain.PropertyDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, name, property_type FROM property_definitions ORDER BY kind, name`)
	if err != nil {
		return nil, fmt.Errorf("list property definitions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.PropertyDefinition
	for rows.Next() {
		var (
			def  domain.PropertyDefinition
			kind string
		)
		if err := rows.Scan(&kind, &def.Name, &def.PropertyType); err != nil {
			return nil, fmt.Errorf("scan property definition: %w", err)
		}
		def.Kind = domain.PropertyKind(kind)
		out = append(out, def)
	}
	return out, rows.Err()
}
