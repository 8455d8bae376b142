package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tenantql/internal/domain"
)

// Compile-time check.
var _ domain.MaterializedColumnRepository = (*MaterializedColumnRepo)(nil)

// MaterializedColumnRepo implements MaterializedColumnRepository using SQLite.
type MaterializedColumnRepo struct {
	db *sql.DB
}

// NewMaterializedColumnRepo creates a new MaterializedColumnRepo.
func NewMaterializedColumnRepo(db *sql.DB) *MaterializedColumnRepo {
	return &MaterializedColumnRepo{db: db}
}

// Upsert registers col, replacing the column of an existing registration.
func (r *MaterializedColumnRepo) Upsert(ctx context.Context, col *domain.MaterializedColumn) error {
	if err := col.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO materialized_columns (table_name, property_name, field_name, column_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (table_name, property_name, field_name)
		DO UPDATE SET column_name = excluded.column_name`,
		col.TableName, col.PropertyName, col.FieldName, col.ColumnName)
	if err != nil {
		return fmt.Errorf("upsert materialized column: %w", mapDBError(err))
	}
	return nil
}

// Delete removes a registration.
func (r *MaterializedColumnRepo) Delete(ctx context.Context, table, property, field string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM materialized_columns
		WHERE table_name = ? AND property_name = ? AND field_name = ?`,
		table, property, field)
	if err != nil {
		return fmt.Errorf("delete materialized column: %w", mapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("materialized column %s.%s[%s] not found", table, field, property)
	}
	return nil
}

// List returns every registration ordered by table, field and property.
func (r *MaterializedColumnRepo) List(ctx context.Context) ([]domain.MaterializedColumn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT table_name, property_name, field_name, column_name, created_at
		FROM materialized_columns
		ORDER BY table_name, field_name, property_name`)
	if err != nil {
		return nil, fmt.Errorf("list materialized columns: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.MaterializedColumn
	for rows.Next() {
		var (
			col     domain.MaterializedColumn
			created string
		)
		if err := rows.Scan(&col.TableName, &col.PropertyName, &col.FieldName, &col.ColumnName, &created); err != nil {
			return nil, fmt.Errorf("scan materialized column: %w", err)
		}
		if col.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, err
		}
		out = append(out, col)
	}
	return out, rows.Err()
}
