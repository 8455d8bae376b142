// Package repository implements the metastore repositories on SQLite and
// the in-memory registries the compiler reads them through.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tenantql/internal/domain"
)

const timestampLayout = "2006-01-02T15:04:05Z"

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	return err
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
