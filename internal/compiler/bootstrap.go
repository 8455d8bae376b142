package compiler

import (
	"context"
	"fmt"
	"log/slog"

	"tenantql/internal/config"
	"tenantql/internal/db"
	"tenantql/internal/db/repository"
	"tenantql/internal/schema"
)

// FromConfig builds a Service from cfg: the default catalog extended with
// CATALOG_FILE, and the materialized columns and property definitions of
// the metastore at META_DB_PATH. The returned cleanup closes the metastore.
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, func() error, error) {
	cleanup := func() error { return nil }

	database, err := LoadCatalog(cfg)
	if err != nil {
		return nil, cleanup, err
	}

	deps := ServiceDeps{Config: cfg, Database: database, Logger: logger}

	if cfg.HasMetastore() {
		m, err := db.OpenMetastore(cfg.MetaDBPath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open metastore: %w", err)
		}
		cleanup = m.Close

		materialized, err := repository.LoadMaterializedIndex(ctx, repository.NewMaterializedColumnRepo(m.Read))
		if err != nil {
			_ = m.Close()
			return nil, func() error { return nil }, err
		}
		definitions, err := repository.LoadDefinitionIndex(ctx, repository.NewPropertyDefinitionRepo(m.Read))
		if err != nil {
			_ = m.Close()
			return nil, func() error { return nil }, err
		}
		deps.Materialized = materialized
		deps.PropertyDefinitions = definitions

		if logger != nil {
			logger.Info("metastore loaded",
				"path", cfg.MetaDBPath,
				"materialized_columns", materialized.Len(),
				"property_definitions", definitions.Len())
		}
	}

	return NewService(deps), cleanup, nil
}

// LoadCatalog returns the default catalog for cfg, extended with the
// tables of cfg.CatalogFile when set.
func LoadCatalog(cfg *config.Config) (*schema.Database, error) {
	database := schema.New(schema.Options{
		Timezone:       cfg.DefaultTimezone,
		PersonOnEvents: cfg.PersonOnEvents,
	})
	if cfg.CatalogFile != "" {
		if err := database.LoadFile(cfg.CatalogFile); err != nil {
			return nil, fmt.Errorf("load catalog %s: %w", cfg.CatalogFile, err)
		}
	}
	return database, nil
}
