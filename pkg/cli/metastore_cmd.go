package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tenantql/internal/db"
	"tenantql/internal/db/repository"
	"tenantql/internal/domain"
)

// metastoreListing is the json/yaml shape of `metastore list`.
type metastoreListing struct {
	MaterializedColumns []domain.MaterializedColumn `json:"materialized_columns" yaml:"materialized_columns"`
	PropertyDefinitions []domain.PropertyDefinition `json:"property_definitions" yaml:"property_definitions"`
}

func newMetastoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metastore",
		Short: "Manage materialized columns and property definitions",
		Long:  "Manage the SQLite metastore at --meta-db (env META_DB_PATH). It is created and migrated on first use.",
	}

	open := func() (*db.Metastore, error) {
		if !a.cfg.HasMetastore() {
			return nil, errors.New("no metastore configured: set --meta-db or META_DB_PATH")
		}
		return db.OpenMetastore(a.cfg.MetaDBPath)
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "materialize TABLE FIELD PROPERTY COLUMN",
		Short:   "Register a column that holds a materialized property",
		Example: "  tenantql metastore materialize events properties '$browser' mat_browser",
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer m.Close() //nolint:errcheck

			col := &domain.MaterializedColumn{TableName: args[0], FieldName: args[1], PropertyName: args[2], ColumnName: args[3]}
			if err := repository.NewMaterializedColumnRepo(m.Write).Upsert(cmd.Context(), col); err != nil {
				return err
			}
			a.logger.Info("materialized column registered", "table", col.TableName, "property", col.PropertyName, "column", col.ColumnName)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unmaterialize TABLE FIELD PROPERTY",
		Short: "Remove a materialized column registration",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer m.Close() //nolint:errcheck

			return repository.NewMaterializedColumnRepo(m.Write).Delete(cmd.Context(), args[0], args[2], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "define KIND NAME TYPE",
		Short:   "Declare the type of an event or person property",
		Example: "  tenantql metastore define event revenue Numeric",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer m.Close() //nolint:errcheck

			def := &domain.PropertyDefinition{Kind: domain.PropertyKind(args[0]), Name: args[1], PropertyType: args[2]}
			if err := repository.NewPropertyDefinitionRepo(m.Write).Upsert(cmd.Context(), def); err != nil {
				return err
			}
			a.logger.Info("property defined", "kind", def.Kind, "name", def.Name, "type", def.PropertyType)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List materialized columns and property definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer m.Close() //nolint:errcheck

			cols, err := repository.NewMaterializedColumnRepo(m.Read).List(cmd.Context())
			if err != nil {
				return err
			}
			defs, err := repository.NewPropertyDefinitionRepo(m.Read).List(cmd.Context())
			if err != nil {
				return err
			}
			listing := metastoreListing{MaterializedColumns: cols, PropertyDefinitions: defs}
			return render(cmd, listing, func(w io.Writer) error { return printListing(w, listing) })
		},
	})

	return cmd
}

func printListing(w io.Writer, l metastoreListing) error {
	colRows := make([][]string, len(l.MaterializedColumns))
	for i, c := range l.MaterializedColumns {
		colRows[i] = []string{c.TableName, c.FieldName, c.PropertyName, c.ColumnName}
	}
	if err := printTable(w, []string{"table", "field", "property", "column"}, colRows); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	defRows := make([][]string, len(l.PropertyDefinitions))
	for i, d := range l.PropertyDefinitions {
		defRows[i] = []string{string(d.Kind), d.Name, d.PropertyType}
	}
	return printTable(w, []string{"kind", "name", "type"}, defRows)
}
