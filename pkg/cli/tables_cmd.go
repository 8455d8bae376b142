package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tenantql/internal/compiler"
	"tenantql/internal/schema"
)

// tableInfo is the json/yaml shape of a catalog table.
type tableInfo struct {
	Name          string      `json:"name" yaml:"name"`
	ExecutionName string      `json:"execution_name,omitempty" yaml:"execution_name,omitempty"`
	Lazy          bool        `json:"lazy,omitempty" yaml:"lazy,omitempty"`
	Fields        []fieldInfo `json:"fields" yaml:"fields"`
}

type fieldInfo struct {
	Name   string `json:"name" yaml:"name"`
	Kind   string `json:"kind" yaml:"kind"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables [NAME]",
		Short: "List the catalog tables or describe one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := compiler.LoadCatalog(a.cfg)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				t, err := database.LookupTable(args[0])
				if err != nil {
					return err
				}
				info := describeTable(t)
				return render(cmd, info, func(w io.Writer) error {
					rows := make([][]string, len(info.Fields))
					for i, f := range info.Fields {
						rows[i] = []string{f.Name, f.Kind, f.Target}
					}
					return printTable(w, []string{"field", "kind", "target"}, rows)
				})
			}

			infos := make([]tableInfo, 0, len(database.Tables()))
			for _, t := range database.Tables() {
				infos = append(infos, describeTable(t))
			}
			return render(cmd, infos, func(w io.Writer) error {
				rows := make([][]string, len(infos))
				for i, t := range infos {
					rows[i] = []string{t.Name, t.ExecutionName, fmt.Sprint(len(t.Fields))}
				}
				return printTable(w, []string{"name", "execution name", "fields"}, rows)
			})
		},
	}
}

func describeTable(t *schema.Table) tableInfo {
	info := tableInfo{Name: t.SourceName(), Lazy: t.IsLazy()}
	if !t.IsLazy() {
		info.ExecutionName = t.ExecutionName()
	}
	for _, c := range t.Columns() {
		info.Fields = append(info.Fields, describeField(c))
	}
	return info
}

func describeField(c schema.Column) fieldInfo {
	switch f := c.Field.(type) {
	case *schema.DatabaseField:
		fi := fieldInfo{Name: c.Name, Kind: f.Kind.String()}
		if f.Name != c.Name {
			fi.Target = f.Name
		}
		return fi
	case *schema.LazyJoin:
		return fieldInfo{Name: c.Name, Kind: "join", Target: fmt.Sprintf("%s.%s", f.Select.Table, f.ToField)}
	case *schema.FieldTraverser:
		return fieldInfo{Name: c.Name, Kind: "traverser", Target: strings.Join(f.Chain, ".")}
	case *schema.Table:
		return fieldInfo{Name: c.Name, Kind: "virtual table", Target: fmt.Sprintf("%d fields", len(f.Columns()))}
	default:
		return fieldInfo{Name: c.Name, Kind: fmt.Sprintf("%T", f)}
	}
}
