package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tenantql/internal/domain"
)

// File is the YAML document describing extra tables on top of the default
// catalog.
type File struct {
	Tables []TableSpec `yaml:"tables"`
}

// TableSpec declares one table.
type TableSpec struct {
	Name          string      `yaml:"name"`
	ExecutionName string      `yaml:"execution_name"`
	AvoidAsterisk []string    `yaml:"avoid_asterisk"`
	Fields        []FieldSpec `yaml:"fields"`
	Joins         []JoinSpec  `yaml:"joins"`
}

// FieldSpec declares a physical column.
type FieldSpec struct {
	Name   string `yaml:"name"`
	Column string `yaml:"column"`
	Type   string `yaml:"type"`
}

// JoinSpec declares a lazy join to another table of the catalog.
type JoinSpec struct {
	Name      string `yaml:"name"`
	FromField string `yaml:"from_field"`
	Table     string `yaml:"table"`
	ToField   string `yaml:"to_field"`
	JoinType  string `yaml:"join_type"`
}

var allowedJoinTypes = map[string]bool{
	"INNER JOIN": true,
	"LEFT JOIN":  true,
}

// LoadFile reads a catalog YAML file and registers its tables on d.
func (d *Database) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog file: %w", err)
	}
	if err := d.LoadYAML(data); err != nil {
		return fmt.Errorf("load catalog %s: %w", path, err)
	}
	return nil
}

// LoadYAML parses a catalog document and registers its tables on d. Joins
// may target tables declared earlier in the same document.
func (d *Database) LoadYAML(data []byte) error {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse catalog yaml: %w", err)
	}
	for i := range f.Tables {
		t, err := d.buildTable(&f.Tables[i])
		if err != nil {
			return err
		}
		if err := d.AddTable(t); err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) buildTable(spec *TableSpec) (*Table, error) {
	if spec.Name == "" {
		return nil, domain.ErrValidation("table name is required")
	}
	if len(spec.Fields) == 0 {
		return nil, domain.ErrValidation("table %q: at least one field is required", spec.Name)
	}
	execName := spec.ExecutionName
	if execName == "" {
		execName = spec.Name
	}

	t := NewTable(spec.Name, execName)
	for _, fs := range spec.Fields {
		if fs.Name == "" {
			return nil, domain.ErrValidation("table %q: field name is required", spec.Name)
		}
		kind, ok := ParseFieldKind(strings.ToLower(fs.Type))
		if !ok {
			return nil, domain.ErrValidation("table %q: field %q has unknown type %q", spec.Name, fs.Name, fs.Type)
		}
		column := fs.Column
		if column == "" {
			column = fs.Name
		}
		t.AddColumn(Renamed(fs.Name, column, kind))
	}
	if f, ok := t.Field("team_id"); !ok {
		return nil, domain.ErrValidation("table %q: a team_id field is required", spec.Name)
	} else if df, ok := f.(*DatabaseField); !ok || df.Kind != KindInteger {
		return nil, domain.ErrValidation("table %q: team_id must be an integer column", spec.Name)
	}

	for _, js := range spec.Joins {
		j, err := d.buildJoin(t, js)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", spec.Name, err)
		}
		t.AddColumn(Column{Name: js.Name, Field: j})
	}
	t.AvoidAsterisk(spec.AvoidAsterisk...)
	return t, nil
}

func (d *Database) buildJoin(owner *Table, js JoinSpec) (*LazyJoin, error) {
	if js.Name == "" || js.FromField == "" || js.Table == "" || js.ToField == "" {
		return nil, domain.ErrValidation("join needs name, from_field, table and to_field")
	}
	if !owner.HasField(js.FromField) {
		return nil, domain.ErrValidation("join %q: unknown from_field %q", js.Name, js.FromField)
	}
	joinType := strings.ToUpper(strings.TrimSpace(js.JoinType))
	if joinType == "" {
		joinType = innerJoin
	}
	if !allowedJoinTypes[joinType] {
		return nil, domain.ErrValidation("join %q: unsupported join type %q", js.Name, js.JoinType)
	}

	target, err := d.LookupTable(js.Table)
	if err != nil {
		return nil, fmt.Errorf("join %q: %w", js.Name, err)
	}
	joinTable := target
	if target.IsLazy() {
		// Fields reached through the join are typed against the physical table
		// the lazy subquery reads from.
		joinTable, err = d.LookupTable(target.Lazy.Table)
		if err != nil {
			return nil, fmt.Errorf("join %q: %w", js.Name, err)
		}
	}
	if !joinTable.HasField(js.ToField) {
		return nil, domain.ErrValidation("join %q: unknown to_field %q on %q", js.Name, js.ToField, js.Table)
	}
	return &LazyJoin{
		FromField: js.FromField,
		ToField:   js.ToField,
		JoinType:  joinType,
		JoinTable: joinTable,
		Select:    LazySelectFor(target, js.ToField),
	}, nil
}
