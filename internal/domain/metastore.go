package domain

import "time"

// MaterializedColumn maps a JSON property of a table field to a physical column.
type MaterializedColumn struct {
	TableName    string    `json:"table_name" yaml:"table_name"`
	PropertyName string    `json:"property_name" yaml:"property_name"`
	FieldName    string    `json:"field_name" yaml:"field_name"` // "properties" or "person_properties"
	ColumnName   string    `json:"column_name" yaml:"column_name"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// PropertyKind is the owner of a property definition.
type PropertyKind string

// Property kinds.
const (
	PropertyKindEvent  PropertyKind = "event"
	PropertyKindPerson PropertyKind = "person"
)

// Valid reports whether k is a known kind.
func (k PropertyKind) Valid() bool {
	return k == PropertyKindEvent || k == PropertyKindPerson
}

// Property types understood by the property cast pass.
const (
	PropertyTypeDateTime = "DateTime"
	PropertyTypeNumeric  = "Numeric"
	PropertyTypeBoolean  = "Boolean"
	PropertyTypeString   = "String"
)

// PropertyDefinition declares the type of an event or person property.
type PropertyDefinition struct {
	Kind         PropertyKind `json:"kind" yaml:"kind"`
	Name         string       `json:"name" yaml:"name"`
	PropertyType string       `json:"property_type" yaml:"property_type"`
}

// Validate checks the definition before it is stored.
func (d *PropertyDefinition) Validate() error {
	if !d.Kind.Valid() {
		return ErrValidation("invalid property kind %q", d.Kind)
	}
	if d.Name == "" {
		return ErrValidation("property name is required")
	}
	switch d.PropertyType {
	case PropertyTypeDateTime, PropertyTypeNumeric, PropertyTypeBoolean, PropertyTypeString:
		return nil
	default:
		return ErrValidation("invalid property type %q", d.PropertyType)
	}
}

// Validate checks the registration before it is stored.
func (c *MaterializedColumn) Validate() error {
	if c.TableName == "" || c.PropertyName == "" || c.ColumnName == "" {
		return ErrValidation("table, property and column names are required")
	}
	if c.FieldName != "properties" && c.FieldName != "person_properties" {
		return ErrValidation("invalid field %q: must be properties or person_properties", c.FieldName)
	}
	return nil
}
