package domain

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileError_Kinds(t *testing.T) {
	tests := []struct {
		name string
		err  *CompileError
		kind ErrorKind
		want string
	}{
		{"resolution", ErrResolution("unknown field %q", "x"), KindResolution, "resolution"},
		{"policy", ErrPolicy("no team"), KindPolicy, "policy"},
		{"structural", ErrStructural("nested"), KindStructural, "structural"},
		{"internal", ErrInternal("bad tree"), KindInternal, "internal"},
		{"syntax", ErrSyntax("unexpected %s", "FROM"), KindSyntax, "syntax"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.Equal(t, tt.want, tt.err.Kind.String())

			wrapped := fmt.Errorf("compile: %w", tt.err)
			ce, ok := AsCompileError(wrapped)
			require.True(t, ok)
			assert.Same(t, tt.err, ce)
			assert.True(t, IsCompileError(wrapped, tt.kind))
		})
	}
	assert.Equal(t, `unknown field "x"`, ErrResolution("unknown field %q", "x").Error())
}

func TestCompileError_NotACompileError(t *testing.T) {
	_, ok := AsCompileError(ErrValidation("bad"))
	assert.False(t, ok)
	assert.False(t, IsCompileError(ErrNotFound("gone"), KindResolution))
	assert.False(t, IsCompileError(ErrPolicy("x"), KindSyntax))
	assert.Equal(t, "ErrorKind(42)", ErrorKind(42).String())
}

func TestPropertyDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     PropertyDefinition
		wantErr string
	}{
		{"event numeric", PropertyDefinition{Kind: PropertyKindEvent, Name: "revenue", PropertyType: PropertyTypeNumeric}, ""},
		{"person datetime", PropertyDefinition{Kind: PropertyKindPerson, Name: "signup", PropertyType: PropertyTypeDateTime}, ""},
		{"bad kind", PropertyDefinition{Kind: "group", Name: "x", PropertyType: PropertyTypeString}, `invalid property kind "group"`},
		{"no name", PropertyDefinition{Kind: PropertyKindEvent, PropertyType: PropertyTypeString}, "property name is required"},
		{"bad type", PropertyDefinition{Kind: PropertyKindEvent, Name: "x", PropertyType: "Float"}, `invalid property type "Float"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Message)
		})
	}
}

func TestMaterializedColumn_Validate(t *testing.T) {
	ok := MaterializedColumn{TableName: "events", FieldName: "properties", PropertyName: "$browser", ColumnName: "mat_browser"}
	require.NoError(t, ok.Validate())

	missing := ok
	missing.ColumnName = ""
	assert.Error(t, missing.Validate())

	badField := ok
	badField.FieldName = "elements_chain"
	assert.EqualError(t, badField.Validate(), `invalid field "elements_chain": must be properties or person_properties`)
}

func TestNewQueryID(t *testing.T) {
	a, b := NewQueryID(), NewQueryID()
	assert.NotEqual(t, a, b)

	id, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}
