// Package schema defines the entity schemas served by the Celerix record service.
//
// A Schema is declared once at startup and never mutated afterwards. Several
// schemas may share the same field set and differ only in their storage
// destination (see WithDestination).
package schema

import (
	"errors"
	"fmt"
	"regexp"
)

// IdentityField is the implicit, server generated identity of every record.
const IdentityField = "id"

// FieldType is the primitive type of a schema field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
)

// Valid reports whether t is one of the supported primitive types.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeBoolean:
		return true
	}
	return false
}

// Field describes a single non-identity field of an entity.
type Field struct {
	Name     string    `json:"name" yaml:"name"`
	Type     FieldType `json:"type" yaml:"type"`
	Required bool      `json:"required" yaml:"required"`
}

var (
	// ErrInvalidSchema is wrapped by every schema declaration error.
	ErrInvalidSchema = errors.New("invalid schema")

	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Schema is an immutable entity description.
type Schema struct {
	name   string
	table  string
	fields []Field
	index  map[string]int
}

// New validates the declaration and returns the schema. When table is empty
// the entity name doubles as the storage destination.
func New(name, table string, fields []Field) (*Schema, error) {
	if table == "" {
		table = name
	}
	if !identifierRe.MatchString(name) {
		return nil, fmt.Errorf("%w: entity name %q is not an identifier", ErrInvalidSchema, name)
	}
	if !identifierRe.MatchString(table) {
		return nil, fmt.Errorf("%w: table name %q is not an identifier", ErrInvalidSchema, table)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: entity %q declares no fields", ErrInvalidSchema, name)
	}

	s := &Schema{
		name:   name,
		table:  table,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		switch {
		case !identifierRe.MatchString(f.Name):
			return nil, fmt.Errorf("%w: field name %q is not an identifier", ErrInvalidSchema, f.Name)
		case f.Name == IdentityField:
			return nil, fmt.Errorf("%w: field %q is reserved for the identity", ErrInvalidSchema, f.Name)
		case !f.Type.Valid():
			return nil, fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidSchema, f.Name, f.Type)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: field %q declared twice in %q", ErrInvalidSchema, f.Name, name)
		}
		s.index[f.Name] = i
		s.fields[i] = f
	}
	return s, nil
}

// WithDestination returns a schema with the same fields bound to another
// entity name and table.
func (s *Schema) WithDestination(name, table string) (*Schema, error) {
	return New(name, table, s.fields)
}

func (s *Schema) Name() string  { return s.name }
func (s *Schema) Table() string { return s.table }

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Required returns the names of the required fields in declaration order.
func (s *Schema) Required() []string {
	var names []string
	for _, f := range s.fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Columns returns the field names in declaration order.
func (s *Schema) Columns() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}
