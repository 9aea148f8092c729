package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const draft2020 = "https://json-schema.org/draft/2020-12/schema"

// acceptedJSONTypes lists the JSON types that Coerce may turn into t.
func acceptedJSONTypes(t FieldType) []string {
	switch t {
	case TypeString:
		return []string{"string", "number"}
	case TypeInteger:
		return []string{"integer", "string"}
	case TypeBoolean:
		return []string{"boolean", "integer", "string"}
	}
	return nil
}

// JSONSchema renders the JSON Schema of the create/update payload. The
// identity property is tolerated and ignored by the handler.
func (s *Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.fields)+1)
	props[IdentityField] = true
	for _, f := range s.fields {
		types := acceptedJSONTypes(f.Type)
		if !f.Required {
			types = append(types, "null")
		}
		props[f.Name] = map[string]any{"type": types}
	}

	doc := map[string]any{
		"$schema":              draft2020,
		"title":                s.name,
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if req := s.Required(); len(req) > 0 {
		doc["required"] = req
	}
	return doc
}

// Compile compiles JSONSchema for payload validation.
func (s *Schema) Compile() (*jsonschema.Schema, error) {
	raw, err := json.Marshal(s.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", s.name, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	url := s.name + ".schema.json"
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", s.name, err)
	}
	return compiler.Compile(url)
}
