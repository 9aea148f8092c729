package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noteFields() []Field {
	return []Field{
		{Name: "title", Type: TypeString, Required: true},
		{Name: "content", Type: TypeString, Required: true},
		{Name: "text", Type: TypeString},
		{Name: "is_boolean", Type: TypeBoolean},
	}
}

func TestNew(t *testing.T) {
	s, err := New("table1", "", noteFields())
	require.NoError(t, err)
	assert.Equal(t, "table1", s.Name())
	assert.Equal(t, "table1", s.Table())
	assert.Equal(t, []string{"title", "content", "text", "is_boolean"}, s.Columns())
	assert.Equal(t, []string{"title", "content"}, s.Required())

	f, ok := s.Field("is_boolean")
	require.True(t, ok)
	assert.Equal(t, TypeBoolean, f.Type)
	_, ok = s.Field("missing")
	assert.False(t, ok)
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		entity string
		table  string
		fields []Field
	}{
		{"no fields", "e", "", nil},
		{"identity field", "e", "", []Field{{Name: "id", Type: TypeInteger}}},
		{"duplicate field", "e", "", []Field{{Name: "a", Type: TypeString}, {Name: "a", Type: TypeString}}},
		{"unknown type", "e", "", []Field{{Name: "a", Type: "float"}}},
		{"bad field name", "e", "", []Field{{Name: "a-b", Type: TypeString}}},
		{"bad entity name", "1e", "", []Field{{Name: "a", Type: TypeString}}},
		{"bad table name", "e", "drop table;", []Field{{Name: "a", Type: TypeString}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entity, tt.table, tt.fields)
			assert.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestWithDestination(t *testing.T) {
	base, err := New("note", "", noteFields())
	require.NoError(t, err)

	s, err := base.WithDestination("custom", "custom_table")
	require.NoError(t, err)
	assert.Equal(t, "custom", s.Name())
	assert.Equal(t, "custom_table", s.Table())
	assert.Equal(t, base.Fields(), s.Fields())
	assert.Equal(t, "note", base.Name())
}

func TestFieldsIsACopy(t *testing.T) {
	s, err := New("note", "", noteFields())
	require.NoError(t, err)

	fields := s.Fields()
	fields[0].Name = "changed"
	assert.Equal(t, "title", s.Fields()[0].Name)
}

func TestShape(t *testing.T) {
	s, err := New("note", "", noteFields())
	require.NoError(t, err)

	values := map[string]any{"title": "a", "content": "b", "is_boolean": true}

	doc := s.Shape(7, values, false)
	assert.Equal(t, []string{"id", "title", "content", "text", "is_boolean"}, doc.Keys())
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, `{"id":7,"title":"a","content":"b","text":null,"is_boolean":true}`, string(out))

	doc = s.Shape(7, values, true)
	out, err = json.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, `{"id":7,"title":"a","content":"b","is_boolean":true}`, string(out))

	_, ok := doc.Get("text")
	assert.False(t, ok)
}

func TestJSONSchema(t *testing.T) {
	s, err := New("note", "", noteFields())
	require.NoError(t, err)

	doc := s.JSONSchema()
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, false, doc["additionalProperties"])
	assert.Equal(t, []string{"title", "content"}, doc["required"])

	props := doc["properties"].(map[string]any)
	assert.Equal(t, true, props["id"])
	assert.Equal(t, map[string]any{"type": []string{"string", "number"}}, props["title"])
	assert.Equal(t, map[string]any{"type": []string{"boolean", "integer", "string", "null"}}, props["is_boolean"])
}

func TestCompile(t *testing.T) {
	s, err := New("note", "", noteFields())
	require.NoError(t, err)

	compiled, err := s.Compile()
	require.NoError(t, err)

	assert.NoError(t, compiled.Validate(map[string]any{"title": "a", "content": "b"}))
	assert.NoError(t, compiled.Validate(map[string]any{"title": "a", "content": "b", "text": nil, "id": json.Number("4")}))
	assert.Error(t, compiled.Validate(map[string]any{"title": "a"}))
	assert.Error(t, compiled.Validate(map[string]any{"title": "a", "content": "b", "extra": 1}))
	assert.Error(t, compiled.Validate(map[string]any{"title": "a", "content": nil}))
	assert.Error(t, compiled.Validate(map[string]any{"title": "a", "content": "b", "is_boolean": []any{}}))
}
