package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		typ  FieldType
		in   any
		want any
	}{
		{"string", TypeString, "hello", "hello"},
		{"string from number", TypeString, json.Number("42"), "42"},
		{"string from float", TypeString, float64(1.5), "1.5"},
		{"integer", TypeInteger, json.Number("12"), int64(12)},
		{"integer from integral float", TypeInteger, json.Number("3.0"), int64(3)},
		{"integer from float64", TypeInteger, float64(9), int64(9)},
		{"integer from string", TypeInteger, " 15 ", int64(15)},
		{"integer from zero padded string", TypeInteger, "010", int64(10)},
		{"integer from signed padded string", TypeInteger, "-007", int64(-7)},
		{"integer from zero fraction string", TypeInteger, "3.0", int64(3)},
		{"integer from zero string", TypeInteger, "000", int64(0)},
		{"integer at max", TypeInteger, json.Number("9223372036854775807"), int64(9223372036854775807)},
		{"integer passthrough", TypeInteger, int64(4), int64(4)},
		{"boolean", TypeBoolean, true, true},
		{"boolean from 0", TypeBoolean, json.Number("0"), false},
		{"boolean from 1", TypeBoolean, float64(1), true},
		{"boolean from 1.0", TypeBoolean, json.Number("1.0"), true},
		{"boolean from 0.0", TypeBoolean, json.Number("0.0"), false},
		{"boolean from string", TypeBoolean, "true", true},
		{"boolean from F", TypeBoolean, "F", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.typ, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerce_Rejects(t *testing.T) {
	tests := []struct {
		name string
		typ  FieldType
		in   any
	}{
		{"string from bool", TypeString, true},
		{"string from object", TypeString, map[string]any{}},
		{"integer from fraction", TypeInteger, json.Number("1.5")},
		{"integer from word", TypeInteger, "twelve"},
		{"integer from empty string", TypeInteger, ""},
		{"integer from bool", TypeInteger, false},
		{"integer past max", TypeInteger, json.Number("9223372036854775808")},
		{"integer past max as float", TypeInteger, float64(1 << 63)},
		{"integer from hex string", TypeInteger, "0x1F"},
		{"integer from underscored string", TypeInteger, "1_000"},
		{"integer from fraction string", TypeInteger, "3.5"},
		{"integer from bare sign", TypeInteger, "-"},
		{"boolean from 2", TypeBoolean, json.Number("2")},
		{"boolean from 0.5", TypeBoolean, json.Number("0.5")},
		{"boolean from word", TypeBoolean, "yes"},
		{"boolean from array", TypeBoolean, []any{}},
		{"unknown type", FieldType("float"), "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Coerce(tt.typ, tt.in)
			assert.Error(t, err)
		})
	}
}
