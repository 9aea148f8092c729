package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Coerce converts a decoded JSON value into the Go representation of t:
// string, int64 or bool. Numbers are expected as json.Number or float64.
func Coerce(t FieldType, v any) (any, error) {
	switch t {
	case TypeString:
		return coerceString(v)
	case TypeInteger:
		return coerceInteger(v)
	case TypeBoolean:
		return coerceBoolean(v)
	}
	return nil, fmt.Errorf("unknown field type %q", t)
}

func coerceString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case float64, float32, int, int64, int32:
		return cast.ToStringE(x)
	}
	return nil, fmt.Errorf("expected a string, got %s", describe(v))
}

func coerceInteger(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %s", x)
		}
		return integral(f)
	case float64:
		return integral(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, fmt.Errorf("expected an integer, got an empty string")
		}
		n, err := parseDecimal(s)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", x)
		}
		return n, nil
	}
	return nil, fmt.Errorf("expected an integer, got %s", describe(v))
}

// parseDecimal reads a base 10 integer, optionally followed by a zero
// fraction ("3.0"). Hex, octal and underscore forms are rejected.
func parseDecimal(s string) (int64, error) {
	if i := strings.IndexByte(s, '.'); i > 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return 0, err
	}
	// cast reads a leading 0 as octal.
	sign := ""
	if s[0] == '+' || s[0] == '-' {
		sign, s = s[:1], s[1:]
	}
	if s = strings.TrimLeft(s, "0"); s == "" {
		s = "0"
	}
	return cast.ToInt64E(sign + s)
}

func integral(f float64) (any, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, fmt.Errorf("expected an integer, got %v", f)
	}
	return int64(f), nil
}

func coerceBoolean(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case json.Number:
		f, err := x.Float64()
		if err == nil && (f == 0 || f == 1) {
			return f == 1, nil
		}
		return nil, fmt.Errorf("expected a boolean, got %s", x)
	case float64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
		return nil, fmt.Errorf("expected a boolean, got %v", x)
	case string:
		if _, err := strconv.ParseBool(x); err != nil {
			return nil, fmt.Errorf("expected a boolean, got %q", x)
		}
		return cast.ToBoolE(x)
	}
	return nil, fmt.Errorf("expected a boolean, got %s", describe(v))
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	}
	return fmt.Sprintf("%T", v)
}
