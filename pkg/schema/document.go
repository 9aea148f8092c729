package schema

import (
	"bytes"
	"encoding/json"
)

// Document is a response record: an ordered JSON object with the identity
// first and the fields in schema order.
type Document struct {
	keys   []string
	values map[string]any
}

// Shape builds the response document for a stored record. Fields missing from
// values are emitted as null, or left out entirely when omitNull is set.
func (s *Schema) Shape(id int64, values map[string]any, omitNull bool) Document {
	d := Document{
		keys:   make([]string, 0, len(s.fields)+1),
		values: make(map[string]any, len(s.fields)+1),
	}
	d.set(IdentityField, id)
	for _, f := range s.fields {
		v := values[f.Name]
		if v == nil && omitNull {
			continue
		}
		d.set(f.Name, v)
	}
	return d
}

func (d *Document) set(key string, v any) {
	d.keys = append(d.keys, key)
	d.values[key] = v
}

// Keys returns the keys in emission order.
func (d Document) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Get returns the value for key.
func (d Document) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// MarshalJSON writes the keys in order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
