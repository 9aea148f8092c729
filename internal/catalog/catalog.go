// Package catalog loads the entity declarations served by the daemon.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/celerix-dev/celerix-records/pkg/schema"
)

//go:embed default.yaml
var defaultCatalog []byte

// Entity is a schema bound to the URL prefix it is served under.
type Entity struct {
	Prefix string
	Schema *schema.Schema
}

type document struct {
	Shapes   map[string][]schema.Field `yaml:"shapes"`
	Entities []declaration             `yaml:"entities"`
}

type declaration struct {
	Name   string         `yaml:"name"`
	Table  string         `yaml:"table"`
	Prefix string         `yaml:"prefix"`
	Shape  string         `yaml:"shape"`
	Fields []schema.Field `yaml:"fields"`
}

var (
	// ErrInvalidCatalog is wrapped by every catalog error.
	ErrInvalidCatalog = errors.New("invalid catalog")

	// Prefix segments are literal; gin wildcards (":", "*") are not allowed.
	prefixSegmentRe = regexp.MustCompile(`^[A-Za-z0-9._~-]+$`)
)

// Default returns the built-in catalog.
func Default() ([]Entity, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file; an empty path selects the built-in catalog.
func Load(file string) ([]Entity, error) {
	if file == "" {
		return Default()
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Entities sharing a shape get one schema
// instantiated per storage destination.
func Parse(data []byte) ([]Entity, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(doc.Entities) == 0 {
		return nil, fmt.Errorf("%w: no entities declared", ErrInvalidCatalog)
	}

	shapes := make(map[string]*schema.Schema, len(doc.Shapes))
	for name, fields := range doc.Shapes {
		s, err := schema.New(name, "", fields)
		if err != nil {
			return nil, fmt.Errorf("%w: shape %s: %v", ErrInvalidCatalog, name, err)
		}
		shapes[name] = s
	}

	var (
		out      = make([]Entity, 0, len(doc.Entities))
		prefixes = make(map[string]string)
		tables   = make(map[string]string)
	)
	for _, d := range doc.Entities {
		s, err := d.build(shapes)
		if err != nil {
			return nil, err
		}
		prefix := normalizePrefix(d.Prefix, d.Name)
		if prefix == "/" {
			return nil, fmt.Errorf("%w: entity %s cannot be served at the root", ErrInvalidCatalog, d.Name)
		}
		if err := checkPrefix(prefix); err != nil {
			return nil, fmt.Errorf("%w: entity %s: %v", ErrInvalidCatalog, d.Name, err)
		}
		if other, dup := prefixes[prefix]; dup {
			return nil, fmt.Errorf("%w: prefix %s used by %s and %s", ErrInvalidCatalog, prefix, other, d.Name)
		}
		if other, dup := tables[s.Table()]; dup {
			return nil, fmt.Errorf("%w: table %s used by %s and %s", ErrInvalidCatalog, s.Table(), other, d.Name)
		}
		prefixes[prefix] = d.Name
		tables[s.Table()] = d.Name
		out = append(out, Entity{Prefix: prefix, Schema: s})
	}
	return out, nil
}

func (d declaration) build(shapes map[string]*schema.Schema) (*schema.Schema, error) {
	switch {
	case d.Shape != "" && len(d.Fields) > 0:
		return nil, fmt.Errorf("%w: entity %s sets both shape and fields", ErrInvalidCatalog, d.Name)
	case d.Shape != "":
		shape, ok := shapes[d.Shape]
		if !ok {
			return nil, fmt.Errorf("%w: entity %s references unknown shape %s", ErrInvalidCatalog, d.Name, d.Shape)
		}
		s, err := shape.WithDestination(d.Name, d.Table)
		if err != nil {
			return nil, fmt.Errorf("%w: entity %s: %v", ErrInvalidCatalog, d.Name, err)
		}
		return s, nil
	}
	s, err := schema.New(d.Name, d.Table, d.Fields)
	if err != nil {
		return nil, fmt.Errorf("%w: entity %s: %v", ErrInvalidCatalog, d.Name, err)
	}
	return s, nil
}

func normalizePrefix(prefix, name string) string {
	if prefix == "" {
		prefix = name
	}
	return path.Clean("/" + strings.Trim(prefix, "/"))
}

func checkPrefix(prefix string) error {
	for _, seg := range strings.Split(strings.TrimPrefix(prefix, "/"), "/") {
		if !prefixSegmentRe.MatchString(seg) {
			return fmt.Errorf("prefix %s has invalid segment %q", prefix, seg)
		}
	}
	return nil
}
