// Package schema holds the canonical e-invoice field table that uploads are
// scored against, together with the currency allow-list.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FieldType is the declared value type of a canonical field.
type FieldType string

// Declared field types. Any other type string is accepted and treated as
// compatible with every value.
const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeDate   FieldType = "date"
	TypeEnum   FieldType = "enum"
)

// Field is one canonical schema entry.
type Field struct {
	Path     string    `yaml:"path" json:"path"`
	Type     FieldType `yaml:"type" json:"type"`
	Required bool      `yaml:"required" json:"required"`
	Aliases  []string  `yaml:"aliases" json:"aliases,omitempty"`
}

// Name returns the bare field name: the last path segment with any []
// marker removed, e.g. "qty" for "lines[].qty".
func (f Field) Name() string {
	p := strings.ReplaceAll(f.Path, "[]", "")
	if i := strings.LastIndex(p, "."); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Schema is the immutable canonical field table. It is safe for concurrent
// readers.
type Schema struct {
	fields     []Field
	byPath     map[string]int
	required   []Field
	currencies []string
	allowed    map[string]struct{}
}

type document struct {
	Currencies []string `yaml:"currencies"`
	Fields     []Field  `yaml:"fields"`
}

//go:embed canonical.yaml
var canonicalYAML []byte

// Default returns the built-in canonical schema.
func Default() *Schema {
	s, err := Parse(canonicalYAML)
	if err != nil {
		panic(eris.Wrap(err, "schema: embedded canonical table"))
	}
	return s
}

// LoadFile reads a schema table from a YAML file.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "schema: read %s", path)
	}
	return Parse(data)
}

// Load returns the schema at path, or the built-in table when path is empty.
func Load(path string) (*Schema, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Parse decodes and validates a YAML schema table.
func Parse(data []byte) (*Schema, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "schema: decode yaml")
	}
	return New(doc.Fields, doc.Currencies)
}

// New builds a Schema from fields in their canonical order.
func New(fields []Field, currencies []string) (*Schema, error) {
	var errs []string

	s := &Schema{
		fields:  make([]Field, 0, len(fields)),
		byPath:  make(map[string]int, len(fields)),
		allowed: make(map[string]struct{}, len(currencies)),
	}
	for i, f := range fields {
		f.Path = strings.TrimSpace(f.Path)
		if f.Path == "" {
			errs = append(errs, fmt.Sprintf("field %d has an empty path", i))
			continue
		}
		if _, dup := s.byPath[f.Path]; dup {
			errs = append(errs, "duplicate path "+f.Path)
			continue
		}
		f.Aliases = append([]string(nil), f.Aliases...)
		s.byPath[f.Path] = len(s.fields)
		s.fields = append(s.fields, f)
		if f.Required {
			s.required = append(s.required, f)
		}
	}

	for _, c := range currencies {
		code := strings.ToUpper(strings.TrimSpace(c))
		if code == "" {
			continue
		}
		if _, dup := s.allowed[code]; dup {
			continue
		}
		s.allowed[code] = struct{}{}
		s.currencies = append(s.currencies, code)
	}
	if len(s.currencies) == 0 {
		errs = append(errs, "currency allow-list is empty")
	}

	if len(errs) > 0 {
		return nil, eris.Errorf("schema: validation failed: %s", strings.Join(errs, "; "))
	}
	return s, nil
}

// Fields returns the canonical fields in schema order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the canonical field at path.
func (s *Schema) Field(path string) (Field, bool) {
	i, ok := s.byPath[path]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Required returns the required fields in schema order.
func (s *Schema) Required() []Field {
	out := make([]Field, len(s.required))
	copy(out, s.required)
	return out
}

// RequiredCount returns the number of required fields.
func (s *Schema) RequiredCount() int {
	return len(s.required)
}

// Currencies returns the allowed ISO currency codes in table order.
func (s *Schema) Currencies() []string {
	out := make([]string, len(s.currencies))
	copy(out, s.currencies)
	return out
}

// CurrencyAllowed reports whether code is on the allow-list. Callers
// uppercase the code first.
func (s *Schema) CurrencyAllowed(code string) bool {
	_, ok := s.allowed[code]
	return ok
}
