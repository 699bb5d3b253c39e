package api

import (
	"regexp"
	"slices"
)

// Kind identifies the shape of value a Schema describes.
type Kind string

// Schema kinds.
const (
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindString  Kind = "string"
	KindBoolean Kind = "boolean"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
)

// Schema describes the expected shape and constraints of a value. It is the
// single source for request validation and for the generated OpenAPI
// document. A Schema is immutable once built; use With to derive a variant.
type Schema struct {
	kind Kind

	name        string
	title       string
	description string
	format      string

	example    any
	hasExample bool
	def        any
	hasDefault bool

	minimum      *float64
	maximum      *float64
	exclusiveMin bool

	minLength *int
	maxLength *int
	pattern   *regexp.Regexp
	enum      []string

	fields []FieldDef

	items    *Schema
	minItems *int
	maxItems *int
}

// FieldDef is one named property of an object Schema.
type FieldDef struct {
	name     string
	schema   *Schema
	required bool
}

// Field declares a required object property.
func Field(name string, s *Schema) FieldDef {
	return FieldDef{name: name, schema: s, required: true}
}

// Optional declares an optional object property.
func Optional(name string, s *Schema) FieldDef {
	return FieldDef{name: name, schema: s}
}

// Name returns the property name.
func (f FieldDef) Name() string { return f.name }

// Schema returns the property schema.
func (f FieldDef) Schema() *Schema { return f.schema }

// Required reports whether the property must be present.
func (f FieldDef) Required() bool { return f.required }

// SchemaOption configures a Schema at definition time.
type SchemaOption func(*Schema)

// Named gives the schema a component name. Named schemas appear once in the
// document's components section and are referenced everywhere else.
func Named(name string) SchemaOption {
	return func(s *Schema) {
		s.name = name
	}
}

// Title sets the human-readable display name.
func Title(title string) SchemaOption {
	return func(s *Schema) {
		s.title = title
	}
}

// Describe sets the schema description.
func Describe(desc string) SchemaOption {
	return func(s *Schema) {
		s.description = desc
	}
}

// Example sets the documented example value.
func Example(v any) SchemaOption {
	return func(s *Schema) {
		s.example = v
		s.hasExample = true
	}
}

// Default sets the value used when an optional property is absent.
func Default(v any) SchemaOption {
	return func(s *Schema) {
		s.def = v
		s.hasDefault = true
	}
}

// Format sets the OpenAPI format hint (e.g. "int64", "email").
func Format(f string) SchemaOption {
	return func(s *Schema) {
		s.format = f
	}
}

// Minimum sets the inclusive lower bound for numeric schemas.
func Minimum(v float64) SchemaOption {
	return func(s *Schema) {
		s.minimum = &v
		s.exclusiveMin = false
	}
}

// Maximum sets the inclusive upper bound for numeric schemas.
func Maximum(v float64) SchemaOption {
	return func(s *Schema) {
		s.maximum = &v
	}
}

// Positive requires numeric values to be strictly greater than zero.
func Positive() SchemaOption {
	return func(s *Schema) {
		zero := 0.0
		s.minimum = &zero
		s.exclusiveMin = true
	}
}

// MinLength sets the minimum string length in bytes.
func MinLength(n int) SchemaOption {
	return func(s *Schema) {
		s.minLength = &n
	}
}

// MaxLength sets the maximum string length in bytes.
func MaxLength(n int) SchemaOption {
	return func(s *Schema) {
		s.maxLength = &n
	}
}

// Pattern constrains strings to match expr. It panics if expr does not
// compile, like regexp.MustCompile.
func Pattern(expr string) SchemaOption {
	re := regexp.MustCompile(expr)
	return func(s *Schema) {
		s.pattern = re
	}
}

// Enum restricts strings to the given values.
func Enum(values ...string) SchemaOption {
	vals := slices.Clone(values)
	return func(s *Schema) {
		s.enum = vals
	}
}

// MinItems sets the minimum array length.
func MinItems(n int) SchemaOption {
	return func(s *Schema) {
		s.minItems = &n
	}
}

// MaxItems sets the maximum array length.
func MaxItems(n int) SchemaOption {
	return func(s *Schema) {
		s.maxItems = &n
	}
}

func newSchema(kind Kind, opts []SchemaOption) *Schema {
	s := &Schema{kind: kind}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Integer defines an integer schema.
func Integer(opts ...SchemaOption) *Schema { return newSchema(KindInteger, opts) }

// Number defines a floating point schema.
func Number(opts ...SchemaOption) *Schema { return newSchema(KindNumber, opts) }

// String defines a string schema.
func String(opts ...SchemaOption) *Schema { return newSchema(KindString, opts) }

// Boolean defines a boolean schema.
func Boolean(opts ...SchemaOption) *Schema { return newSchema(KindBoolean, opts) }

// Object defines an object schema with the given properties, in order.
func Object(fields ...FieldDef) *Schema {
	return &Schema{kind: KindObject, fields: slices.Clone(fields)}
}

// Array defines an array schema whose elements match items.
func Array(items *Schema, opts ...SchemaOption) *Schema {
	s := newSchema(KindArray, opts)
	s.items = items
	return s
}

// With returns a copy of s with opts applied. s itself is unchanged.
func (s *Schema) With(opts ...SchemaOption) *Schema {
	cp := *s
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Kind returns the schema kind.
func (s *Schema) Kind() Kind { return s.kind }

// Name returns the component name, or "" for inline schemas.
func (s *Schema) Name() string { return s.name }

// Description returns the schema description.
func (s *Schema) Description() string { return s.description }

// ExampleValue returns the documented example, if any.
func (s *Schema) ExampleValue() (any, bool) { return s.example, s.hasExample }

// DefaultValue returns the declared default, if any.
func (s *Schema) DefaultValue() (any, bool) { return s.def, s.hasDefault }

// Fields returns the object properties in declaration order.
func (s *Schema) Fields() []FieldDef { return slices.Clone(s.fields) }

// Items returns the element schema of an array schema.
func (s *Schema) Items() *Schema { return s.items }

// field looks up an object property by name.
func (s *Schema) field(name string) (FieldDef, bool) {
	for _, f := range s.fields {
		if f.name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// isScalar reports whether the schema describes a single primitive value.
func (s *Schema) isScalar() bool {
	switch s.kind {
	case KindInteger, KindNumber, KindString, KindBoolean:
		return true
	default:
		return false
	}
}

// walk calls fn for s and every schema nested inside it, depth first.
func (s *Schema) walk(fn func(*Schema)) {
	if s == nil {
		return
	}
	fn(s)
	for _, f := range s.fields {
		f.schema.walk(fn)
	}
	s.items.walk(fn)
}
