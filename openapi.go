package api

import (
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// OpenAPIVersion is the version of the generated documents.
const OpenAPIVersion = "3.0.3"

const (
	componentPrefix     = "#/components/schemas/"
	problemSchemaName   = "ProblemDetail"
	violationSchemaName = "ValidationError"
)

// Document is an OpenAPI 3.0 document.
type Document struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Servers    []Server            `json:"servers,omitempty"`
	Tags       []Tag               `json:"tags,omitempty"`
	Paths      map[string]PathItem `json:"paths"`
	Components *Components         `json:"components,omitempty"`
}

// Info holds API metadata.
type Info struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Server is an entry of the OpenAPI servers array.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Tag describes an operation tag.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Components holds the shared schema definitions.
type Components struct {
	Schemas map[string]*JSONSchema `json:"schemas,omitempty"`
}

// PathItem maps lower-case HTTP methods to operations.
type PathItem map[string]*Operation

// Operation describes a single API operation on a path.
type Operation struct {
	Summary     string                 `json:"summary,omitempty"`
	Description string                 `json:"description,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	OperationID string                 `json:"operationId,omitempty"`
	Parameters  []Parameter            `json:"parameters,omitempty"`
	RequestBody *RequestBody           `json:"requestBody,omitempty"`
	Responses   map[string]ResponseObj `json:"responses"`
	Deprecated  bool                   `json:"deprecated,omitempty"`

	Extensions map[string]any `json:"-"`
}

// MarshalJSON inlines the x- extensions next to the standard fields.
func (o Operation) MarshalJSON() ([]byte, error) {
	type plain Operation
	data, err := json.Marshal(plain(o))
	if err != nil || len(o.Extensions) == 0 {
		return data, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	maps.Copy(m, o.Extensions)
	return json.Marshal(m)
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string      `json:"name"`
	In          string      `json:"in"`
	Description string      `json:"description,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Schema      *JSONSchema `json:"schema"`
	Example     any         `json:"example,omitempty"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Required bool                `json:"required"`
	Content  map[string]MediaObj `json:"content"`
}

// MediaObj is a media type object with an optional schema.
type MediaObj struct {
	Schema  *JSONSchema `json:"schema,omitempty"`
	Example any         `json:"example,omitempty"`
}

// ResponseObj describes a single response.
type ResponseObj struct {
	Description string              `json:"description"`
	Content     map[string]MediaObj `json:"content,omitempty"`
}

// JSONSchema is the OpenAPI 3.0 schema object subset used by Schema.
type JSONSchema struct {
	Ref              string                 `json:"$ref,omitempty"`
	Type             string                 `json:"type,omitempty"`
	Format           string                 `json:"format,omitempty"`
	Title            string                 `json:"title,omitempty"`
	Description      string                 `json:"description,omitempty"`
	Properties       map[string]*JSONSchema `json:"properties,omitempty"`
	Required         []string               `json:"required,omitempty"`
	Items            *JSONSchema            `json:"items,omitempty"`
	Enum             []string               `json:"enum,omitempty"`
	Minimum          *float64               `json:"minimum,omitempty"`
	ExclusiveMinimum bool                   `json:"exclusiveMinimum,omitempty"`
	Maximum          *float64               `json:"maximum,omitempty"`
	MinLength        *int                   `json:"minLength,omitempty"`
	MaxLength        *int                   `json:"maxLength,omitempty"`
	Pattern          string                 `json:"pattern,omitempty"`
	MinItems         *int                   `json:"minItems,omitempty"`
	MaxItems         *int                   `json:"maxItems,omitempty"`
	Default          any                    `json:"default,omitempty"`
	Example          any                    `json:"example,omitempty"`
}

// DocOption configures document generation.
type DocOption func(*docConfig)

type docConfig struct {
	servers  []Server
	tagDescs map[string]string
}

// DocServers sets the document's servers array.
func DocServers(servers ...Server) DocOption {
	return func(c *docConfig) {
		c.servers = servers
	}
}

// DocTagDescriptions sets descriptions for operation tags.
func DocTagDescriptions(descs map[string]string) DocOption {
	return func(c *docConfig) {
		c.tagDescs = descs
	}
}

// Generate derives the OpenAPI document for every route in reg. It never
// invokes a handler and is deterministic: the same registry always yields
// an identical document. Named schemas are emitted once under
// components.schemas and referenced from every use. The only error is the
// registry's own configuration error.
func Generate(reg *Registry, info Info, opts ...DocOption) (*Document, error) {
	if err := reg.Err(); err != nil {
		return nil, err
	}

	cfg := &docConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if info.Title == "" {
		info.Title = "API"
	}
	if info.Version == "" {
		info.Version = "0.0.0"
	}

	b := &docBuilder{components: make(map[string]*JSONSchema)}
	doc := &Document{
		OpenAPI: OpenAPIVersion,
		Info:    info,
		Servers: cfg.servers,
		Paths:   make(map[string]PathItem),
	}

	tagSet := make(map[string]bool)
	for _, rr := range reg.Routes() {
		d := rr.descriptor
		path := d.template.raw
		if doc.Paths[path] == nil {
			doc.Paths[path] = make(PathItem)
		}
		doc.Paths[path][strings.ToLower(d.method)] = b.operation(d)
		for _, t := range d.tags {
			tagSet[t] = true
		}
	}

	for _, name := range slices.Sorted(maps.Keys(tagSet)) {
		doc.Tags = append(doc.Tags, Tag{Name: name, Description: cfg.tagDescs[name]})
	}
	if len(b.components) > 0 {
		doc.Components = &Components{Schemas: b.components}
	}
	return doc, nil
}

// docBuilder accumulates component schemas while operations are built.
type docBuilder struct {
	components map[string]*JSONSchema
}

func (b *docBuilder) operation(d *RouteDescriptor) *Operation {
	op := &Operation{
		Summary:     d.summary,
		Description: d.desc,
		Tags:        d.tags,
		OperationID: d.operationID,
		Deprecated:  d.deprecated,
		Responses:   make(map[string]ResponseObj),
	}
	if op.OperationID == "" {
		op.OperationID = generateOperationID(d.method, d.template)
	}
	if len(d.extensions) > 0 {
		op.Extensions = maps.Clone(d.extensions)
	}

	// Path parameters follow template order; query parameters follow
	// declaration order.
	if s := d.request.Path; s != nil {
		for _, name := range d.template.params {
			f, _ := s.field(name)
			op.Parameters = append(op.Parameters, b.parameter(f, "path"))
		}
	}
	if s := d.request.Query; s != nil {
		for _, f := range s.fields {
			op.Parameters = append(op.Parameters, b.parameter(f, "query"))
		}
	}

	if body := d.request.Body; body != nil {
		op.RequestBody = &RequestBody{
			Required: !body.Optional,
			Content: map[string]MediaObj{
				body.ContentType: {Schema: b.ref(body.Schema)},
			},
		}
	}

	for _, status := range d.statuses() {
		resp := d.responses[status]
		obj := ResponseObj{Description: resp.Description}
		if obj.Description == "" {
			obj.Description = http.StatusText(status)
		}
		if resp.Schema != nil {
			obj.Content = map[string]MediaObj{
				resp.ContentType: {Schema: b.ref(resp.Schema)},
			}
		}
		op.Responses[strconv.Itoa(status)] = obj
	}

	errs := slices.Clone(d.errors)
	if d.request.Path != nil || d.request.Query != nil || d.request.Body != nil {
		errs = append(errs, http.StatusBadRequest)
	}
	for _, status := range errs {
		key := strconv.Itoa(status)
		if _, ok := op.Responses[key]; ok {
			continue
		}
		op.Responses[key] = ResponseObj{
			Description: http.StatusText(status),
			Content: map[string]MediaObj{
				ContentTypeProblem: {Schema: b.problemRef()},
			},
		}
	}

	return op
}

func (b *docBuilder) parameter(f FieldDef, in string) Parameter {
	p := Parameter{
		Name:        f.name,
		In:          in,
		Description: f.schema.description,
		Required:    f.required,
		Schema:      b.ref(f.schema),
	}
	if f.schema.hasExample {
		p.Example = f.schema.example
	}
	return p
}

// ref returns a $ref for named schemas, registering the component on first
// use, and the inline schema otherwise.
func (b *docBuilder) ref(s *Schema) *JSONSchema {
	if s.name == "" {
		return b.inline(s)
	}
	if _, ok := b.components[s.name]; !ok {
		// Reserve the name before descending so nested uses see it.
		b.components[s.name] = &JSONSchema{}
		b.components[s.name] = b.inline(s)
	}
	return &JSONSchema{Ref: componentPrefix + s.name}
}

func (b *docBuilder) inline(s *Schema) *JSONSchema {
	js := &JSONSchema{
		Type:             string(s.kind),
		Format:           s.format,
		Title:            s.title,
		Description:      s.description,
		Minimum:          s.minimum,
		ExclusiveMinimum: s.exclusiveMin,
		Maximum:          s.maximum,
		MinLength:        s.minLength,
		MaxLength:        s.maxLength,
		MinItems:         s.minItems,
		MaxItems:         s.maxItems,
		Enum:             s.enum,
	}
	if s.pattern != nil {
		js.Pattern = s.pattern.String()
	}
	if s.hasDefault {
		js.Default = s.def
	}
	if s.hasExample {
		js.Example = s.example
	}

	switch s.kind {
	case KindObject:
		js.Properties = make(map[string]*JSONSchema, len(s.fields))
		for _, f := range s.fields {
			js.Properties[f.name] = b.ref(f.schema)
			if f.required {
				js.Required = append(js.Required, f.name)
			}
		}
	case KindArray:
		js.Items = b.ref(s.items)
	}
	return js
}

// problemRef registers the ProblemDetail component used by error responses.
func (b *docBuilder) problemRef() *JSONSchema {
	return b.ref(problemSchema)
}

var problemSchema = Object(
	Optional("type", String(Example("about:blank"))),
	Optional("title", String(Example("Validation Failed"))),
	Field("status", Integer(Example(400))),
	Optional("detail", String()),
	Optional("instance", String()),
	Optional("errors", Array(Object(
		Field("field", String(Example("path.id"))),
		Optional("constraint", String(Example("exclusiveMinimum"))),
		Field("message", String(Example("must be greater than 0"))),
	).With(Named(violationSchemaName)))),
).With(Named(problemSchemaName), Describe("RFC 9457 problem details."))

// generateOperationID derives an operationId such as
// "getOrganizationsByIdUsers" from the method and template.
func generateOperationID(method string, t pathTemplate) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, s := range t.segments {
		if s.isParam() {
			b.WriteString("By")
			b.WriteString(capitalize(s.param))
			continue
		}
		for part := range strings.FieldsFuncSeq(s.literal, func(r rune) bool {
			return r == '-' || r == '_' || r == '.'
		}) {
			b.WriteString(capitalize(part))
		}
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
