package api

import (
	"fmt"
	"maps"
	"net/http"
	"regexp"
	"slices"
	"strings"
)

const contentTypeJSON = "application/json"

// Request declares the inputs a route accepts. Path and Query must be object
// schemas; Body is optional.
type Request struct {
	Path  *Schema
	Query *Schema
	Body  *Body
}

// Body declares a request body.
type Body struct {
	Schema      *Schema
	ContentType string // default: application/json
	Optional    bool
}

// JSONBody declares a required JSON request body.
func JSONBody(s *Schema) *Body {
	return &Body{Schema: s, ContentType: contentTypeJSON}
}

// Response declares one possible response of a route.
type Response struct {
	Description string
	Schema      *Schema // nil for responses without content
	ContentType string  // default: application/json
}

// JSON declares a JSON response.
func JSON(s *Schema, desc string) Response {
	return Response{Description: desc, Schema: s, ContentType: contentTypeJSON}
}

// NoContent declares a response without a body.
func NoContent(desc string) Response {
	return Response{Description: desc}
}

// Responses maps HTTP status codes to declared responses.
type Responses map[int]Response

// RouteDescriptor is the immutable description of one endpoint: method,
// path template, request shape and response shapes.
type RouteDescriptor struct {
	method    string
	template  pathTemplate
	request   Request
	responses Responses

	summary     string
	desc        string
	tags        []string
	deprecated  bool
	operationID string
	errors      []int
	extensions  map[string]any
	bodyLimit   int64
}

// RouteOption configures a route descriptor.
type RouteOption func(*RouteDescriptor)

// WithSummary sets the OpenAPI summary for the route.
func WithSummary(s string) RouteOption {
	return func(d *RouteDescriptor) {
		d.summary = s
	}
}

// WithDescription sets the OpenAPI description for the route.
func WithDescription(desc string) RouteOption {
	return func(d *RouteDescriptor) {
		d.desc = desc
	}
}

// WithTags adds OpenAPI tags to the route.
func WithTags(tags ...string) RouteOption {
	return func(d *RouteDescriptor) {
		d.tags = append(d.tags, tags...)
	}
}

// WithDeprecated marks the route as deprecated in the OpenAPI spec.
func WithDeprecated() RouteOption {
	return func(d *RouteDescriptor) {
		d.deprecated = true
	}
}

// WithOperationID sets a custom OpenAPI operationId.
func WithOperationID(id string) RouteOption {
	return func(d *RouteDescriptor) {
		d.operationID = id
	}
}

// WithErrors documents additional error statuses answered with a
// ProblemDetail body.
func WithErrors(codes ...int) RouteOption {
	return func(d *RouteDescriptor) {
		d.errors = append(d.errors, codes...)
	}
}

// WithExtension adds an OpenAPI extension to the operation.
// The key must start with "x-".
func WithExtension(key string, value any) RouteOption {
	return func(d *RouteDescriptor) {
		if d.extensions == nil {
			d.extensions = make(map[string]any)
		}
		d.extensions[key] = value
	}
}

// WithBodyLimit sets the maximum request body size in bytes for the route.
func WithBodyLimit(maxBytes int64) RouteOption {
	return func(d *RouteDescriptor) {
		d.bodyLimit = maxBytes
	}
}

var knownMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// NewRoute builds a RouteDescriptor. It returns a *ConfigurationError if
// the path parameters and the Path schema disagree, or if any schema,
// example, default or response declaration is malformed.
func NewRoute(method, pattern string, req Request, resps Responses, opts ...RouteOption) (*RouteDescriptor, error) {
	method = strings.ToUpper(method)
	if !slices.Contains(knownMethods, method) {
		return nil, configErrorf(method, pattern, "unsupported method")
	}

	tmpl, err := parseTemplate(pattern)
	if err != nil {
		return nil, configErrorf(method, pattern, "%v", err)
	}

	if req.Body != nil {
		b := *req.Body
		if b.Schema == nil {
			return nil, configErrorf(method, pattern, "request body has no schema")
		}
		if b.ContentType == "" {
			b.ContentType = contentTypeJSON
		}
		req.Body = &b
	}

	d := &RouteDescriptor{
		method:    method,
		template:  tmpl,
		request:   req,
		responses: make(Responses, len(resps)),
	}
	for status, r := range resps {
		if r.Schema != nil && r.ContentType == "" {
			r.ContentType = contentTypeJSON
		}
		d.responses[status] = r
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.check(); err != nil {
		return nil, err
	}
	return d, nil
}

// MustRoute is like NewRoute but panics on error. Use it for package-level
// route declarations.
func MustRoute(method, pattern string, req Request, resps Responses, opts ...RouteOption) *RouteDescriptor {
	d, err := NewRoute(method, pattern, req, resps, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *RouteDescriptor) check() error {
	fail := func(format string, args ...any) error {
		return configErrorf(d.method, d.template.raw, format, args...)
	}

	for _, s := range d.schemas() {
		if err := checkSchemaValues(s); err != nil {
			return fail("%v", err)
		}
	}

	path := d.request.Path
	switch {
	case path == nil && len(d.template.params) > 0:
		return fail("path parameters %v have no schema", d.template.params)
	case path != nil:
		if path.kind != KindObject {
			return fail("path schema must be an object")
		}
		for _, name := range d.template.params {
			if _, ok := path.field(name); !ok {
				return fail("path parameter %q is not declared in the path schema", name)
			}
		}
		for _, f := range path.fields {
			if !slices.Contains(d.template.params, f.name) {
				return fail("path schema field %q does not appear in the template", f.name)
			}
			if !f.required {
				return fail("path parameter %q must be required", f.name)
			}
			if !f.schema.isScalar() {
				return fail("path parameter %q must be a scalar", f.name)
			}
		}
	}

	if q := d.request.Query; q != nil {
		if q.kind != KindObject {
			return fail("query schema must be an object")
		}
		for _, f := range q.fields {
			s := f.schema
			if s.kind == KindArray {
				s = s.items
			}
			if !s.isScalar() {
				return fail("query parameter %q must be a scalar or an array of scalars", f.name)
			}
		}
	}

	if len(d.responses) == 0 {
		return fail("no responses declared")
	}
	for status := range d.responses {
		if status < 100 || status > 599 {
			return fail("invalid response status %d", status)
		}
	}

	for _, status := range d.errors {
		if status < 400 || status > 599 {
			return fail("documented error status %d is not a 4xx or 5xx code", status)
		}
	}

	for key := range d.extensions {
		if !strings.HasPrefix(key, "x-") {
			return fail("extension %q must start with x-", key)
		}
	}

	return nil
}

var componentName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// checkSchemaValues verifies that every schema nested in root is complete
// and that its examples and defaults satisfy it.
func checkSchemaValues(root *Schema) error {
	var err error
	root.walk(func(s *Schema) {
		if err != nil {
			return
		}
		if s.name != "" && !componentName.MatchString(s.name) {
			err = fmt.Errorf("schema name %q may only contain letters, digits, '.', '-' and '_'", s.name)
			return
		}
		if s.kind == KindArray && s.items == nil {
			err = fmt.Errorf("%s has no item schema", schemaLabel(s))
			return
		}
		for _, f := range s.fields {
			if f.schema == nil {
				err = fmt.Errorf("property %q of %s has no schema", f.name, schemaLabel(s))
				return
			}
		}
		if s.hasExample {
			if _, verr := s.Validate(s.example); verr != nil {
				err = fmt.Errorf("example of %s does not match its schema: %w", schemaLabel(s), verr)
				return
			}
		}
		if s.hasDefault {
			if _, verr := s.Validate(s.def); verr != nil {
				err = fmt.Errorf("default of %s does not match its schema: %w", schemaLabel(s), verr)
			}
		}
	})
	return err
}

func schemaLabel(s *Schema) string {
	if s.name != "" {
		return s.name
	}
	return string(s.kind) + " schema"
}

// schemas returns every top-level schema referenced by the descriptor.
func (d *RouteDescriptor) schemas() []*Schema {
	var out []*Schema
	if d.request.Path != nil {
		out = append(out, d.request.Path)
	}
	if d.request.Query != nil {
		out = append(out, d.request.Query)
	}
	if d.request.Body != nil {
		out = append(out, d.request.Body.Schema)
	}
	for _, status := range d.statuses() {
		if s := d.responses[status].Schema; s != nil {
			out = append(out, s)
		}
	}
	return out
}

// statuses returns the declared response statuses in ascending order.
func (d *RouteDescriptor) statuses() []int {
	return slices.Sorted(maps.Keys(d.responses))
}

// defaultStatus is the status used when a handler does not pick one: the
// lowest declared 2xx, or the lowest declared status.
func (d *RouteDescriptor) defaultStatus() int {
	statuses := d.statuses()
	for _, s := range statuses {
		if s >= 200 && s < 300 {
			return s
		}
	}
	return statuses[0]
}

// Method returns the HTTP method.
func (d *RouteDescriptor) Method() string { return d.method }

// Pattern returns the path template.
func (d *RouteDescriptor) Pattern() string { return d.template.raw }

// Params returns the path parameter names in template order.
func (d *RouteDescriptor) Params() []string { return slices.Clone(d.template.params) }

// Request returns the declared request shape.
func (d *RouteDescriptor) Request() Request {
	req := d.request
	if req.Body != nil {
		b := *req.Body
		req.Body = &b
	}
	return req
}

// Responses returns a copy of the declared responses.
func (d *RouteDescriptor) Responses() Responses { return maps.Clone(d.responses) }

// Summary returns the OpenAPI summary.
func (d *RouteDescriptor) Summary() string { return d.summary }

// Description returns the OpenAPI description.
func (d *RouteDescriptor) Description() string { return d.desc }
