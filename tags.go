package api

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// paramTags are the struct tags used for binding request parameters.
var paramTags = []string{"path", "query"}

// bodyField is the request struct field that receives the validated body.
const bodyField = "Body"

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

// isProjected reports whether t needs no field projection: Void and
// ValidatedRequest are handed to the handler as they are.
func isProjected(t reflect.Type) bool {
	return t == reflect.TypeFor[Void]() || t == reflect.TypeFor[ValidatedRequest]()
}

// project builds a Req from the validated values. The input map is keyed
// by the name mapstructure will look for on each field.
func project[Req any](vr *ValidatedRequest) (*Req, error) {
	req := new(Req)
	switch p := any(req).(type) {
	case *Void:
		return req, nil
	case *ValidatedRequest:
		*p = *vr
		return req, nil
	}

	t := reflect.TypeFor[Req]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("api: request type %s is not a struct", t)
	}

	input := make(map[string]any)
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		key := jsonFieldName(f)
		if name := f.Tag.Get("path"); name != "" {
			if v, ok := vr.Path[name]; ok {
				input[key] = v
			}
			continue
		}
		if name := f.Tag.Get("query"); name != "" {
			if v, ok := vr.Query[name]; ok {
				input[key] = v
			}
			continue
		}
		if f.Name == bodyField && vr.Body != nil {
			input[key] = vr.Body
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  req,
		TagName: "json",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(input); err != nil {
		return nil, fmt.Errorf("api: project request into %s: %w", t, err)
	}
	return req, nil
}

// checkProjection verifies at registration time that every tagged field of
// reqType names a parameter the descriptor declares, with a compatible Go
// type, and that a Body field has a body to receive.
func checkProjection(reqType reflect.Type, d *RouteDescriptor) error {
	if reqType == nil || isProjected(reqType) {
		return nil
	}
	fail := func(format string, args ...any) error {
		return configErrorf(d.method, d.template.raw, format, args...)
	}
	if reqType.Kind() != reflect.Struct {
		return fail("request type %s must be a struct", reqType)
	}

	for i := range reqType.NumField() {
		f := reqType.Field(i)
		if !f.IsExported() {
			continue
		}

		for _, tag := range paramTags {
			name := f.Tag.Get(tag)
			if name == "" {
				continue
			}
			obj := d.request.Path
			if tag == "query" {
				obj = d.request.Query
			}
			if obj == nil {
				return fail("field %s binds %s parameter %q but the route declares no %s schema", f.Name, tag, name, tag)
			}
			fd, ok := obj.field(name)
			if !ok {
				return fail("field %s binds undeclared %s parameter %q", f.Name, tag, name)
			}
			if !kindAssignable(fd.schema, f.Type) {
				return fail("field %s (%s) cannot hold %s parameter %q of kind %s", f.Name, f.Type, tag, name, fd.schema.kind)
			}
		}

		if f.Name == bodyField && f.Tag.Get("path") == "" && f.Tag.Get("query") == "" {
			if d.request.Body == nil {
				return fail("request type %s has a Body field but the route declares no body", reqType)
			}
			if !kindAssignable(d.request.Body.Schema, f.Type) {
				return fail("Body field (%s) cannot hold a %s body", f.Type, d.request.Body.Schema.kind)
			}
		}
	}
	return nil
}

// kindAssignable reports whether values validated by s can be decoded into t.
func kindAssignable(s *Schema, t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Interface {
		return true
	}

	//exhaustive:ignore
	switch s.kind {
	case KindInteger:
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return true
		}
	case KindNumber:
		return t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
	case KindString:
		return t.Kind() == reflect.String
	case KindBoolean:
		return t.Kind() == reflect.Bool
	case KindArray:
		return (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && kindAssignable(s.items, t.Elem())
	case KindObject:
		return t.Kind() == reflect.Struct || (t.Kind() == reflect.Map && t.Key().Kind() == reflect.String)
	}
	return false
}
