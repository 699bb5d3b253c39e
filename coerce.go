package api

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Validate coerces raw to the schema's kind and checks every constraint.
// Numeric and boolean strings are accepted for scalar kinds, so path and
// query values validate the same way as decoded bodies.
//
// All violations are collected; on failure the error is a ValidationErrors
// listing each one. On success the result holds only int64, float64,
// string, bool, map[string]any and []any values.
func (s *Schema) Validate(raw any) (any, error) {
	var errs ValidationErrors
	v := s.validate("", raw, &errs)
	if len(errs) > 0 {
		return nil, errs
	}
	return v, nil
}

func (s *Schema) validate(path string, raw any, errs *ValidationErrors) any {
	if raw == nil {
		errs.add(path, "required", "is required", nil)
		return nil
	}

	switch s.kind {
	case KindInteger:
		n, ok := toInt64(raw)
		if !ok {
			errs.add(path, "type", "must be an integer", raw)
			return nil
		}
		s.checkRange(path, float64(n), n, errs)
		return n
	case KindNumber:
		f, ok := toFloat64(raw)
		if !ok {
			errs.add(path, "type", "must be a number", raw)
			return nil
		}
		s.checkRange(path, f, f, errs)
		return f
	case KindBoolean:
		b, ok := toBool(raw)
		if !ok {
			errs.add(path, "type", "must be a boolean", raw)
			return nil
		}
		return b
	case KindString:
		str, ok := raw.(string)
		if !ok {
			errs.add(path, "type", "must be a string", raw)
			return nil
		}
		s.checkString(path, str, errs)
		return str
	case KindObject:
		return s.validateObject(path, raw, errs)
	case KindArray:
		return s.validateArray(path, raw, errs)
	default:
		errs.add(path, "type", fmt.Sprintf("unknown schema kind %q", s.kind), raw)
		return nil
	}
}

func (s *Schema) checkRange(path string, f float64, actual any, errs *ValidationErrors) {
	if s.minimum != nil {
		if s.exclusiveMin && f <= *s.minimum {
			errs.add(path, "exclusiveMinimum", "must be greater than "+formatBound(*s.minimum), actual)
		} else if !s.exclusiveMin && f < *s.minimum {
			errs.add(path, "minimum", "must be at least "+formatBound(*s.minimum), actual)
		}
	}
	if s.maximum != nil && f > *s.maximum {
		errs.add(path, "maximum", "must be at most "+formatBound(*s.maximum), actual)
	}
}

func (s *Schema) checkString(path, val string, errs *ValidationErrors) {
	if s.minLength != nil && len(val) < *s.minLength {
		errs.add(path, "minLength", fmt.Sprintf("must be at least %d characters", *s.minLength), val)
	}
	if s.maxLength != nil && len(val) > *s.maxLength {
		errs.add(path, "maxLength", fmt.Sprintf("must be at most %d characters", *s.maxLength), val)
	}
	if s.pattern != nil && !s.pattern.MatchString(val) {
		errs.add(path, "pattern", "must match pattern "+s.pattern.String(), val)
	}
	if len(s.enum) > 0 && !slices.Contains(s.enum, val) {
		errs.add(path, "enum", fmt.Sprintf("must be one of [%s]", strings.Join(s.enum, ",")), val)
	}
}

func (s *Schema) validateObject(path string, raw any, errs *ValidationErrors) any {
	obj, ok := asObject(raw)
	if !ok {
		errs.add(path, "type", "must be an object", raw)
		return nil
	}

	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		fieldPath := joinPath(path, f.name)
		val, present := obj[f.name]
		if !present || val == nil {
			switch {
			case f.required:
				errs.add(fieldPath, "required", "is required", nil)
			case f.schema.hasDefault:
				// Defaults are checked when the route is built, so this
				// only normalizes their Go type.
				var discard ValidationErrors
				out[f.name] = f.schema.validate(fieldPath, f.schema.def, &discard)
			}
			continue
		}
		if v := f.schema.validate(fieldPath, val, errs); v != nil {
			out[f.name] = v
		}
	}
	return out
}

func (s *Schema) validateArray(path string, raw any, errs *ValidationErrors) any {
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		errs.add(path, "type", "must be an array", raw)
		return nil
	}

	n := rv.Len()
	if s.minItems != nil && n < *s.minItems {
		errs.add(path, "minItems", fmt.Sprintf("must have at least %d items", *s.minItems), n)
	}
	if s.maxItems != nil && n > *s.maxItems {
		errs.add(path, "maxItems", fmt.Sprintf("must have at most %d items", *s.maxItems), n)
	}

	out := make([]any, 0, n)
	for i := range n {
		v := s.items.validate(fmt.Sprintf("%s[%d]", path, i), rv.Index(i).Interface(), errs)
		out = append(out, v)
	}
	return out
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// asObject normalizes decoded maps into map[string]any.
func asObject(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func toInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case bool:
		return 0, false
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return integral(f)
	case float64:
		return integral(v)
	case float32:
		return integral(float64(v))
	case uint:
		return int64(v), uint64(v) <= math.MaxInt64
	case uint64:
		return int64(v), v <= math.MaxInt64
	case uintptr:
		return int64(v), uint64(v) <= math.MaxInt64
	default:
		n, err := cast.ToInt64E(v)
		return n, err == nil
	}
}

func integral(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat64(raw any) (float64, bool) {
	switch v := raw.(type) {
	case bool:
		return 0, false
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		f, err := cast.ToFloat64E(v)
		return f, err == nil
	}
}

func toBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool, string:
		b, err := cast.ToBoolE(v)
		return b, err == nil
	default:
		return false, false
	}
}
