package api

import (
	"fmt"
	"strings"
)

// segment is one "/"-separated piece of a path template. Exactly one of
// literal and param is set, except for the root template which has none.
type segment struct {
	literal string
	param   string
}

func (s segment) isParam() bool { return s.param != "" }

// pathTemplate is a parsed route path such as "/organizations/{id}/users".
type pathTemplate struct {
	raw      string
	segments []segment
	params   []string
}

// parseTemplate parses a path template. Parameters must span a whole
// segment and be unique within the template.
func parseTemplate(pattern string) (pathTemplate, error) {
	if !strings.HasPrefix(pattern, "/") {
		return pathTemplate{}, fmt.Errorf("path must start with '/'")
	}

	t := pathTemplate{raw: pattern}
	if pattern == "/" {
		return t, nil
	}

	seen := make(map[string]bool)
	for part := range strings.SplitSeq(pattern[1:], "/") {
		if part == "" {
			return pathTemplate{}, fmt.Errorf("empty path segment")
		}

		open := strings.Contains(part, "{")
		closing := strings.Contains(part, "}")
		if !open && !closing {
			t.segments = append(t.segments, segment{literal: part})
			continue
		}

		if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") || strings.Count(part, "{") != 1 || strings.Count(part, "}") != 1 {
			return pathTemplate{}, fmt.Errorf("parameter segment %q must have the form {name}", part)
		}
		name := part[1 : len(part)-1]
		if name == "" {
			return pathTemplate{}, fmt.Errorf("empty parameter name")
		}
		if seen[name] {
			return pathTemplate{}, fmt.Errorf("duplicate parameter %q", name)
		}
		seen[name] = true
		t.segments = append(t.segments, segment{param: name})
		t.params = append(t.params, name)
	}

	return t, nil
}

// shape returns the template with parameter names erased. Two templates
// with the same shape cannot be told apart by a request path.
func (t pathTemplate) shape() string {
	if len(t.segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range t.segments {
		b.WriteByte('/')
		if s.isParam() {
			b.WriteString("{}")
			continue
		}
		b.WriteString(s.literal)
	}
	return b.String()
}

// match binds parts against the template. Literal segments must be equal;
// parameter segments accept any non-empty value.
func (t pathTemplate) match(parts []string) (map[string]string, bool) {
	if len(parts) != len(t.segments) {
		return nil, false
	}
	var params map[string]string
	for i, s := range t.segments {
		if !s.isParam() {
			if parts[i] != s.literal {
				return nil, false
			}
			continue
		}
		if parts[i] == "" {
			return nil, false
		}
		if params == nil {
			params = make(map[string]string, len(t.params))
		}
		params[s.param] = parts[i]
	}
	return params, true
}

// moreSpecific reports whether t should win over other when both match the
// same path: at the first position where they differ, a literal beats a
// parameter.
func (t pathTemplate) moreSpecific(other pathTemplate) bool {
	for i := range min(len(t.segments), len(other.segments)) {
		a, b := t.segments[i].isParam(), other.segments[i].isParam()
		if a != b {
			return !a
		}
	}
	return false
}

// splitPath splits a request path into segments. "/" yields none.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
