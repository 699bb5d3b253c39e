package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const componentsResource = "components.json"

// Verify checks doc with an independent OpenAPI 3.0 implementation and
// confirms that every component example satisfies its own schema. It is
// meant for tests and build steps, not the request path.
func Verify(ctx context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("api: marshal document: %w", err)
	}

	loader := openapi3.NewLoader()
	t, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("api: load document: %w", err)
	}
	if err := t.Validate(ctx); err != nil {
		return fmt.Errorf("api: invalid document: %w", err)
	}

	return verifyExamples(doc)
}

// verifyExamples compiles each component schema as a draft-04 JSON Schema
// (the dialect OpenAPI 3.0 extends) and validates its example. Components
// are moved under "definitions" so references resolve the draft-04 way.
func verifyExamples(doc *Document) error {
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil
	}

	raw, err := json.Marshal(map[string]any{"definitions": doc.Components.Schemas})
	if err != nil {
		return fmt.Errorf("api: marshal components: %w", err)
	}
	raw = bytes.ReplaceAll(raw, []byte(`"`+componentPrefix), []byte(`"#/definitions/`))
	res, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("api: read components: %w", err)
	}

	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft4)
	if err := c.AddResource(componentsResource, res); err != nil {
		return fmt.Errorf("api: add components: %w", err)
	}

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(doc.Components.Schemas)) {
		js := doc.Components.Schemas[name]
		if js.Example == nil {
			continue
		}
		sch, err := c.Compile(componentsResource + "#/definitions/" + name)
		if err != nil {
			errs = append(errs, fmt.Errorf("api: compile schema %s: %w", name, err))
			continue
		}
		example, err := exampleValue(js.Example)
		if err != nil {
			errs = append(errs, fmt.Errorf("api: schema %s example: %w", name, err))
			continue
		}
		if err := sch.Validate(example); err != nil {
			errs = append(errs, fmt.Errorf("api: schema %s example: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// exampleValue converts an example to the form jsonschema validates.
func exampleValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}
