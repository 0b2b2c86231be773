package agent

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiledSchema wraps a compiled JSON Schema used to validate tool inputs
// and outputs.
type compiledSchema struct {
	schema *jsonschema.Schema
}

// compile builds a validator from a schema document expressed as a Go map.
func compile(name string, doc map[string]any) (*compiledSchema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := "sqlsage://" + name + ".json"
	if err := c.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &compiledSchema{schema: schema}, nil
}

// validate checks a value against the schema. The value is normalized
// through a JSON round-trip so native Go types (int, struct) validate the
// same way their wire representation would.
func (s *compiledSchema) validate(v any) error {
	normalized, err := normalize(v)
	if err != nil {
		return err
	}
	return s.schema.Validate(normalized)
}

func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	out, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse value: %w", err)
	}
	return out, nil
}
