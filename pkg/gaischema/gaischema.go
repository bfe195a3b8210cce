// Package gaischema compiles and validates the JSON Schema contracts that
// cross a process boundary in this repo: HITL request/response files today,
// any future on-disk JSON handshake tomorrow. Centralizing compilation here
// means every caller validates a raw payload before ever unmarshalling it
// into a typed struct, so a malformed file is a parse-format warning
// (spec.md §7) rather than a confusing field-level decode error.
package gaischema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a compiled JSON Schema, ready to validate decoded JSON values.
type Schema = jsonschema.Schema

// Compile parses schemaJSON and compiles it under the resource name name
// (used only for error messages and internal $ref resolution).
func Compile(name, schemaJSON string) (*Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(schemaJSON), &doc); err != nil {
		return nil, fmt.Errorf("gaischema: parse %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("gaischema: add resource %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("gaischema: compile %s: %w", name, err)
	}
	return schema, nil
}

// CompileOnce lazily compiles schemaJSON exactly once and caches the result,
// for package-level schemas that are reused across many Validate calls.
func CompileOnce(name, schemaJSON string) func() (*Schema, error) {
	var (
		once   sync.Once
		schema *Schema
		err    error
	)
	return func() (*Schema, error) {
		once.Do(func() {
			schema, err = Compile(name, schemaJSON)
		})
		return schema, err
	}
}

// Validate unmarshals raw as JSON and validates it against schema.
func Validate(schema *Schema, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("gaischema: invalid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("gaischema: schema validation failed: %w", err)
	}
	return nil
}
