// ABOUTME: JSON Schema generation from argument structs and validation of tool arguments
// ABOUTME: Schema violations surface as fieldops.ValidationError before any network call

package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	invopopSchema "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/2389/fieldtask-mcp/internal/fieldops"
)

// GenerateSchema reflects a JSON Schema from an argument struct. Fields whose
// json tag carries omitempty are optional; the rest are required.
func GenerateSchema(args any) (json.RawMessage, error) {
	reflector := invopopSchema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(args)
	// The draft URL is only needed by validators; hosts receive a plain object schema.
	schema.Version = ""
	schema.ID = ""

	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	return b, nil
}

func compileSchema(name string, schema json.RawMessage) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := "mem://tools/" + name + ".json"
	if err := c.AddResource(url, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("adding schema for %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema for %s: %w", name, err)
	}
	return compiled, nil
}

// normalizeArgs treats absent or null arguments as an empty object.
func normalizeArgs(args json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return json.RawMessage("{}")
	}
	return trimmed
}

func validateArgs(schema *jsonschema.Schema, args json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(args, &doc); err != nil {
		return &fieldops.ValidationError{Field: "arguments", Reason: "not valid JSON"}
	}

	err := schema.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &fieldops.ValidationError{Field: "arguments", Reason: err.Error()}
	}

	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if field == "" {
		field = "arguments"
	}
	return &fieldops.ValidationError{Field: field, Reason: leaf.Message}
}
