// ABOUTME: Ordered registry of tools with schema-checked dispatch by name
// ABOUTME: Unknown names yield UnknownToolError; arguments are validated before the tool runs

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Tool is one operation exposed to the host.
type Tool interface {
	// Name is the identifier the host calls the tool by.
	Name() string
	// Description is shown to the host alongside the schema.
	Description() string
	// InputSchema is the JSON Schema for the tool's arguments.
	InputSchema() (json.RawMessage, error)
	// Call runs the tool with arguments that already passed schema validation.
	Call(ctx context.Context, args json.RawMessage) (string, error)
}

// Definition describes a registered tool for listing.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// UnknownToolError reports a dispatch to a name that was never registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %q", e.Name)
}

type entry struct {
	tool     Tool
	def      Definition
	compiled *jsonschema.Schema
}

// Registry holds tools in registration order.
type Registry struct {
	order  []string
	tools  map[string]*entry
	logger *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{tools: make(map[string]*entry), logger: logger}
}

// Register adds a tool. It fails for a nil tool, a duplicate name, or a
// schema that does not compile.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return errors.New("tool must not be nil")
	}
	name := tool.Name()
	if name == "" {
		return errors.New("tool name must not be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q is already registered", name)
	}

	schema, err := tool.InputSchema()
	if err != nil {
		return fmt.Errorf("schema for %s: %w", name, err)
	}
	compiled, err := compileSchema(name, schema)
	if err != nil {
		return err
	}

	r.tools[name] = &entry{
		tool:     tool,
		def:      Definition{Name: name, Description: tool.Description(), InputSchema: schema},
		compiled: compiled,
	}
	r.order = append(r.order, name)
	return nil
}

// List returns every tool definition in registration order. It makes no
// network calls.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].def)
	}
	return out
}

// Call validates args against the named tool's schema and runs it. Errors
// from the tool are returned unchanged.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	e, ok := r.tools[name]
	if !ok {
		return "", &UnknownToolError{Name: name}
	}

	args = normalizeArgs(args)
	if err := validateArgs(e.compiled, args); err != nil {
		return "", err
	}

	callID := uuid.New().String()
	start := time.Now()
	r.logger.Debug("tool call started", "tool_name", name, "call_id", callID)

	text, err := e.tool.Call(ctx, args)
	if err != nil {
		r.logger.Warn("tool call failed",
			"tool_name", name,
			"call_id", callID,
			"duration", time.Since(start),
			"error", err,
		)
		return "", err
	}

	r.logger.Debug("tool call complete",
		"tool_name", name,
		"call_id", callID,
		"duration", time.Since(start),
		"bytes", len(text),
	)
	return text, nil
}
