// ABOUTME: MCP server speaking newline-delimited JSON-RPC 2.0 over stdio.
// ABOUTME: Dispatches tools/list and tools/call to the tool registry, one request at a time.

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/fieldtask-mcp/internal/auth"
	"github.com/2389/fieldtask-mcp/internal/fieldops"
	"github.com/2389/fieldtask-mcp/internal/rpc"
	"github.com/2389/fieldtask-mcp/internal/tools"
)

// Supported MCP protocol versions
var supportedProtocolVersions = map[string]bool{
	"2024-11-05": true,
	"2025-03-26": true,
	"2025-06-18": true,
	"2025-11-25": true,
}

// latestProtocolVersion is the version we advertise when the client asks for one we don't know
const latestProtocolVersion = "2025-11-25"

// MaxMessageSize is the largest single line accepted from the host (1MB).
const MaxMessageSize = 1 << 20

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (r *JSONRPCRequest) isNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// MCP-specific types

// MCPListToolsResult is the result for tools/list.
type MCPListToolsResult struct {
	Tools []tools.Definition `json:"tools"`
}

// MCPCallToolParams are the params for tools/call.
type MCPCallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// MCPCallToolResult is the result for tools/call.
type MCPCallToolResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

// MCPContent represents content in a tool result.
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

// ToolService lists and runs tools. *tools.Registry satisfies it.
type ToolService interface {
	List() []tools.Definition
	Call(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// Config holds configuration for the MCP server.
type Config struct {
	Tools   ToolService
	Logger  *slog.Logger
	Name    string
	Version string
}

// Server answers MCP requests from a single host over a duplex byte stream.
type Server struct {
	tools   ToolService
	logger  *slog.Logger
	name    string
	version string

	initialized bool

	writeMu sync.Mutex
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Tools == nil {
		return nil, errors.New("tool service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.Name
	if name == "" {
		name = "fieldtask-mcp"
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	return &Server{
		tools:   cfg.Tools,
		logger:  logger,
		name:    name,
		version: version,
	}, nil
}

type readResult struct {
	line    []byte
	tooLong bool
	err     error
}

// readLine returns the next newline-terminated line. A line longer than limit
// is consumed in full and reported as tooLong without being buffered.
func readLine(r *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	tooLong := false
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return nil, false, err
		}
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

// Run reads one JSON-RPC message per line from in and writes responses to out
// until in reaches EOF (returns nil) or ctx is cancelled (returns ctx.Err()).
// Reading happens on its own goroutine so a blocked read never delays shutdown.
// A line over MaxMessageSize is answered with an invalid request error.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := make(chan readResult)
	go func() {
		defer close(lines)
		reader := bufio.NewReaderSize(in, 64*1024)
		for {
			line, tooLong, err := readLine(reader, MaxMessageSize)
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case lines <- readResult{line: line, tooLong: tooLong, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	encoder := json.NewEncoder(out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-lines:
			if !ok {
				s.logger.Info("input closed")
				return nil
			}
			if r.err != nil {
				s.logger.Error("reading input failed", "error", r.err)
				return fmt.Errorf("reading input: %w", r.err)
			}
			if r.tooLong {
				s.logger.Warn("message exceeds size limit", "max_bytes", MaxMessageSize)
				if err := s.sendJSONRPCError(encoder, nil, JSONRPCInvalidRequest, "message too large", nil); err != nil {
					return err
				}
				continue
			}
			if err := s.handleLine(ctx, encoder, r.line); err != nil {
				return err
			}
		}
	}
}

// handleLine processes one message. Only failures to write are returned.
func (s *Server) handleLine(ctx context.Context, encoder *json.Encoder, line []byte) error {
	if len(strings.TrimSpace(string(line))) == 0 {
		return nil
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Warn("unparseable message", "error", err)
		return s.sendJSONRPCError(encoder, nil, JSONRPCParseError, "parse error", nil)
	}

	if req.JSONRPC != "2.0" {
		if req.isNotification() {
			return nil
		}
		return s.sendJSONRPCError(encoder, req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version", nil)
	}

	if req.isNotification() {
		s.logger.Debug("accepted MCP notification", "method", req.Method)
		return nil
	}

	s.logger.Debug("MCP request", "method", req.Method, "id", string(req.ID))

	switch req.Method {
	case "initialize":
		return s.handleInitialize(encoder, req)
	case "ping":
		return s.sendJSONRPCResult(encoder, req.ID, map[string]any{})
	case "tools/list":
		if !s.initialized {
			return s.sendJSONRPCError(encoder, req.ID, JSONRPCInvalidRequest, "server not initialized", nil)
		}
		return s.handleToolsList(encoder, req)
	case "tools/call":
		if !s.initialized {
			return s.sendJSONRPCError(encoder, req.ID, JSONRPCInvalidRequest, "server not initialized", nil)
		}
		return s.handleToolsCall(ctx, encoder, req)
	default:
		return s.sendJSONRPCError(encoder, req.ID, JSONRPCMethodNotFound, "method not found: "+req.Method, nil)
	}
}

// handleInitialize handles the MCP initialize handshake.
func (s *Server) handleInitialize(encoder *json.Encoder, req JSONRPCRequest) error {
	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.sendJSONRPCError(encoder, req.ID, JSONRPCInvalidParams, "invalid initialize params", nil)
		}
	}

	version := latestProtocolVersion
	if supportedProtocolVersions[params.ProtocolVersion] {
		version = params.ProtocolVersion
	}
	s.initialized = true

	s.logger.Info("MCP session initialized",
		"protocol_version", version,
		"client_name", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
	)

	result := map[string]any{
		"protocolVersion": version,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.name,
			"version": s.version,
		},
	}
	return s.sendJSONRPCResult(encoder, req.ID, result)
}

// handleToolsList handles tools/list requests.
func (s *Server) handleToolsList(encoder *json.Encoder, req JSONRPCRequest) error {
	defs := s.tools.List()
	s.logger.Debug("tools/list", "count", len(defs))
	return s.sendJSONRPCResult(encoder, req.ID, MCPListToolsResult{Tools: defs})
}

// handleToolsCall handles tools/call requests.
func (s *Server) handleToolsCall(ctx context.Context, encoder *json.Encoder, req JSONRPCRequest) error {
	var params MCPCallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.sendJSONRPCError(encoder, req.ID, JSONRPCInvalidParams, "invalid params", nil)
		}
	}

	if params.Name == "" {
		return s.sendJSONRPCError(encoder, req.ID, JSONRPCInvalidParams, "tool name is required", nil)
	}

	// Generate request ID for correlation
	requestID := uuid.New().String()

	s.logger.Debug("tools/call",
		"tool_name", params.Name,
		"request_id", requestID,
	)

	text, err := s.tools.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.handleToolError(encoder, req.ID, params.Name, requestID, err)
	}

	s.logger.Debug("tools/call complete",
		"tool_name", params.Name,
		"request_id", requestID,
	)

	return s.sendJSONRPCResult(encoder, req.ID, MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: text}},
	})
}

// errorKind names the failure category for the error's data member.
func errorKind(err error) string {
	var (
		ute   *tools.UnknownToolError
		ve    *fieldops.ValidationError
		authn *auth.AuthenticationError
		authz *auth.AuthorizationError
		rce   *rpc.RemoteCallError
	)
	switch {
	case errors.As(err, &ute):
		return "unknown_tool"
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &authn):
		return "authentication"
	case errors.As(err, &authz):
		return "authorization"
	case errors.As(err, &rce):
		return "remote_call"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "internal"
	}
}

// toolErrorMessage returns the message the host sees for a failed call. Only
// argument and permission errors carry their own text; backend detail such as
// procedure names and status codes stays in the log.
func toolErrorMessage(kind string, err error) string {
	switch kind {
	case "unknown_tool", "validation", "authorization":
		return err.Error()
	case "authentication":
		return "authentication failed"
	case "remote_call":
		return "backend request failed"
	case "timeout":
		return "backend request timed out"
	case "cancelled":
		return "request cancelled"
	default:
		return "internal error"
	}
}

// handleToolError maps a tool failure onto a JSON-RPC error response.
func (s *Server) handleToolError(encoder *json.Encoder, id json.RawMessage, toolName, requestID string, err error) error {
	kind := errorKind(err)

	s.logger.Warn("tool execution failed",
		"tool_name", toolName,
		"request_id", requestID,
		"kind", kind,
		"error", err,
	)

	code := JSONRPCInternalError
	if kind == "unknown_tool" || kind == "validation" {
		code = JSONRPCInvalidParams
	}

	return s.sendJSONRPCError(encoder, id, code, toolErrorMessage(kind, err), map[string]string{"kind": kind})
}

// sendJSONRPCResult sends a successful JSON-RPC response.
func (s *Server) sendJSONRPCResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return s.write(encoder, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// sendJSONRPCError sends a JSON-RPC error response.
func (s *Server) sendJSONRPCError(encoder *json.Encoder, id json.RawMessage, code int, message string, data any) error {
	return s.write(encoder, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}

func (s *Server) write(encoder *json.Encoder, resp JSONRPCResponse) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := encoder.Encode(resp); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}
