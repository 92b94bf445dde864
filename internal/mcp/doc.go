// Package mcp implements the Model Context Protocol server the host talks to.
//
// # Protocol
//
// Messages are JSON-RPC 2.0, one per line, read from stdin and written to
// stdout. Nothing else may be written to stdout; diagnostics go to stderr.
// Supported methods:
//
//   - initialize: handshake; must precede any tools/* request
//   - ping: liveness check
//   - tools/list: ordered tool definitions with JSON Schema inputs
//   - tools/call: run one tool and return its text
//
// Notifications (messages without an id) are accepted and never answered.
//
// # Tool Execution
//
// Clients call tools/call to execute a tool:
//
//	{
//	  "jsonrpc": "2.0",
//	  "method": "tools/call",
//	  "params": {
//	    "name": "get_tasks_today",
//	    "arguments": {"date": "2026-10-19"}
//	  },
//	  "id": 2
//	}
//
// A successful call answers with {"content": [{"type": "text", "text": ...}]}.
//
// # Errors
//
// Tool failures become JSON-RPC errors. Unknown tools and argument validation
// failures use -32602; authentication, authorization and backend failures use
// -32603. The error's data member carries a "kind" naming the category.
// Unparseable lines get -32700 with a null id.
//
// # Usage
//
//	server, err := mcp.NewServer(mcp.Config{Tools: registry, Logger: logger})
//	err = server.Run(ctx, os.Stdin, os.Stdout)
//
// Requests are handled one at a time in arrival order.
package mcp
