// Package mcp implements the Model Context Protocol server for agent access.
//
// # Overview
//
// MCP (Model Context Protocol) is a standard for AI tool integration. This
// package exposes the work tracker to external AI clients (Claude Desktop,
// coding agents, custom applications) as a catalog of tools: project, PRD,
// story, and task CRUD, comments, progress rollups, and the activity feed.
//
// # Protocol
//
// The server implements the Streamable HTTP transport (protocol revision
// 2025-11-25) with JSON-RPC 2.0 messages on a single endpoint:
//
//   - POST /mcp - initialize, tools/list, tools/call, notifications
//   - DELETE /mcp - terminate a session
//
// GET is not supported; the server never opens server-initiated streams.
//
// # Sessions
//
// The initialize handshake creates a session and returns its ID in the
// Mcp-Session-Id response header:
//
//	{
//	  "jsonrpc": "2.0",
//	  "method": "initialize",
//	  "params": {"protocolVersion": "2025-11-25"},
//	  "id": 1
//	}
//
// Every subsequent request must carry the Mcp-Session-Id header. Requests
// without one get HTTP 400; requests with an unknown or terminated session
// get HTTP 404, signalling the client to re-initialize. Sessions live in
// memory and do not survive a restart.
//
// # Tool Execution
//
// Clients call tools/call to execute a tool:
//
//	{
//	  "jsonrpc": "2.0",
//	  "method": "tools/call",
//	  "params": {
//	    "name": "create_task",
//	    "arguments": {"story_id": "...", "title": "Wire up endpoint", "assigned_to": "agent-7"}
//	  },
//	  "id": 2
//	}
//
// Results carry the entity as indented JSON in a text content block.
//
// # Error Reporting
//
// Domain failures (missing parent, unknown ID, validation) come back as tool
// results with isError set, so the calling agent can read the message and
// correct its next call. JSON-RPC errors are reserved for protocol problems:
// malformed JSON, unknown methods, unknown tools, and cancelled requests.
//
// # Usage
//
//	server, err := mcp.NewServer(mcp.Config{Service: svc, Logger: logger})
//	if err != nil {
//		return err
//	}
//	server.RegisterRoutes(mux)
package mcp
