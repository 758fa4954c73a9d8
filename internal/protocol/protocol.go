// Package protocol defines the JSON-RPC 2.0 and MCP wire types spoken by the
// bridge server and its clients.
package protocol

import "encoding/json"

// Version is the MCP protocol version advertised by the server.
const Version = "2024-11-05"

// JSONRPCVersion is the JSON-RPC envelope version.
const JSONRPCVersion = "2.0"

// Request represents a JSON-RPC 2.0 request.
//
// The ID is kept as a raw message so that whatever correlation token the
// caller supplied (number or string) round-trips unchanged.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError represents a JSON-RPC 2.0 error object.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON-RPC error codes used by the gateway.
const (
	CodeMethodNotFound = -32601
	CodeInternalError  = -32603
)

// Tool describes a callable tool: its name, human-readable description and
// the JSON schema of its arguments.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// CallToolParams are the params of a tools/call request.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResult is the result of a tools/call invocation. Content carries
// the serialized tool output; IsError flags tool-level failures.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content represents one piece of tool result content.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextContent wraps s as a single-element text content slice.
func TextContent(s string) []Content {
	return []Content{{Type: "text", Text: s}}
}

// ListToolsResult is the result of a tools/list request.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// ServerInfo identifies the server in an initialize response.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerCapabilities advertises what the server supports. Only tools are
// implemented; resources and prompts are deliberately absent.
type ServerCapabilities struct {
	Tools *ToolCapability `json:"tools,omitempty"`
}

// ToolCapability represents tool capabilities.
type ToolCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// InitializeResult is the result of an initialize request.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}
