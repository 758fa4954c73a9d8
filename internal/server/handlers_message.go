package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/opencode-ai/editorbridge/internal/logging"
	"github.com/opencode-ai/editorbridge/internal/protocol"
)

// handleMessage handles POST /message?sessionId=<id>. Session and body
// problems are the only synchronous failures; once the request is accepted,
// the result — success or error — travels over the session's stream.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if _, ok := s.sessions.Get(sessionID); !ok {
		writeClientError(w, http.StatusBadRequest, errInvalidSession)
		return
	}

	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeClientError(w, http.StatusBadRequest, errInvalidJSON)
		return
	}

	// Tool execution can outlive this request (opening many files, slow git
	// commands), so dispatch runs detached from the HTTP handler.
	go s.dispatch(context.Background(), sessionID, req)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// dispatch resolves the JSON-RPC method, executes it and delivers the
// response on the session's stream. The correlation id passes through
// unchanged so concurrent calls can be matched by the caller.
func (s *Server) dispatch(ctx context.Context, sessionID string, req protocol.Request) {
	resp := protocol.Response{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      req.ID,
	}

	switch req.Method {
	case "initialize":
		resp.Result = protocol.InitializeResult{
			ProtocolVersion: protocol.Version,
			Capabilities: protocol.ServerCapabilities{
				Tools: &protocol.ToolCapability{},
			},
			ServerInfo: protocol.ServerInfo{
				Name:    "editorbridge",
				Version: s.config.Version,
			},
		}

	case "notifications/initialized":
		resp.Result = map[string]any{}

	case "tools/list":
		resp.Result = protocol.ListToolsResult{Tools: s.registry.List()}

	case "tools/call":
		resp.Result = s.callTool(ctx, req.Params)

	default:
		resp.Error = &protocol.ResponseError{
			Code:    protocol.CodeMethodNotFound,
			Message: "Unknown method: " + req.Method,
		}
	}

	s.sessions.Deliver(sessionID, resp)
}

// callTool runs one tool invocation. Failures of any kind become an
// error-flagged result; they must never escape as a gateway failure.
func (s *Server) callTool(ctx context.Context, params json.RawMessage) protocol.CallToolResult {
	var call protocol.CallToolParams
	if err := json.Unmarshal(params, &call); err != nil {
		return errorResult("Invalid tool call params: " + err.Error())
	}

	exec, ok := s.registry.Resolve(call.Name)
	if !ok {
		return errorResult("Tool not found: " + call.Name)
	}

	logging.Debug().Str("tool", call.Name).Msg("tool call")

	result, err := exec(ctx, call.Arguments)
	if err != nil {
		logging.Warn().Str("tool", call.Name).Err(err).Msg("tool call failed")
		return errorResult(err.Error())
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errorResult("Failed to serialize tool result: " + err.Error())
	}

	return protocol.CallToolResult{Content: protocol.TextContent(string(data))}
}

func errorResult(message string) protocol.CallToolResult {
	return protocol.CallToolResult{
		Content: protocol.TextContent(message),
		IsError: true,
	}
}
