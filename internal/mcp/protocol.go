package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
)

const ProtocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
	MethodResList     = "resources/list"
	MethodResRead     = "resources/read"
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports a request without an id; it gets no response.
func (r Request) IsNotification() bool { return len(r.ID) == 0 }

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type CallResult struct {
	Content           []Content      `json:"content"`
	StructuredContent any            `json:"structuredContent,omitempty"`
	IsError           bool           `json:"isError"`
	Meta              map[string]any `json:"_meta,omitempty"`
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type readParams struct {
	URI string `json:"uri"`
}

type Info struct {
	Name         string
	Version      string
	Instructions string
}

// Server answers MCP JSON-RPC requests. It is transport agnostic.
type Server struct {
	info      Info
	tools     *Registry
	resources *Resources
}

func NewServer(info Info, tools *Registry, resources *Resources) *Server {
	return &Server{info: info, tools: tools, resources: resources}
}

func (s *Server) Info() Info { return s.info }
func (s *Server) Tools() *Registry { return s.tools }

// ParseRequest decodes one JSON-RPC message. A non-nil response means the
// message was rejected before dispatch.
func ParseRequest(raw []byte) (Request, *Response) {
	var req Request
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if len(trimmed) > 0 && trimmed[0] == '[' {
			return req, errorResponse(nil, CodeInvalidRequest, "batch requests are not supported")
		}
		if !json.Valid(trimmed) {
			return req, errorResponse(nil, CodeParseError, "parse error")
		}
		return req, errorResponse(nil, CodeInvalidRequest, "request must be an object")
	}
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return req, errorResponse(nil, CodeParseError, "parse error")
	}
	if string(req.ID) == "null" {
		req.ID = nil
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return req, errorResponse(req.ID, CodeInvalidRequest, "invalid request")
	}
	return req, nil
}

// HandleRaw parses and dispatches one message. It returns nil for notifications.
func (s *Server) HandleRaw(ctx context.Context, sessionID string, raw []byte) *Response {
	req, rejected := ParseRequest(raw)
	if rejected != nil {
		return rejected
	}
	return s.Handle(ctx, sessionID, req)
}

// Handle dispatches a parsed request. It returns nil for notifications.
func (s *Server) Handle(ctx context.Context, sessionID string, req Request) *Response {
	result, err := s.dispatch(ctx, sessionID, req)
	if req.IsNotification() {
		if err != nil {
			log.Debug().Err(err).Str("method", req.Method).Msg("notification failed")
		}
		return nil
	}
	if err != nil {
		var rpcErr *RPCError
		if !errors.As(err, &rpcErr) {
			log.Error().Err(err).Str("method", req.Method).Msg("internal error")
			rpcErr = &RPCError{Code: CodeInternalError, Message: "internal error"}
		}
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) dispatch(ctx context.Context, sessionID string, req Request) (any, error) {
	switch req.Method {
	case MethodInitialize:
		return s.initialize(), nil
	case MethodInitialized:
		return nil, nil
	case MethodPing:
		return struct{}{}, nil
	case MethodToolsList:
		return map[string]any{"tools": s.tools.List()}, nil
	case MethodToolsCall:
		return s.callTool(ctx, sessionID, req.Params)
	case MethodResList:
		return map[string]any{"resources": s.resources.List()}, nil
	case MethodResRead:
		var p readParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return s.resources.Read(p.URI)
	}
	return nil, &RPCError{Code: CodeMethodNotFound, Message: "method not found: " + req.Method}
}

func (s *Server) initialize() map[string]any {
	res := map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{"listChanged": false},
			"resources": map[string]any{"listChanged": false},
		},
		"serverInfo": map[string]any{"name": s.info.Name, "version": s.info.Version},
	}
	if s.info.Instructions != "" {
		res["instructions"] = s.info.Instructions
	}
	return res
}

func (s *Server) callTool(ctx context.Context, sessionID string, params json.RawMessage) (*CallResult, error) {
	var p callParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "tool name is required"}
	}
	tool, ok := s.tools.Lookup(p.Name)
	if !ok {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "unknown tool: " + p.Name}
	}
	res, err := s.tools.Call(ctx, sessionID, p.Name, p.Arguments)
	if err != nil {
		return nil, err
	}
	out := &CallResult{
		Content:           []Content{{Type: "text", Text: res.ShortText}},
		StructuredContent: res.StructuredContent,
		IsError:           res.IsError,
	}
	if uri, ok := tool.Meta["openai/outputTemplate"]; ok && !res.IsError {
		out.Meta = map[string]any{"openai/outputTemplate": uri}
	}
	return out, nil
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return &RPCError{Code: CodeInvalidParams, Message: "params are required"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	return nil
}

func errorResponse(id json.RawMessage, code int, msg string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: msg}}
}

// EncodeResponse marshals resp. A result that cannot be encoded is replaced
// by an internal error under the same id so the caller is never left waiting.
func EncodeResponse(resp *Response) []byte {
	b, err := json.Marshal(resp)
	if err == nil {
		return b
	}
	log.Error().Err(err).RawJSON("id", idOrNull(resp.ID)).Msg("encode response")
	b, _ = json.Marshal(errorResponse(resp.ID, CodeInternalError, "response could not be encoded"))
	return b
}

func idOrNull(id json.RawMessage) []byte {
	if len(id) == 0 {
		return []byte("null")
	}
	return id
}
