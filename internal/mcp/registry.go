package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"marriott_mcp/internal/app"
	"marriott_mcp/internal/domain"
)

// Handler runs a tool whose arguments already passed schema validation.
type Handler func(ctx context.Context, sessionID string, args json.RawMessage) domain.ToolResult

type Tool struct {
	Name        string
	Title       string
	Description string
	InputSchema map[string]any
	Annotations map[string]any
	Meta        map[string]any

	schema  *gojsonschema.Schema
	handler Handler
}

// Registry holds tools in registration order.
type Registry struct {
	tools []*Tool
	index map[string]*Tool
}

func NewRegistry() *Registry {
	return &Registry{index: map[string]*Tool{}}
}

func (r *Registry) Register(t Tool, h Handler) error {
	if _, dup := r.index[t.Name]; dup {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.InputSchema))
	if err != nil {
		return fmt.Errorf("tool %q schema: %w", t.Name, err)
	}
	t.schema = s
	t.handler = h
	r.tools = append(r.tools, &t)
	r.index[t.Name] = &t
	return nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Name)
	}
	return out
}

// List renders tool definitions for tools/list.
func (r *Registry) List() []map[string]any {
	out := make([]map[string]any, 0, len(r.tools))
	for _, t := range r.tools {
		def := map[string]any{
			"name":        t.Name,
			"title":       t.Title,
			"description": t.Description,
			"inputSchema": t.InputSchema,
		}
		if t.Annotations != nil {
			def["annotations"] = t.Annotations
		}
		if t.Meta != nil {
			def["_meta"] = t.Meta
		}
		out = append(out, def)
	}
	return out
}

func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.index[name]
	return t, ok
}

// Call validates args against the tool schema and runs it. Unknown tools are
// the caller's protocol error; invalid arguments become a validation result.
func (r *Registry) Call(ctx context.Context, sessionID, name string, args json.RawMessage) (domain.ToolResult, error) {
	t, ok := r.index[name]
	if !ok {
		return domain.ToolResult{}, fmt.Errorf("unknown tool %q", name)
	}
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}
	res, err := t.schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return app.ValidationResult("arguments are not valid JSON: "+err.Error(), nil), nil
	}
	if !res.Valid() {
		msgs, fields := describe(res.Errors())
		return app.ValidationResult(strings.Join(msgs, "; "), fields), nil
	}
	return t.handler(ctx, sessionID, args), nil
}

func describe(errs []gojsonschema.ResultError) ([]string, []string) {
	msgs := make([]string, 0, len(errs))
	seen := map[string]bool{}
	for _, e := range errs {
		msgs = append(msgs, e.String())
		field := e.Field()
		if e.Type() == "required" {
			if p, ok := e.Details()["property"].(string); ok {
				field = p
			}
		}
		seen[field] = true
	}
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return msgs, fields
}

// bind decodes validated arguments into T before calling fn.
func bind[T any](fn func(ctx context.Context, sessionID string, in T) domain.ToolResult) Handler {
	return func(ctx context.Context, sessionID string, args json.RawMessage) domain.ToolResult {
		var in T
		if err := json.Unmarshal(args, &in); err != nil {
			return app.ValidationResult("arguments do not match the expected types: "+err.Error(), nil)
		}
		return fn(ctx, sessionID, in)
	}
}
