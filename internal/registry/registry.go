// Package registry holds the tool and resource descriptors the server exposes
// and dispatches invocations to them.
// file: internal/registry/registry.go
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	gschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/marekdano/weather-mcp-server/internal/logging"
	"github.com/marekdano/weather-mcp-server/internal/mcperror"
	"github.com/marekdano/weather-mcp-server/internal/schema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolHandler computes a tool result from validated arguments. The returned
// value must be JSON-serializable.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// Tool describes a callable tool.
type Tool struct {
	Name         string
	Title        string
	Description  string
	InputSchema  *gschema.Schema
	OutputSchema *gschema.Schema
	Handler      ToolHandler
}

// Result is the outcome of a successful dispatch.
type Result struct {
	// Content holds a single text item with the JSON encoding of the value.
	Content []mcp.Content
	// StructuredContent is the value as decoded from that encoding.
	StructuredContent any
}

// Recorder observes dispatch outcomes. Outcome is "ok" or an error category.
type Recorder interface {
	RecordToolCall(tool, outcome string, elapsed time.Duration)
	RecordResourceRead(resource, outcome string)
}

type toolEntry struct {
	desc   Tool
	input  *schema.Schema
	output *schema.Schema
}

// Registry maps names to descriptors. Registration happens at startup; once
// sealed the registry is read-only and safe for concurrent dispatch.
type Registry struct {
	mu        sync.RWMutex
	sealed    bool
	tools     map[string]*toolEntry
	resources map[string]*resourceEntry
	validator *schema.Validator
	recorder  Recorder
	logger    logging.Logger
}

// Option customizes a Registry.
type Option func(*Registry)

// WithRecorder attaches a dispatch recorder.
func WithRecorder(r Recorder) Option {
	return func(reg *Registry) { reg.recorder = r }
}

// WithValidator shares a schema validator with other components.
func WithValidator(v *schema.Validator) Option {
	return func(reg *Registry) { reg.validator = v }
}

// New creates an empty registry.
func New(logger logging.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	r := &Registry{
		tools:     make(map[string]*toolEntry),
		resources: make(map[string]*resourceEntry),
		logger:    logger.WithField("component", "registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.validator == nil {
		r.validator = schema.NewValidator(logger)
	}
	return r
}

// RegisterTool adds a tool. Names are unique among tools.
func (r *Registry) RegisterTool(t Tool) error {
	if err := checkTool(t); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return mcperror.NewConfigError("registry", fmt.Sprintf("cannot register tool %q: registry is sealed", t.Name))
	}
	if _, exists := r.tools[t.Name]; exists {
		return mcperror.NewDuplicateNameError("tool", t.Name)
	}

	entry := &toolEntry{desc: t}
	var err error
	if entry.input, err = r.validator.Compile("tool."+t.Name+".input", t.InputSchema); err != nil {
		return errors.Wrapf(err, "tool %q: input schema", t.Name)
	}
	if t.OutputSchema != nil {
		if entry.output, err = r.validator.Compile("tool."+t.Name+".output", t.OutputSchema); err != nil {
			return errors.Wrapf(err, "tool %q: output schema", t.Name)
		}
	}

	r.tools[t.Name] = entry
	r.logger.Info("Tool registered.", "tool", t.Name)
	return nil
}

func checkTool(t Tool) error {
	if t.Name == "" {
		return mcperror.NewConfigError("tool.name", "tool name is empty")
	}
	if err := schema.ValidateName(schema.EntityTypeTool, t.Name); err != nil {
		return errors.WithStack(&mcperror.ConfigError{Setting: "tool.name", Message: "invalid tool name", Cause: err})
	}
	switch {
	case t.Handler == nil:
		return mcperror.NewConfigError("tool.handler", fmt.Sprintf("tool %q has no handler", t.Name))
	case t.InputSchema == nil:
		return mcperror.NewConfigError("tool.input_schema", fmt.Sprintf("tool %q has no input schema", t.Name))
	case t.InputSchema.Type != "object":
		return mcperror.NewConfigError("tool.input_schema", fmt.Sprintf("tool %q input schema must be of type object", t.Name))
	case t.OutputSchema != nil && t.OutputSchema.Type != "object":
		return mcperror.NewConfigError("tool.output_schema", fmt.Sprintf("tool %q output schema must be of type object", t.Name))
	}
	return nil
}

// Seal freezes the registry. Further registration fails with a ConfigError.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sealed {
		r.sealed = true
		r.logger.Debug("Registry sealed.", "tools", len(r.tools), "resources", len(r.resources))
	}
}

// Tools returns the registered tool descriptors sorted by name.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) tool(name string) (*toolEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e, ok
}

// Dispatch validates rawInput against the tool's input schema and invokes
// its handler. Empty input is treated as an empty object.
func (r *Registry) Dispatch(ctx context.Context, name string, rawInput json.RawMessage) (res *Result, err error) {
	start := time.Now()
	defer func() { r.recordTool(name, start, err) }()

	entry, ok := r.tool(name)
	if !ok {
		return nil, mcperror.NewUnknownToolError(name)
	}

	if len(rawInput) == 0 {
		rawInput = json.RawMessage("{}")
	}
	doc, err := entry.input.ValidateJSON(fmt.Sprintf("arguments for tool %q", name), rawInput)
	if err != nil {
		return nil, err
	}
	args, _ := doc.(map[string]any)

	value, err := invoke(ctx, name, entry.desc.Handler, args)
	if err != nil {
		r.logger.Info("Tool handler failed.", "tool", name, "error", err)
		return nil, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, mcperror.NewHandlerError(name, errors.Wrap(err, "encode result"))
	}
	var structured any
	if entry.output != nil {
		if structured, err = entry.output.ValidateJSON(fmt.Sprintf("result of tool %q", name), encoded); err != nil {
			r.logger.Error("Tool result does not match its output schema.", "tool", name, "error", err)
			return nil, err
		}
	} else if err := json.Unmarshal(encoded, &structured); err != nil {
		return nil, mcperror.NewHandlerError(name, errors.Wrap(err, "decode result"))
	}

	return &Result{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(encoded)}},
		StructuredContent: structured,
	}, nil
}

// invoke runs a handler, turning panics and foreign errors into HandlerErrors.
func invoke(ctx context.Context, name string, h ToolHandler, args map[string]any) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = mcperror.NewHandlerError(name, errors.Newf("panic: %v", p))
		}
	}()
	value, err = h(ctx, args)
	if err != nil && !mcperror.IsTaxonomy(err) {
		err = mcperror.NewHandlerError(name, err)
	}
	return value, err
}

func (r *Registry) recordTool(name string, start time.Time, err error) {
	if r.recorder != nil {
		r.recorder.RecordToolCall(name, outcome(err), time.Since(start))
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if c := mcperror.GetCategory(err); c != "" {
		return string(c)
	}
	return "error"
}
