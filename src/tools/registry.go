package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corvid-labs/quill/src/aisdk"
)

// Registry stores tool specs keyed by name. Specs are registered at startup
// and immutable thereafter.
type Registry struct {
	specs  map[string]*Spec
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		specs:  make(map[string]*Spec),
		logger: logger.With("component", "tools"),
	}
}

// Register adds a spec. Duplicate or empty names are rejected.
func (r *Registry) Register(spec *Spec) error {
	if spec == nil || spec.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.specs[spec.Name]; exists {
		return fmt.Errorf("tool %s is already registered", spec.Name)
	}
	r.specs[spec.Name] = spec
	return nil
}

// MustRegister adds a spec and panics on a registration error. Misconfigured
// registries are programmer errors and allowed to fail at startup.
func (r *Registry) MustRegister(spec *Spec) {
	if err := r.Register(spec); err != nil {
		panic(fmt.Sprintf("failed to register tool: %v", err))
	}
}

// Get returns a spec by name.
func (r *Registry) Get(name string) (*Spec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// Names returns all registered tool names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.specs))
	for name := range r.specs {
		out = append(out, name)
	}
	return out
}

// Descriptors returns wire-format descriptors for the named tools, skipping
// unknown names with a warning.
func (r *Registry) Descriptors(names []string) []*aisdk.ChatTool {
	out := make([]*aisdk.ChatTool, 0, len(names))
	for _, name := range names {
		spec, ok := r.specs[name]
		if !ok {
			r.logger.Warn("unknown tool requested, skipping", "tool", name)
			continue
		}
		out = append(out, spec.Descriptor())
	}
	return out
}

// Execute runs the named tool. It never returns an error: a missing tool, a
// panicking callback, or a failing implementation all produce a string
// result describing the problem, so the tool loop keeps going.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, toolCallID string) any {
	spec, ok := r.specs[name]
	if !ok {
		r.logger.Warn("tool not found", "tool", name)
		return fmt.Sprintf("Tool not found: %s", name)
	}

	if spec.OnCall != nil {
		r.safeCallback(name, "on_call", func() { spec.OnCall(name, args) })
	}

	result := r.invoke(ctx, spec, args, name)

	if spec.OnResult != nil {
		r.safeCallback(name, "on_result", func() { spec.OnResult(name, result, toolCallID) })
	}
	return result
}

// invoke fills declared defaults for absent optional parameters and calls
// the implementation, converting failures to the canonical error string.
func (r *Registry) invoke(ctx context.Context, spec *Spec, args map[string]any, name string) (result any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", rec)
			result = fmt.Sprintf("%s error: %v", name, rec)
		}
	}()

	if spec.Fn == nil {
		return fmt.Sprintf("%s error: no implementation", name)
	}

	// Only declared parameters reach the implementation.
	kwargs := make(map[string]any, len(spec.Params))
	for _, p := range spec.Params {
		if v, ok := args[p.Name]; ok {
			kwargs[p.Name] = v
		} else if p.Default != nil {
			kwargs[p.Name] = p.Default
		}
	}

	out, err := spec.Fn(ctx, kwargs)
	if err != nil {
		r.logger.Warn("tool execution failed", "tool", name, "error", err)
		return fmt.Sprintf("%s error: %s", name, err.Error())
	}
	return out
}

func (r *Registry) safeCallback(name, kind string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("tool callback failed", "tool", name, "callback", kind, "panic", rec)
		}
	}()
	fn()
}
