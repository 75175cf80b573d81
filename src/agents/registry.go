// Package agents holds the immutable registry of agent configurations: which
// model each named agent runs, its system prompt, and the tools it may call.
package agents

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config describes one agent.
type Config struct {
	Name         string   `validate:"required"`
	Model        string   `validate:"required"`
	SystemPrompt string   `validate:"required"`
	Tools        []string `validate:"dive,required"`
}

// Registry is a read-only agent map loaded at startup.
type Registry struct {
	agents map[string]Config
}

// NewRegistry validates and freezes the given configs. Structural problems
// are programmer errors and fail loudly at startup.
func NewRegistry(configs ...Config) (*Registry, error) {
	validate := validator.New()
	agents := make(map[string]Config, len(configs))
	for _, cfg := range configs {
		if err := validate.Struct(cfg); err != nil {
			return nil, fmt.Errorf("invalid agent config %q: %w", cfg.Name, err)
		}
		if _, exists := agents[cfg.Name]; exists {
			return nil, fmt.Errorf("duplicate agent %q", cfg.Name)
		}
		agents[cfg.Name] = cfg
	}
	return &Registry{agents: agents}, nil
}

// MustNewRegistry is NewRegistry for static built-in configurations.
func MustNewRegistry(configs ...Config) *Registry {
	r, err := NewRegistry(configs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get looks an agent up by name, also accepting the name without its leading
// underscore ("cover_letter" finds "_cover_letter").
func (r *Registry) Get(name string) (Config, bool) {
	if cfg, ok := r.agents[name]; ok {
		return cfg, true
	}
	if !strings.HasPrefix(name, "_") {
		if cfg, ok := r.agents["_"+name]; ok {
			return cfg, true
		}
	}
	return Config{}, false
}

// Has reports whether an agent exists under either spelling.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered agent names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.agents))
	for name := range r.agents {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
