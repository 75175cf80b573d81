package main

import (
	"fmt"
	"strings"

	"github.com/corvid-labs/quill/src/agents"
)

// AgentsCmd lists the configured agents.
type AgentsCmd struct{}

func (c *AgentsCmd) Run(cli *CLI) error {
	registry := agents.Builtin()
	for _, name := range registry.Names() {
		cfg, _ := registry.Get(name)
		fmt.Printf("%-18s model=%s tools=[%s]\n", cfg.Name, cfg.Model, strings.Join(cfg.Tools, ", "))
	}
	return nil
}
