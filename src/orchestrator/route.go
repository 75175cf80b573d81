package orchestrator

import (
	"context"
	"fmt"

	"github.com/corvid-labs/quill/src/agents"
	"github.com/corvid-labs/quill/src/tools"
)

// RouteToAgentName is the tool the model calls to hand a request to another
// agent. The registry treats it like any other tool; the orchestrator
// intercepts it by name and performs the actual handoff.
const RouteToAgentName = "route_to_agent"

// RouteToAgentSpec returns the registrable spec for the routing tool. Its
// implementation only reports what routing would happen, for callers that
// execute it outside the orchestrator loop.
func RouteToAgentSpec(registry *agents.Registry) *tools.Spec {
	return &tools.Spec{
		Name: RouteToAgentName,
		Description: "Hand the user's request to a specialized agent. " +
			"Use this when another agent is clearly better suited.",
		Params: []tools.Param{
			{
				Name:        "target_agent",
				Type:        "string",
				Description: "Name of the agent to route to",
				Required:    true,
				Enum:        registry.Names(),
			},
			{
				Name:        "user_question",
				Type:        "string",
				Description: "The request to forward, rephrased as a self-contained question",
				Required:    true,
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			target, _ := args["target_agent"].(string)
			cfg, ok := registry.Get(target)
			if !ok {
				return fmt.Sprintf("Unknown target agent: %s", target), nil
			}
			return fmt.Sprintf("Routing to %s", cfg.Name), nil
		},
	}
}
