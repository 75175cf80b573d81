// Package orchestrator runs the turn loop: it assembles LLM input from
// history, invokes the model, executes returned tool calls (including
// routing to other agents), and logs every step back into the history store.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corvid-labs/quill/src/agents"
	"github.com/corvid-labs/quill/src/aisdk"
	"github.com/corvid-labs/quill/src/history"
	"github.com/corvid-labs/quill/src/tools"
)

// DefaultMaxDepth bounds the tool-call loop when no cap is configured.
const DefaultMaxDepth = 30

// depthAbortMessage is returned and logged when the loop hits the cap.
const depthAbortMessage = "Stopped: maximum tool-call depth reached."

// Retriever supplies auxiliary grounding context from the local corpus. It
// is an external collaborator: failures are logged and skipped, never fatal.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// Config wires an Orchestrator.
type Config struct {
	History   *history.Store
	Tools     *tools.Registry
	Agents    *agents.Registry
	Provider  aisdk.Provider
	Retriever Retriever
	Caps      tools.Caps
	MaxDepth  int
	// HistoryDepth is the projection window per request. Zero uses the
	// history package default.
	HistoryDepth int
	Logger       *slog.Logger
}

// Orchestrator is the turn-taking loop. It is single-task, cooperative: the
// model call and tool implementations run synchronously in the caller's
// goroutine.
type Orchestrator struct {
	history      *history.Store
	tools        *tools.Registry
	agents       *agents.Registry
	provider     aisdk.Provider
	retriever    Retriever
	caps         tools.Caps
	maxDepth     int
	historyDepth int
	logger       *slog.Logger
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	caps := cfg.Caps
	if caps == (tools.Caps{}) {
		caps = tools.DefaultCaps()
	}
	return &Orchestrator{
		history:      cfg.History,
		tools:        cfg.Tools,
		agents:       cfg.Agents,
		provider:     cfg.Provider,
		retriever:    cfg.Retriever,
		caps:         caps,
		maxDepth:     maxDepth,
		historyDepth: cfg.HistoryDepth,
		logger:       logger.With("component", "orchestrator"),
	}
}

// ChatOptions carries the optional parts of a turn.
type ChatOptions struct {
	// Images are URLs or data URIs attached to the user message.
	Images []string
	// Tools overrides the agent's allowed tool names for this turn.
	Tools []string
	// ToolChoice overrides the default "auto".
	ToolChoice string
}

// Chat performs one complete turn and returns the final assistant text. It
// never returns an error for routine failures; whatever the user should see
// comes back as the string, and history always contains a record of it.
func (o *Orchestrator) Chat(ctx context.Context, model, userContent string, opts ChatOptions) string {
	content := buildUserContent(userContent, opts.Images)
	object := "chat"
	if len(opts.Images) > 0 {
		object = "img"
	}
	o.history.Log("user", content, history.Fields{Object: object})

	cfg, ok := o.agents.Get(agents.PrimaryAgent)
	if !ok {
		msg := "No primary agent is configured."
		o.history.LogText("assistant", msg)
		return msg
	}
	if model != "" {
		cfg.Model = model
	}

	question := ""
	if routed, sub, ok := o.preRoute(userContent); ok {
		o.logger.Info("deterministic pre-route", "agent", routed.Name)
		cfg = routed
		question = sub
	}

	return o.run(ctx, cfg, question, userContent, opts, 0)
}

// run performs one LLM invocation at the given depth, executes any returned
// tool calls, and recurses until the model answers in plain text or the
// depth cap trips.
func (o *Orchestrator) run(ctx context.Context, cfg agents.Config, question, userContent string, opts ChatOptions, depth int) string {
	if depth >= o.maxDepth {
		o.logger.Warn("tool depth exceeded", "agent", cfg.Name, "depth", depth)
		o.history.Log("assistant", aisdk.Text(depthAbortMessage), history.Fields{AssistantName: cfg.Name})
		return depthAbortMessage
	}

	input := o.assemble(ctx, cfg, question, userContent, depth)

	toolNames := cfg.Tools
	if len(opts.Tools) > 0 {
		toolNames = opts.Tools
	}
	descriptors := o.tools.Descriptors(toolNames)

	toolChoice := opts.ToolChoice
	if toolChoice == "" && len(descriptors) > 0 {
		toolChoice = "auto"
	}

	msg, err := o.complete(ctx, cfg.Model, input, descriptors, toolChoice)
	if err != nil {
		text := fmt.Sprintf("The model request failed: %v", err)
		o.logger.Error("chat completion failed", "agent", cfg.Name, "error", err)
		o.history.Log("assistant", aisdk.Text(text), history.Fields{AssistantName: cfg.Name})
		return text
	}

	if !msg.HasToolCalls() {
		text := msg.Content.String()
		o.history.Log("assistant", aisdk.Text(text), history.Fields{AssistantName: cfg.Name})
		return text
	}

	// Assistant content accompanying tool calls is logged but not returned;
	// the user sees only the final iteration's text.
	o.history.Log("assistant", msg.Content, history.Fields{
		AssistantName: cfg.Name,
		ToolCalls:     msg.ToolCalls,
	})

	routed, routedQuestion := o.executeToolCalls(ctx, msg.ToolCalls)

	if routed != nil {
		o.logger.Info("routing to agent", "from", cfg.Name, "to", routed.Name, "depth", depth+1)
		return o.run(ctx, *routed, routedQuestion, userContent, ChatOptions{ToolChoice: opts.ToolChoice}, depth+1)
	}
	return o.run(ctx, cfg, "", userContent, opts, depth+1)
}

// executeToolCalls dispatches each call in the order the model returned
// them, logging one tool-result record per call. A route_to_agent call does
// not execute a tool; it produces the routing request handed back to run.
func (o *Orchestrator) executeToolCalls(ctx context.Context, calls []aisdk.ToolCall) (*agents.Config, string) {
	var routed *agents.Config
	var routedQuestion string

	for _, call := range calls {
		name := call.Function.Name
		args := call.Function.ParseArguments(o.logger)

		if name == RouteToAgentName {
			target, _ := args["target_agent"].(string)
			subQuestion, _ := args["user_question"].(string)

			cfg, ok := o.agents.Get(target)
			if !ok {
				o.logger.Warn("unknown routing target", "target", target)
				o.logToolResult(call, fmt.Sprintf("Unknown target agent: %s", target))
				continue
			}
			routed = &cfg
			routedQuestion = subQuestion
			o.logToolResult(call, fmt.Sprintf("Routing to %s", cfg.Name))
			continue
		}

		result := o.tools.Execute(ctx, name, args, call.ID)
		o.logToolResult(call, tools.Shrink(result, o.caps))
	}

	return routed, routedQuestion
}

func (o *Orchestrator) logToolResult(call aisdk.ToolCall, content string) {
	o.history.Log("tool", aisdk.Text(content), history.Fields{
		ToolCallID: call.ID,
		Name:       call.Function.Name,
	})
}

// assemble builds the LLM input: the agent's system prompt, the validated
// recent-history projection, an optional routed seed question, and
// best-effort retrieval context on the opening step.
func (o *Orchestrator) assemble(ctx context.Context, cfg agents.Config, question, userContent string, depth int) []*aisdk.Message {
	input := []*aisdk.Message{{Role: "system", Content: aisdk.Text(cfg.SystemPrompt)}}

	projection := o.history.Project(history.ProjectOptions{
		Depth:        o.historyDepth,
		IncludeTools: true,
		ExcludeRole:  "system",
	})
	input = append(input, projection...)

	if len(projection) == 0 && question == "" && userContent != "" {
		input = append(input, &aisdk.Message{Role: "user", Content: aisdk.Text(userContent)})
	}
	if question != "" {
		input = append(input, &aisdk.Message{Role: "user", Content: aisdk.Text(question)})
	}

	if depth == 0 && o.retriever != nil {
		query := question
		if query == "" {
			query = userContent
		}
		if background, err := o.retriever.Retrieve(ctx, query); err != nil {
			o.logger.Warn("retrieval failed, continuing without context", "error", err)
		} else if background != "" {
			input = append(input, &aisdk.Message{
				Role:    "system",
				Content: aisdk.Text("Background context from the local corpus:\n" + background),
			})
		}
	}

	return input
}

// complete performs the single blocking model call of a step.
func (o *Orchestrator) complete(ctx context.Context, model string, input []*aisdk.Message, descriptors []*aisdk.ChatTool, toolChoice string) (*aisdk.Message, error) {
	client, err := o.provider.Model(ctx, model)
	if err != nil {
		return nil, err
	}
	resp, err := client.CreateChatCompletion(ctx, &aisdk.ChatCompletionRequest{
		Model:      model,
		Messages:   input,
		Tools:      descriptors,
		ToolChoice: toolChoice,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	return &resp.Choices[0].Message, nil
}

func buildUserContent(text string, images []string) aisdk.MessageContent {
	if len(images) == 0 {
		return aisdk.Text(text)
	}
	parts := []aisdk.ContentPart{aisdk.TextPart(text)}
	for _, img := range images {
		parts = append(parts, aisdk.ImagePart(img))
	}
	return aisdk.Parts(parts...)
}
