package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/corvid-labs/quill/src/agents"
	"github.com/corvid-labs/quill/src/aisdk"
	"github.com/corvid-labs/quill/src/history"
	"github.com/corvid-labs/quill/src/idgen"
	"github.com/corvid-labs/quill/src/tools"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient replays a scripted sequence of responses and records every
// request it sees.
type fakeClient struct {
	model     string
	responses []*aisdk.ChatCompletionResponse
	err       error
	requests  []*aisdk.ChatCompletionRequest
}

func (f *fakeClient) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return textResponse("out of script"), nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeClient) ModelName() string { return f.model }

type fakeProvider struct {
	client *fakeClient
}

func (f *fakeProvider) Model(ctx context.Context, modelName string) (aisdk.ModelClient, error) {
	return f.client, nil
}

func textResponse(text string) *aisdk.ChatCompletionResponse {
	return &aisdk.ChatCompletionResponse{
		Choices: []aisdk.Choice{{
			Message:      aisdk.Message{Role: "assistant", Content: aisdk.Text(text)},
			FinishReason: "stop",
		}},
	}
}

func toolCallResponse(callID, name, arguments string) *aisdk.ChatCompletionResponse {
	return &aisdk.ChatCompletionResponse{
		Choices: []aisdk.Choice{{
			Message: aisdk.Message{
				Role: "assistant",
				ToolCalls: []aisdk.ToolCall{{
					ID:   callID,
					Type: "function",
					Function: aisdk.FunctionCall{
						Name:      name,
						Arguments: json.RawMessage(arguments),
					},
				}},
			},
			FinishReason: "tool_calls",
		}},
	}
}

type fixture struct {
	orch    *Orchestrator
	store   *history.Store
	client  *fakeClient
	tools   *tools.Registry
	agents  *agents.Registry
}

func newFixture(t *testing.T, client *fakeClient, agentRegistry *agents.Registry, mutate func(*Config)) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	seq := idgen.NewSequence(fs, "/state/id_counter.txt", slog.Default())
	store := history.New(fs, "/state/chat_history.json", nil, seq, slog.Default(), history.DefaultOptions())

	toolRegistry := tools.NewRegistry(slog.Default())
	toolRegistry.MustRegister(RouteToAgentSpec(agentRegistry))

	cfg := Config{
		History:  store,
		Tools:    toolRegistry,
		Agents:   agentRegistry,
		Provider: &fakeProvider{client: client},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	return &fixture{
		orch:   New(cfg),
		store:  store,
		client: client,
		tools:  toolRegistry,
		agents: agentRegistry,
	}
}

func testAgents(t *testing.T, primaryTools ...string) *agents.Registry {
	t.Helper()
	configs := []agents.Config{
		{
			Name:         agents.PrimaryAgent,
			Model:        "test-model",
			SystemPrompt: "primary prompt",
			Tools:        primaryTools,
		},
		{
			Name:         "_cover_letter",
			Model:        "test-model",
			SystemPrompt: "cover letter prompt",
		},
		{
			Name:         "_data_dispatcher",
			Model:        "test-model",
			SystemPrompt: "dispatcher prompt",
		},
	}
	r, err := agents.NewRegistry(configs...)
	require.NoError(t, err)
	return r
}

func findRecords(store *history.Store, role string) []*history.Record {
	var out []*history.Record
	for _, rec := range store.Records() {
		if rec.Role == role {
			out = append(out, rec)
		}
	}
	return out
}

func TestChatPlainTurn(t *testing.T) {
	client := &fakeClient{model: "test-model", responses: []*aisdk.ChatCompletionResponse{
		textResponse("Hello! How can I help?"),
	}}
	f := newFixture(t, client, testAgents(t), nil)

	out := f.orch.Chat(context.Background(), "", "hello", ChatOptions{})
	assert.Equal(t, "Hello! How can I help?", out)

	// Exactly one model call, opening with the primary system prompt and
	// carrying the user's text.
	require.Len(t, client.requests, 1)
	input := client.requests[0].Messages
	require.NotEmpty(t, input)
	assert.Equal(t, "system", input[0].Role)
	assert.Equal(t, "primary prompt", input[0].Content.String())
	assert.Equal(t, "user", input[len(input)-1].Role)
	assert.Equal(t, "hello", input[len(input)-1].Content.String())

	// Both sides of the turn are in history.
	assert.Len(t, findRecords(f.store, "user"), 1)
	asst := findRecords(f.store, "assistant")
	require.Len(t, asst, 1)
	assert.Equal(t, "Hello! How can I help?", asst[0].Content.String())
	assert.Equal(t, "primary", asst[0].AssistantName)
}

func TestChatSingleToolCall(t *testing.T) {
	client := &fakeClient{model: "test-model", responses: []*aisdk.ChatCompletionResponse{
		toolCallResponse("call_1", "corpus_query", `{"query":"resume"}`),
		textResponse("Your resume lists five years of Go."),
	}}

	f := newFixture(t, client, testAgents(t, "corpus_query"), func(cfg *Config) {
		cfg.Caps = tools.Caps{MaxItems: 2, MaxTotalChars: 12000, MaxItemChars: 500}
	})
	f.tools.MustRegister(&tools.Spec{
		Name:   "corpus_query",
		Params: []tools.Param{{Name: "query", Type: "string", Required: true}},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			var hits []map[string]any
			for i := 0; i < 3; i++ {
				hits = append(hits, map[string]any{
					"rank":    i + 1,
					"content": strings.Repeat("x", 800),
				})
			}
			return hits, nil
		},
	})

	out := f.orch.Chat(context.Background(), "", "what is in my resume?", ChatOptions{})
	assert.Equal(t, "Your resume lists five years of Go.", out)
	require.Len(t, client.requests, 2)

	// The tool result was shrunk before logging: two items, each content
	// capped at 500 chars.
	toolRecs := findRecords(f.store, "tool")
	require.Len(t, toolRecs, 1)
	assert.Equal(t, "call_1", toolRecs[0].ToolCallID)
	assert.Equal(t, "corpus_query", toolRecs[0].Name)

	var hits []map[string]any
	require.NoError(t, json.Unmarshal([]byte(toolRecs[0].Content.String()), &hits))
	require.Len(t, hits, 2)
	for _, hit := range hits {
		content := hit["content"].(string)
		assert.LessOrEqual(t, len(content), 500+len("...[output truncated]"))
	}

	// The second request pairs the tool message with its call.
	second := client.requests[1].Messages
	var sawToolMsg bool
	for i, msg := range second {
		if msg.Role == "tool" {
			sawToolMsg = true
			assert.Equal(t, "call_1", msg.ToolCallID)
			require.Greater(t, i, 0)
			assert.NotEmpty(t, second[i-1].ToolCalls)
		}
	}
	assert.True(t, sawToolMsg)
}

func TestChatDeterministicPreRoute(t *testing.T) {
	client := &fakeClient{model: "test-model", responses: []*aisdk.ChatCompletionResponse{
		textResponse("Here is a draft cover letter."),
	}}
	f := newFixture(t, client, testAgents(t), nil)

	out := f.orch.Chat(context.Background(), "", "@cover_letter draft one for the Acme role", ChatOptions{})
	assert.Equal(t, "Here is a draft cover letter.", out)

	// The primary agent never ran: the one model call uses the specialist's
	// prompt and the mention-stripped question.
	require.Len(t, client.requests, 1)
	input := client.requests[0].Messages
	assert.Equal(t, "cover letter prompt", input[0].Content.String())
	assert.Equal(t, "draft one for the Acme role", input[len(input)-1].Content.String())
}

func TestChatPreRouteUnknownAgentFallsThrough(t *testing.T) {
	client := &fakeClient{model: "test-model", responses: []*aisdk.ChatCompletionResponse{
		textResponse("answered by primary"),
	}}
	f := newFixture(t, client, testAgents(t), nil)

	out := f.orch.Chat(context.Background(), "", "@nobody help me", ChatOptions{})
	assert.Equal(t, "answered by primary", out)
	require.Len(t, client.requests, 1)
	assert.Equal(t, "primary prompt", client.requests[0].Messages[0].Content.String())
}

func TestChatRouteToAgent(t *testing.T) {
	client := &fakeClient{model: "test-model", responses: []*aisdk.ChatCompletionResponse{
		toolCallResponse("call_r", RouteToAgentName,
			`{"target_agent":"data_dispatcher","user_question":"find my resume"}`),
		textResponse("Found two matching documents."),
	}}
	f := newFixture(t, client, testAgents(t, RouteToAgentName), nil)

	out := f.orch.Chat(context.Background(), "", "where is my resume?", ChatOptions{})
	assert.Equal(t, "Found two matching documents.", out)
	require.Len(t, client.requests, 2)

	// The routing call is acknowledged as a tool result.
	toolRecs := findRecords(f.store, "tool")
	require.Len(t, toolRecs, 1)
	assert.Equal(t, "Routing to _data_dispatcher", toolRecs[0].Content.String())

	// The second model call runs as the routed agent with the forwarded
	// question appended.
	second := client.requests[1].Messages
	assert.Equal(t, "dispatcher prompt", second[0].Content.String())
	assert.Equal(t, "find my resume", second[len(second)-1].Content.String())
}

func TestChatRouteToUnknownAgent(t *testing.T) {
	client := &fakeClient{model: "test-model", responses: []*aisdk.ChatCompletionResponse{
		toolCallResponse("call_r", RouteToAgentName,
			`{"target_agent":"ghost","user_question":"anything"}`),
		textResponse("Handled it myself."),
	}}
	f := newFixture(t, client, testAgents(t, RouteToAgentName), nil)

	out := f.orch.Chat(context.Background(), "", "route me", ChatOptions{})
	assert.Equal(t, "Handled it myself.", out)

	toolRecs := findRecords(f.store, "tool")
	require.Len(t, toolRecs, 1)
	assert.Equal(t, "Unknown target agent: ghost", toolRecs[0].Content.String())

	// No routing happened: both calls used the primary prompt.
	require.Len(t, client.requests, 2)
	assert.Equal(t, "primary prompt", client.requests[1].Messages[0].Content.String())
}

func TestChatToolFailureContinuesLoop(t *testing.T) {
	client := &fakeClient{model: "test-model", responses: []*aisdk.ChatCompletionResponse{
		toolCallResponse("call_1", "broken_tool", `{}`),
		textResponse("The tool failed; here is what I know anyway."),
	}}
	f := newFixture(t, client, testAgents(t, "broken_tool"), nil)
	f.tools.MustRegister(&tools.Spec{
		Name: "broken_tool",
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("boom")
		},
	})

	out := f.orch.Chat(context.Background(), "", "try the tool", ChatOptions{})
	assert.Equal(t, "The tool failed; here is what I know anyway.", out)

	toolRecs := findRecords(f.store, "tool")
	require.Len(t, toolRecs, 1)
	assert.Equal(t, "broken_tool error: boom", toolRecs[0].Content.String())
}

func TestChatDepthCapAbortsWithoutExtraCall(t *testing.T) {
	// The model asks for a tool every time; at cap 3 the loop runs exactly
	// three model calls and aborts before a fourth.
	var responses []*aisdk.ChatCompletionResponse
	for i := 0; i < 10; i++ {
		responses = append(responses, toolCallResponse(
			fmt.Sprintf("call_%d", i), "looping_tool", `{}`))
	}
	client := &fakeClient{model: "test-model", responses: responses}
	f := newFixture(t, client, testAgents(t, "looping_tool"), func(cfg *Config) {
		cfg.MaxDepth = 3
	})
	f.tools.MustRegister(&tools.Spec{
		Name: "looping_tool",
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			return "keep going", nil
		},
	})

	out := f.orch.Chat(context.Background(), "", "loop forever", ChatOptions{})
	assert.Equal(t, depthAbortMessage, out)
	assert.Len(t, client.requests, 3)

	// The abort is visible in history as the turn's final assistant message.
	asst := findRecords(f.store, "assistant")
	require.NotEmpty(t, asst)
	assert.Equal(t, depthAbortMessage, asst[len(asst)-1].Content.String())
}

func TestChatModelFailureReturnsMessage(t *testing.T) {
	client := &fakeClient{model: "test-model", err: errors.New("connection refused")}
	f := newFixture(t, client, testAgents(t), nil)

	out := f.orch.Chat(context.Background(), "", "hello", ChatOptions{})
	assert.Contains(t, out, "The model request failed")
	assert.Contains(t, out, "connection refused")

	asst := findRecords(f.store, "assistant")
	require.Len(t, asst, 1)
	assert.Equal(t, out, asst[0].Content.String())
}

func TestChatNoPrimaryAgent(t *testing.T) {
	registry, err := agents.NewRegistry(agents.Config{
		Name: "_cover_letter", Model: "m", SystemPrompt: "p",
	})
	require.NoError(t, err)
	client := &fakeClient{model: "test-model"}
	f := newFixture(t, client, registry, nil)

	out := f.orch.Chat(context.Background(), "", "hello", ChatOptions{})
	assert.Equal(t, "No primary agent is configured.", out)
	assert.Empty(t, client.requests)
}

func TestChatImagesBecomeParts(t *testing.T) {
	client := &fakeClient{model: "test-model", responses: []*aisdk.ChatCompletionResponse{
		textResponse("I see a screenshot of a job posting."),
	}}
	f := newFixture(t, client, testAgents(t), nil)

	f.orch.Chat(context.Background(), "", "what is this?", ChatOptions{
		Images: []string{"https://example.test/posting.png"},
	})

	users := findRecords(f.store, "user")
	require.Len(t, users, 1)
	assert.Equal(t, "img", users[0].Object)
	require.True(t, users[0].Content.IsParts())
	assert.Len(t, users[0].Content.PartList(), 2)
}

func TestChatToolChoiceAutoOnlyWithTools(t *testing.T) {
	client := &fakeClient{model: "test-model", responses: []*aisdk.ChatCompletionResponse{
		textResponse("ok"),
	}}
	f := newFixture(t, client, testAgents(t), nil)

	f.orch.Chat(context.Background(), "", "hello", ChatOptions{})
	require.Len(t, client.requests, 1)
	assert.Empty(t, client.requests[0].Tools)
	assert.Empty(t, client.requests[0].ToolChoice)
}

type fixedRetriever struct {
	background string
	err        error
	queries    []string
}

func (r *fixedRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	r.queries = append(r.queries, query)
	return r.background, r.err
}

func TestChatRetrievalContextOnOpeningStep(t *testing.T) {
	retriever := &fixedRetriever{background: "[1] resume.pdf\nGo developer since 2019"}
	client := &fakeClient{model: "test-model", responses: []*aisdk.ChatCompletionResponse{
		textResponse("ok"),
	}}
	f := newFixture(t, client, testAgents(t), func(cfg *Config) {
		cfg.Retriever = retriever
	})

	f.orch.Chat(context.Background(), "", "summarize my experience", ChatOptions{})

	require.Len(t, client.requests, 1)
	input := client.requests[0].Messages
	last := input[len(input)-1]
	assert.Equal(t, "system", last.Role)
	assert.Contains(t, last.Content.String(), "Background context from the local corpus:")
	assert.Contains(t, last.Content.String(), "resume.pdf")
	assert.Equal(t, []string{"summarize my experience"}, retriever.queries)
}

func TestChatRetrievalFailureIsNotFatal(t *testing.T) {
	retriever := &fixedRetriever{err: errors.New("corpus unavailable")}
	client := &fakeClient{model: "test-model", responses: []*aisdk.ChatCompletionResponse{
		textResponse("still fine"),
	}}
	f := newFixture(t, client, testAgents(t), func(cfg *Config) {
		cfg.Retriever = retriever
	})

	out := f.orch.Chat(context.Background(), "", "hello", ChatOptions{})
	assert.Equal(t, "still fine", out)
}
