// Package aisdk defines the OpenAI-style chat completion wire types shared by
// the orchestration core and the model client.
package aisdk

import (
	"encoding/json"
	"log/slog"
	"time"

	jsonschema "github.com/swaggest/jsonschema-go"
)

// Message represents a single message in a chat completion request or response.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
	// Name identifies the tool on tool-role messages.
	Name string `json:"name,omitempty"`
	// ToolCallID references the originating call on tool-role messages.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// ToolCalls contains function calls requested by the assistant.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// HasToolCalls reports whether the assistant requested tool execution.
func (m *Message) HasToolCalls() bool {
	return m != nil && len(m.ToolCalls) > 0
}

// ToolCall represents a function call request from the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // always "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall contains the function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ParseArguments decodes the call arguments into a generic map. Empty or
// malformed argument payloads decode to an empty map rather than an error so
// a confused model never breaks the tool loop.
func (fc *FunctionCall) ParseArguments(logger *slog.Logger) map[string]any {
	args := map[string]any{}
	if len(fc.Arguments) == 0 {
		return args
	}
	if err := json.Unmarshal(fc.Arguments, &args); err != nil {
		if logger != nil {
			logger.Warn("invalid tool call arguments", "tool", fc.Name, "error", err)
		}
		return map[string]any{}
	}
	return args
}

// ChatTool represents a tool in the format expected by chat completion APIs.
type ChatTool struct {
	Type     string           `json:"type"` // always "function"
	Function ChatToolFunction `json:"function"`
}

// ChatToolFunction is the function definition within a tool descriptor.
type ChatToolFunction struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// ChatCompletionRequest represents a request to the chat completions endpoint.
type ChatCompletionRequest struct {
	Model       string      `json:"model"`
	Messages    []*Message  `json:"messages"`
	Temperature *float64    `json:"temperature,omitempty"`
	MaxTokens   *int        `json:"max_tokens,omitempty"`
	Tools       []*ChatTool `json:"tools,omitempty"`
	ToolChoice  string      `json:"tool_choice,omitempty"` // "auto", "none", or a tool name
}

// ChatCompletionResponse represents a response from the chat completions endpoint.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice represents a single completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Error represents an API error response.
type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

// ErrorResponse wraps an error from the API.
type ErrorResponse struct {
	Error Error `json:"error"`
}

// ClientConfig holds the configuration for model clients.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	RetryCount int
	RetryDelay time.Duration
	Logger     *slog.Logger
}
