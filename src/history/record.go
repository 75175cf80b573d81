// Package history is the append-only, persisted log of every message
// exchanged with the assistant, plus the projection layer that turns it into
// LLM-safe input.
package history

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/corvid-labs/quill/src/aisdk"
)

// Record is the canonical persisted message. Records are never mutated after
// creation; edits upstream produce new records.
type Record struct {
	ID            int64                `json:"message_id"`
	Role          string               `json:"role"`
	Content       aisdk.MessageContent `json:"content"`
	ThreadID      int64                `json:"thread_id"`
	Date          string               `json:"date"`
	Time          string               `json:"time"`
	AssistantName string               `json:"assistant_name,omitempty"`
	AssistantID   string               `json:"assistant_id,omitempty"`
	ToolCalls     []aisdk.ToolCall     `json:"tool_calls,omitempty"`
	ToolCallID    string               `json:"tool_call_id,omitempty"`
	Name          string               `json:"name,omitempty"`
	Object        string               `json:"object,omitempty"`
	Dev           bool                 `json:"dev,omitempty"`
	Sys           bool                 `json:"sys,omitempty"`
}

// Fields carries the optional caller-supplied attributes of a new record.
type Fields struct {
	AssistantName string
	AssistantID   string
	ToolCalls     []aisdk.ToolCall
	ToolCallID    string
	Name          string
	Object        string
	Dev           bool
	Sys           bool
}

// normalize coerces caller-supplied fields into wire-safe shape: names and
// call ids are trimmed strings, every tool call carries the "function" type,
// and arguments that are not valid JSON are re-encoded as a JSON string so
// the record always serializes.
func (r *Record) normalize() {
	r.ToolCallID = strings.TrimSpace(r.ToolCallID)
	r.Name = strings.TrimSpace(r.Name)
	for i := range r.ToolCalls {
		tc := &r.ToolCalls[i]
		if tc.Type == "" {
			tc.Type = "function"
		}
		if len(tc.Function.Arguments) == 0 {
			tc.Function.Arguments = json.RawMessage("{}")
			continue
		}
		if !json.Valid(tc.Function.Arguments) {
			quoted, err := json.Marshal(string(tc.Function.Arguments))
			if err != nil {
				quoted = json.RawMessage("{}")
			}
			tc.Function.Arguments = quoted
		}
	}
}

// stamp fills the human-readable wall-clock fields. They are informational
// only; ordering is defined by the message id.
func (r *Record) stamp(now time.Time) {
	r.Date = now.Format("2006-01-02")
	r.Time = now.Format("15:04:05")
}
