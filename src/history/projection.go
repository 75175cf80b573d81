package history

import (
	"github.com/corvid-labs/quill/src/aisdk"
)

// defaultDepth is the window used when the caller asks for a non-positive
// depth.
const defaultDepth = 15

// truncationMarker terminates clamped content so the model knows the text
// was cut.
const truncationMarker = "...[truncated]"

// ProjectOptions controls how the LLM input window is built.
type ProjectOptions struct {
	// Depth is the number of trailing messages to keep. Non-positive values
	// use the default window.
	Depth int
	// IncludeTools retains assistant tool_calls together with their paired
	// tool results. Without it, assistant messages are projected content-only
	// and tool records are dropped.
	IncludeTools bool
	// ExcludeRole drops messages with the given role, for callers that build
	// their own system prefix.
	ExcludeRole string
}

// Project builds the bounded, LLM-safe window of the current thread. The
// result upholds the wire protocol invariants: every tool message is paired
// with a preceding assistant tool_call, assistant tool_calls without a result
// are removed, and the window never starts with a tool message.
func (s *Store) Project(opts ProjectOptions) []*aisdk.Message {
	depth := opts.Depth
	if depth <= 0 {
		depth = defaultDepth
	}

	s.mu.Lock()
	records := make([]*Record, len(s.records))
	copy(records, s.records)
	thread := s.threadID
	maxChars := s.opts.MaxContentChars
	s.mu.Unlock()

	// First pass: index tool results by call id across the full history, so
	// pairing survives windowing.
	toolResults := make(map[string]*aisdk.Message)
	for _, rec := range records {
		if rec.Role != "tool" || rec.ToolCallID == "" {
			continue
		}
		toolResults[rec.ToolCallID] = &aisdk.Message{
			Role:       "tool",
			Content:    clampContent(rec.Content, maxChars),
			ToolCallID: rec.ToolCallID,
			Name:       rec.Name,
		}
	}

	// Second pass: project non-tool records in order, splicing tool results
	// in directly behind the assistant message that requested them.
	var out []*aisdk.Message
	for _, rec := range records {
		if rec.ThreadID != thread {
			continue
		}
		if rec.Role == "tool" {
			continue
		}
		if opts.ExcludeRole != "" && rec.Role == opts.ExcludeRole {
			continue
		}

		msg := &aisdk.Message{
			Role:    rec.Role,
			Content: clampContent(rec.Content, maxChars),
		}

		if rec.Role == "assistant" && len(rec.ToolCalls) > 0 && opts.IncludeTools {
			var surviving []aisdk.ToolCall
			for _, tc := range rec.ToolCalls {
				if _, ok := toolResults[tc.ID]; ok {
					surviving = append(surviving, tc)
				}
			}
			msg.ToolCalls = surviving
			out = append(out, msg)
			for _, tc := range surviving {
				out = append(out, toolResults[tc.ID])
			}
			continue
		}

		out = append(out, msg)
	}

	if len(out) > depth {
		out = out[len(out)-depth:]
	}

	// A request must never open with a tool result.
	for len(out) > 0 && out[0].Role == "tool" {
		out = out[1:]
	}
	return out
}

// clampContent bounds text content at maxChars with a truncation marker.
// Typed-parts content passes through unchanged; it is already wire-shaped.
func clampContent(c aisdk.MessageContent, maxChars int) aisdk.MessageContent {
	if c.IsParts() {
		return c
	}
	text := c.String()
	if maxChars > 0 && len(text) > maxChars {
		return aisdk.Text(text[:maxChars] + truncationMarker)
	}
	return aisdk.Text(text)
}
