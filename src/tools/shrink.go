package tools

import (
	"encoding/json"
	"fmt"
)

// shrinkMarker terminates hard-truncated output.
const shrinkMarker = "...[output truncated]"

// Caps bounds tool output before it is fed back to the model. The full
// result may still be retained elsewhere; these caps apply only to the wire.
type Caps struct {
	// MaxItems keeps at most this many elements of a list result.
	MaxItems int
	// MaxTotalChars bounds the serialized result as a whole.
	MaxTotalChars int
	// MaxItemChars bounds the "content" field of each list element.
	MaxItemChars int
}

// DefaultCaps returns the shrink defaults.
func DefaultCaps() Caps {
	return Caps{
		MaxItems:      5,
		MaxTotalChars: 12000,
		MaxItemChars:  2000,
	}
}

// Shrink bounds a tool result for LLM consumption. Inputs already within the
// caps come back unchanged, so shrinking an in-cap result twice is a no-op.
func Shrink(result any, caps Caps) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return truncate(v, caps.MaxTotalChars)
	}

	doc := toDocument(result)

	if list, ok := doc.([]any); ok {
		if caps.MaxItems > 0 && len(list) > caps.MaxItems {
			list = list[:caps.MaxItems]
		}
		for _, item := range list {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if content, ok := obj["content"].(string); ok {
				obj["content"] = truncate(content, caps.MaxItemChars)
			}
		}
		return serialize(list, caps.MaxTotalChars)
	}

	if obj, ok := doc.(map[string]any); ok {
		return serialize(obj, caps.MaxTotalChars)
	}

	return truncate(fmt.Sprint(result), caps.MaxTotalChars)
}

// toDocument normalizes a result to generic JSON types so typed slices and
// structs shrink by the same rules as plain maps.
func toDocument(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%T>", v)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return string(data)
	}
	return doc
}

func serialize(v any, maxChars int) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%T>", v)
	}
	return truncate(string(data), maxChars)
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	return s[:maxChars] + shrinkMarker
}
