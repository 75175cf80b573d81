package aisdk

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Part types accepted by the chat completions API.
const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// ContentPart is a single typed element of a multimodal message body.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL points at an image, either a remote URL or a data URI.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// MessageContent is the body of a message: on the wire it is either a plain
// JSON string or an array of typed parts, never anything else.
type MessageContent struct {
	text  string
	parts []ContentPart
}

// Text builds plain string content.
func Text(s string) MessageContent {
	return MessageContent{text: s}
}

// Parts builds multimodal content from typed parts.
func Parts(parts ...ContentPart) MessageContent {
	return MessageContent{parts: parts}
}

// TextPart builds a text content part.
func TextPart(s string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: s}
}

// ImagePart builds an image content part from a URL or data URI.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartTypeImageURL, ImageURL: &ImageURL{URL: url}}
}

// IsParts reports whether the content is a typed-parts list.
func (c MessageContent) IsParts() bool {
	return c.parts != nil
}

// IsEmpty reports whether the content carries no text and no parts.
func (c MessageContent) IsEmpty() bool {
	return c.text == "" && len(c.parts) == 0
}

// PartList returns the typed parts, or nil for string content.
func (c MessageContent) PartList() []ContentPart {
	return c.parts
}

// String flattens the content to plain text. Image parts render as a short
// placeholder so logs and history dumps stay readable.
func (c MessageContent) String() string {
	if c.parts == nil {
		return c.text
	}
	var sb strings.Builder
	for i, p := range c.parts {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch p.Type {
		case PartTypeText:
			sb.WriteString(p.Text)
		case PartTypeImageURL:
			if p.ImageURL != nil {
				sb.WriteString(fmt.Sprintf("[image: %s]", truncateURL(p.ImageURL.URL)))
			}
		default:
			sb.WriteString(fmt.Sprintf("[%s]", p.Type))
		}
	}
	return sb.String()
}

// MarshalJSON emits a JSON string for text content and an array for parts.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.parts != nil {
		return json.Marshal(c.parts)
	}
	return json.Marshal(c.text)
}

// UnmarshalJSON accepts either wire form. Anything that is neither a string
// nor a parts array is flattened to its JSON text so a malformed history file
// never produces unserializable content.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = MessageContent{text: s}
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err == nil {
		*c = MessageContent{parts: parts}
		return nil
	}
	if string(data) == "null" {
		*c = MessageContent{}
		return nil
	}
	*c = MessageContent{text: string(data)}
	return nil
}

func truncateURL(url string) string {
	const max = 64
	if len(url) <= max {
		return url
	}
	return url[:max] + "..."
}
