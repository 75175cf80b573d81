// Package tools is the single source of truth for callable tools: their
// parameter schemas, implementations, and callbacks, plus the wire-format
// descriptors consumed by the model.
package tools

import (
	"context"

	"github.com/corvid-labs/quill/src/aisdk"
	jsonschema "github.com/swaggest/jsonschema-go"
)

// Func is a tool implementation. The returned value may be a string, a list,
// or a map; list and map results are shrunk before being fed back to the
// model.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Param describes a single tool parameter.
type Param struct {
	Name        string
	Type        string // "string", "integer", "number", "boolean", "array", "object"
	Description string
	Required    bool
	Enum        []string
	// Items is the element type for array parameters. Empty means string.
	Items string
	// Default is supplied to the implementation when an optional parameter
	// is absent from the call arguments.
	Default any
}

// Spec describes one registered tool.
type Spec struct {
	Name        string
	Description string
	Params      []Param
	Fn          Func
	// OnCall runs before the implementation. Errors in callbacks are logged
	// and ignored.
	OnCall func(name string, args map[string]any)
	// OnResult runs after the implementation, success or not.
	OnResult func(name string, result any, toolCallID string)
}

// Descriptor produces the wire-format tool descriptor.
func (s *Spec) Descriptor() *aisdk.ChatTool {
	properties := make(map[string]jsonschema.SchemaOrBool, len(s.Params))
	var required []string

	for _, p := range s.Params {
		properties[p.Name] = jsonschema.SchemaOrBool{TypeObject: p.schema()}
		if p.Required {
			required = append(required, p.Name)
		}
	}

	objType := jsonschema.SimpleType("object")
	return &aisdk.ChatTool{
		Type: "function",
		Function: aisdk.ChatToolFunction{
			Name:        s.Name,
			Description: s.Description,
			Parameters: &jsonschema.Schema{
				Type:       &jsonschema.Type{SimpleTypes: &objType},
				Properties: properties,
				Required:   required,
			},
		},
	}
}

func (p *Param) schema() *jsonschema.Schema {
	typ := p.Type
	if typ == "" {
		typ = "string"
	}
	simple := jsonschema.SimpleType(typ)
	schema := &jsonschema.Schema{
		Type: &jsonschema.Type{SimpleTypes: &simple},
	}
	if p.Description != "" {
		desc := p.Description
		schema.Description = &desc
	}
	if len(p.Enum) > 0 {
		enum := make([]interface{}, len(p.Enum))
		for i, v := range p.Enum {
			enum[i] = v
		}
		schema.Enum = enum
	}
	if p.Default != nil {
		def := p.Default
		schema.Default = &def
	}
	if typ == "array" {
		// The wire format rejects arrays without an items schema.
		itemType := p.Items
		if itemType == "" {
			itemType = "string"
		}
		simpleItem := jsonschema.SimpleType(itemType)
		schema.Items = &jsonschema.Items{
			SchemaOrBool: &jsonschema.SchemaOrBool{
				TypeObject: &jsonschema.Schema{
					Type: &jsonschema.Type{SimpleTypes: &simpleItem},
				},
			},
		}
	}
	return schema
}
