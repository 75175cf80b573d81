package tools

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoSpec(name string) *Spec {
	return &Spec{
		Name:        name,
		Description: "echoes its input",
		Params: []Param{
			{Name: "text", Type: "string", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry(slog.Default())
	require.NoError(t, r.Register(echoSpec("echo")))
	assert.Error(t, r.Register(echoSpec("echo")))
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	r := NewRegistry(slog.Default())
	assert.Error(t, r.Register(&Spec{}))
	assert.Error(t, r.Register(nil))
}

func TestExecuteMissingTool(t *testing.T) {
	r := NewRegistry(slog.Default())
	result := r.Execute(context.Background(), "nope", nil, "call_1")
	assert.Equal(t, "Tool not found: nope", result)
}

func TestExecuteReturnsErrorString(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.MustRegister(&Spec{
		Name: "broken_tool",
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("boom")
		},
	})

	result := r.Execute(context.Background(), "broken_tool", nil, "call_1")
	assert.Equal(t, "broken_tool error: boom", result)
}

func TestExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.MustRegister(&Spec{
		Name: "panicky",
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			panic("unexpected")
		},
	})

	result := r.Execute(context.Background(), "panicky", nil, "call_1")
	assert.Equal(t, "panicky error: unexpected", result)
}

func TestExecuteFillsDefaults(t *testing.T) {
	r := NewRegistry(slog.Default())
	var seen map[string]any
	r.MustRegister(&Spec{
		Name: "search",
		Params: []Param{
			{Name: "query", Type: "string", Required: true},
			{Name: "k", Type: "integer", Default: 3},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			seen = args
			return "ok", nil
		},
	})

	r.Execute(context.Background(), "search", map[string]any{"query": "go"}, "call_1")
	assert.Equal(t, "go", seen["query"])
	assert.Equal(t, 3, seen["k"])
}

func TestExecuteDropsUndeclaredParams(t *testing.T) {
	r := NewRegistry(slog.Default())
	var seen map[string]any
	r.MustRegister(&Spec{
		Name:   "strict",
		Params: []Param{{Name: "known", Type: "string"}},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			seen = args
			return "ok", nil
		},
	})

	r.Execute(context.Background(), "strict", map[string]any{
		"known":   "yes",
		"unknown": "should not pass",
	}, "call_1")
	assert.Equal(t, "yes", seen["known"])
	assert.NotContains(t, seen, "unknown")
}

func TestCallbacksFireAndPanicsAreContained(t *testing.T) {
	r := NewRegistry(slog.Default())
	var calls []string
	r.MustRegister(&Spec{
		Name: "observed",
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			return "result", nil
		},
		OnCall: func(name string, args map[string]any) {
			calls = append(calls, "on_call:"+name)
			panic("callback panic must not escape")
		},
		OnResult: func(name string, result any, toolCallID string) {
			calls = append(calls, "on_result:"+toolCallID)
		},
	})

	result := r.Execute(context.Background(), "observed", nil, "call_7")
	assert.Equal(t, "result", result)
	assert.Equal(t, []string{"on_call:observed", "on_result:call_7"}, calls)
}

func TestDescriptorsSkipUnknownNames(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.MustRegister(echoSpec("echo"))

	descs := r.Descriptors([]string{"echo", "ghost"})
	require.Len(t, descs, 1)
	assert.Equal(t, "echo", descs[0].Function.Name)
}

func TestDescriptorSchema(t *testing.T) {
	spec := &Spec{
		Name:        "fetch_posting",
		Description: "fetch a job posting",
		Params: []Param{
			{Name: "url", Type: "string", Description: "posting url", Required: true},
			{Name: "format", Type: "string", Enum: []string{"markdown", "text", "html"}, Default: "markdown"},
			{Name: "selectors", Type: "array"},
		},
	}

	desc := spec.Descriptor()
	assert.Equal(t, "function", desc.Type)
	assert.Equal(t, "fetch_posting", desc.Function.Name)

	params := desc.Function.Parameters
	require.NotNil(t, params)
	assert.Equal(t, []string{"url"}, params.Required)
	require.Contains(t, params.Properties, "url")
	require.Contains(t, params.Properties, "format")

	format := params.Properties["format"].TypeObject
	require.NotNil(t, format)
	assert.Len(t, format.Enum, 3)
	require.NotNil(t, format.Default)
	assert.Equal(t, "markdown", *format.Default)

	// Array parameters always carry an items schema.
	selectors := params.Properties["selectors"].TypeObject
	require.NotNil(t, selectors)
	require.NotNil(t, selectors.Items)
	require.NotNil(t, selectors.Items.SchemaOrBool)
}
