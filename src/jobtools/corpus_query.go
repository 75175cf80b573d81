// Package jobtools provides the built-in tool implementations the agents
// call: corpus retrieval and job-posting fetching.
package jobtools

import (
	"context"
	"fmt"

	"github.com/corvid-labs/quill/src/corpus"
	"github.com/corvid-labs/quill/src/tools"
)

// CorpusQueryName is the retrieval tool.
const CorpusQueryName = "corpus_query"

// CorpusQuerySpec returns the registrable spec for keyword retrieval against
// the local document corpus.
func CorpusQuerySpec(store *corpus.Store) *tools.Spec {
	return &tools.Spec{
		Name: CorpusQueryName,
		Description: "Search the user's local document corpus (resumes, past " +
			"cover letters, project notes) and return the best matching passages.",
		Params: []tools.Param{
			{
				Name:        "query",
				Type:        "string",
				Description: "Keywords to search for",
				Required:    true,
			},
			{
				Name:        "k",
				Type:        "integer",
				Description: "Number of passages to return",
				Default:     3,
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return nil, fmt.Errorf("query is required")
			}
			k := intArg(args, "k", 3)

			hits, err := store.Search(ctx, query, k)
			if err != nil {
				return nil, err
			}
			if len(hits) == 0 {
				return "No matching documents.", nil
			}
			return hits, nil
		},
	}
}

// intArg reads an integer argument that JSON decoding may have produced as a
// float64.
func intArg(args map[string]any, name string, fallback int) int {
	switch v := args[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
