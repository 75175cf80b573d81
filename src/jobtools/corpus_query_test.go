package jobtools

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/corvid-labs/quill/src/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededCorpus(t *testing.T) *corpus.Store {
	t.Helper()
	store, err := corpus.Open(filepath.Join(t.TempDir(), "corpus.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.AddDocument(context.Background(), &corpus.Document{
		Source: "resume.pdf", Title: "Resume", Page: 1,
		Content: "Backend Go engineer, five years of experience.",
	}))
	return store
}

func TestCorpusQueryReturnsHits(t *testing.T) {
	spec := CorpusQuerySpec(seededCorpus(t))

	result, err := spec.Fn(context.Background(), map[string]any{"query": "go engineer", "k": float64(5)})
	require.NoError(t, err)

	hits, ok := result.([]corpus.SearchHit)
	require.True(t, ok)
	require.Len(t, hits, 1)
	assert.Equal(t, "Resume", hits[0].Title)
}

func TestCorpusQueryNoMatches(t *testing.T) {
	spec := CorpusQuerySpec(seededCorpus(t))

	result, err := spec.Fn(context.Background(), map[string]any{"query": "unrelated topic"})
	require.NoError(t, err)
	assert.Equal(t, "No matching documents.", result)
}

func TestCorpusQueryRequiresQuery(t *testing.T) {
	spec := CorpusQuerySpec(seededCorpus(t))

	_, err := spec.Fn(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestIntArg(t *testing.T) {
	assert.Equal(t, 5, intArg(map[string]any{"k": float64(5)}, "k", 3))
	assert.Equal(t, 5, intArg(map[string]any{"k": 5}, "k", 3))
	assert.Equal(t, 3, intArg(map[string]any{"k": "five"}, "k", 3))
	assert.Equal(t, 3, intArg(map[string]any{}, "k", 3))
}
