package jobtools

import (
	"github.com/corvid-labs/quill/src/agents"
	"github.com/corvid-labs/quill/src/corpus"
	"github.com/corvid-labs/quill/src/orchestrator"
	"github.com/corvid-labs/quill/src/tools"
)

// RegisterAll registers the built-in tools. The corpus store may be nil when
// no corpus database is available; corpus_query is then skipped and agents
// fall back to fetch and routing only.
func RegisterAll(registry *tools.Registry, store *corpus.Store, agentRegistry *agents.Registry) error {
	if store != nil {
		if err := registry.Register(CorpusQuerySpec(store)); err != nil {
			return err
		}
	}
	if err := registry.Register(FetchPostingSpec()); err != nil {
		return err
	}
	return registry.Register(orchestrator.RouteToAgentSpec(agentRegistry))
}
