// Package app wires the core services together: history, id sequence,
// corpus, tool and agent registries, and the orchestrator.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/corvid-labs/quill/src/agents"
	"github.com/corvid-labs/quill/src/aisdk"
	"github.com/corvid-labs/quill/src/config"
	"github.com/corvid-labs/quill/src/corpus"
	"github.com/corvid-labs/quill/src/history"
	"github.com/corvid-labs/quill/src/idgen"
	"github.com/corvid-labs/quill/src/jobtools"
	"github.com/corvid-labs/quill/src/oaiclient"
	"github.com/corvid-labs/quill/src/orchestrator"
	"github.com/corvid-labs/quill/src/tools"
	"github.com/spf13/afero"
)

// App holds the initialized services.
type App struct {
	History      *history.Store
	Sequence     *idgen.Sequence
	Corpus       *corpus.Store // nil when the corpus db could not be opened
	Tools        *tools.Registry
	Agents       *agents.Registry
	Orchestrator *orchestrator.Orchestrator
	Settings     config.Settings
	Paths        config.StoragePaths
	Logger       *slog.Logger
}

// Config holds overrides for creating a new App instance.
type Config struct {
	APIKey  string
	BaseURL string
	Logger  *slog.Logger
	// Paths overrides the default storage layout, mainly for tests.
	Paths *config.StoragePaths
}

// New creates an App with all services initialized. The corpus database is
// optional: a failure to open it degrades retrieval, not the whole app.
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	settings := config.FromEnv()
	if cfg.APIKey != "" {
		settings.APIKey = cfg.APIKey
	}

	paths := config.DefaultStoragePaths()
	if cfg.Paths != nil {
		paths = *cfg.Paths
	}

	fs := afero.NewOsFs()
	if err := fs.MkdirAll(filepath.Dir(paths.HistoryPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	seq := idgen.NewSequence(fs, paths.CounterPath, logger)

	store := history.New(fs, paths.HistoryPath, paths.LegacyHistoryPaths, seq, logger, history.Options{
		Autosave:            settings.Autosave,
		AutosaveEveryN:      settings.AutosaveEveryN,
		AutosaveMinInterval: settings.AutosaveMinInterval,
		DisableFlush:        settings.DisableHistoryFlush,
	})
	store.Load()

	var corpusStore *corpus.Store
	if cs, err := corpus.Open(paths.CorpusPath, logger); err != nil {
		logger.Warn("corpus unavailable, retrieval disabled", "path", paths.CorpusPath, "error", err)
	} else {
		corpusStore = cs
	}

	agentRegistry := agents.Builtin()

	toolRegistry := tools.NewRegistry(logger)
	if err := jobtools.RegisterAll(toolRegistry, corpusStore, agentRegistry); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	provider := oaiclient.NewClient(aisdk.ClientConfig{
		APIKey:  settings.APIKey,
		BaseURL: cfg.BaseURL,
		Logger:  logger,
	})

	var retriever orchestrator.Retriever
	if corpusStore != nil {
		retriever = corpusStore
	}

	orch := orchestrator.New(orchestrator.Config{
		History:   store,
		Tools:     toolRegistry,
		Agents:    agentRegistry,
		Provider:  provider,
		Retriever: retriever,
		Caps: tools.Caps{
			MaxItems:      settings.ToolMaxItems,
			MaxTotalChars: settings.ToolMaxTotalChars,
			MaxItemChars:  settings.ToolMaxItemChars,
		},
		MaxDepth: settings.MaxToolDepth,
		Logger:   logger,
	})

	return &App{
		History:      store,
		Sequence:     seq,
		Corpus:       corpusStore,
		Tools:        toolRegistry,
		Agents:       agentRegistry,
		Orchestrator: orch,
		Settings:     settings,
		Paths:        paths,
		Logger:       logger,
	}, nil
}

// Close flushes history and releases resources.
func (a *App) Close() error {
	if err := a.History.Flush(); err != nil {
		a.Logger.Warn("failed to flush history on shutdown", "error", err)
	}
	if a.Corpus != nil {
		return a.Corpus.Close()
	}
	return nil
}
