package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// StoragePaths contains the canonical file locations for persisted state.
// Legacy paths are read-only sources for a one-time history migration.
type StoragePaths struct {
	HistoryPath        string
	LegacyHistoryPaths []string
	CounterPath        string
	CorpusPath         string
	LogDir             string
}

// DefaultStoragePaths resolves the storage layout under the XDG state home.
func DefaultStoragePaths() StoragePaths {
	stateDir := filepath.Join(xdg.StateHome, "quill")
	return StoragePaths{
		HistoryPath: filepath.Join(stateDir, "chat_history.json"),
		LegacyHistoryPaths: []string{
			filepath.Join(xdg.DataHome, "quill", "chat_history.json"),
			filepath.Join(xdg.Home, ".quill_history.json"),
		},
		CounterPath: filepath.Join(stateDir, "id_counter.txt"),
		CorpusPath:  filepath.Join(stateDir, "corpus.db"),
		LogDir:      filepath.Join(stateDir, "logs"),
	}
}
