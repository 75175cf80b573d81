// Package config resolves runtime settings from the environment and the
// XDG base directories.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names.
const (
	EnvAPIKey              = "OPENAI_API_KEY"
	EnvAutosave            = "HISTORY_AUTOSAVE"
	EnvAutosaveEveryN      = "HISTORY_AUTOSAVE_EVERY_N"
	EnvAutosaveMinSeconds  = "HISTORY_AUTOSAVE_MIN_SECONDS"
	EnvDisableHistoryFlush = "DISABLE_HISTORY_FLUSH"
	EnvMaxToolDepth        = "MAX_TOOL_DEPTH"
	EnvToolMaxItems        = "TOOL_MAX_ITEMS"
	EnvToolMaxTotalChars   = "TOOL_MAX_TOTAL_CHARS"
	EnvToolMaxItemChars    = "TOOL_MAX_ITEM_CHARS"
)

// Settings holds everything the core reads from the environment. All fields
// have working defaults; only the API key has none.
type Settings struct {
	APIKey string

	Autosave            bool
	AutosaveEveryN      int
	AutosaveMinInterval time.Duration
	DisableHistoryFlush bool

	MaxToolDepth int

	ToolMaxItems      int
	ToolMaxTotalChars int
	ToolMaxItemChars  int
}

// FromEnv reads settings, applying defaults for anything unset or
// unparseable.
func FromEnv() Settings {
	return Settings{
		APIKey: os.Getenv(EnvAPIKey),

		Autosave:            envBool(EnvAutosave, true),
		AutosaveEveryN:      envInt(EnvAutosaveEveryN, 8),
		AutosaveMinInterval: time.Duration(envInt(EnvAutosaveMinSeconds, 3)) * time.Second,
		DisableHistoryFlush: envBool(EnvDisableHistoryFlush, false),

		MaxToolDepth: envInt(EnvMaxToolDepth, 30),

		ToolMaxItems:      envInt(EnvToolMaxItems, 5),
		ToolMaxTotalChars: envInt(EnvToolMaxTotalChars, 12000),
		ToolMaxItemChars:  envInt(EnvToolMaxItemChars, 2000),
	}
}

func envBool(name string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
