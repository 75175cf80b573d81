package orchestrator

import (
	"regexp"
	"strings"

	"github.com/corvid-labs/quill/src/agents"
)

// leadingMention matches an explicit agent address at the start of the user
// text, e.g. "@cover_letter draft three bullets". Inline mentions are
// deliberately not matched.
var leadingMention = regexp.MustCompile(`^@(_?[A-Za-z0-9][A-Za-z0-9_-]*)`)

// preRoute checks the user's latest text for an explicit routing hint and,
// when the addressed agent exists, short-circuits the primary-agent call.
// It never fails into the calling path; anything unparseable disables the
// shortcut.
func (o *Orchestrator) preRoute(text string) (agents.Config, string, bool) {
	trimmed := strings.TrimSpace(text)
	m := leadingMention.FindStringSubmatch(trimmed)
	if m == nil {
		return agents.Config{}, "", false
	}
	cfg, ok := o.agents.Get(m[1])
	if !ok {
		return agents.Config{}, "", false
	}
	rest := strings.TrimSpace(trimmed[len(m[0]):])
	return cfg, rest, true
}
