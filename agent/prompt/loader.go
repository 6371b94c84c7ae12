package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/assistant.txt
var assistantRaw string

// Assistant returns the system prompt for the mortgage assistant. The embed
// is compile-time; trimming is cheap, so this is safe to call per turn.
func Assistant() string {
	return strings.TrimSpace(assistantRaw)
}
