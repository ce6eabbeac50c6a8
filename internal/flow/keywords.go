// internal/flow/keywords.go
package flow

import (
	"strings"

	"github.com/evoflow/backend/internal/model"
)

// Keywords collects the trigger keywords of a flow: every trigger node's
// comma-separated list, trimmed and lowercased.
func Keywords(f *model.Flow) []string {
	var out []string
	for _, n := range f.Nodes {
		if n.Kind != model.NodeTrigger {
			continue
		}
		for _, k := range strings.Split(n.Keywords, ",") {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				out = append(out, k)
			}
		}
	}
	return out
}

// MatchesKeyword reports whether the message text contains any keyword,
// case-insensitively.
func MatchesKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
