package classify

import (
	"sort"

	"github.com/AbdouB/stubkeeper/internal/models"
)

// DuplicateGroup is a hand-curated set of stub names that cover the same
// functional concern
type DuplicateGroup struct {
	Label   string   `json:"label"`
	Members []string `json:"members"`
}

// DefaultDuplicateGroups is the curated table used when config supplies none
var DefaultDuplicateGroups = []DuplicateGroup{
	{"Directory structure refactoring", []string{"coderef-directory-rename", "work-order-folder-rename"}},
	{"Command renaming", []string{"rename-execute-plan-to-align-plan", "rename-start-feature-command"}},
	{"Scanner configuration", []string{"scanner-output-validation", "scanner-python-detection", "scanner-script-path-config"}},
	{"Scriptboard testing", []string{"websocket-live-update-test", "scriptboard-endpoints-test"}},
	{"Testing infrastructure", []string{"test-and-fix-emojis", "test-stub-example", "testing-brief-entry-point"}},
	{"Docs consolidation", []string{"mcp-docs-workflow-refactor", "consolidate-foundation-docs-workflow"}},
}

// isDuplicate reports whether another loaded member of one of name's groups
// is at least as urgent. Equal ranks flag both members.
func isDuplicate(groups []DuplicateGroup, name string, s *models.Stub, peers Peers) bool {
	ours := s.Priority.Rank()
	for _, g := range groups {
		if len(g.Members) < 2 || !g.has(name) {
			continue
		}
		for _, other := range g.Members {
			if other == name {
				continue
			}
			peer, ok := peers[other]
			if !ok || peer == nil {
				continue
			}
			if peer.Priority.Rank() <= ours {
				return true
			}
		}
	}
	return false
}

func (g DuplicateGroup) has(name string) bool {
	for _, m := range g.Members {
		if m == name {
			return true
		}
	}
	return false
}

func sortedEntries(entries []*models.Entry) []*models.Entry {
	out := append([]*models.Entry(nil), entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
