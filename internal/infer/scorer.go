// Package infer guesses which downstream project a stub belongs to from
// keyword hits in its name and description.
package infer

import (
	"sort"
	"strings"
)

// UnknownTarget is force-assigned to stubs known to be unresolvable
const UnknownTarget = "unknown"

// ProjectKeywords maps a project label to the keywords that suggest it
type ProjectKeywords struct {
	Project  string   `json:"project"`
	Keywords []string `json:"keywords"`
}

// DefaultKeywords is the built-in keyword table
var DefaultKeywords = []ProjectKeywords{
	{"coderef-dashboard", []string{"dashboard", "widget", "ui", "frontend", "tracking-widget"}},
	{"assistant", []string{"orchestrator", "assistant", "terminal", "workorder-handoff", "stub-"}},
	{"scriptboard", []string{"scriptboard", "clipboard", "companion"}},
	{"gridiron", []string{"gridiron", "nfl", "franchise", "team-page"}},
	{"scrapper", []string{"scrapper", "scraping", "data-collection"}},
	{"noted", []string{"noted", "notes", "markdown"}},
	{"coderef-workflow", []string{"workflow", "create-plan", "execute-plan", "deliverables", "archive-feature"}},
	{"coderef-docs", []string{"docs", "documentation", "foundation-docs", "standards", "changelog"}},
	{"coderef-context", []string{"coderef-context", "context", "analysis", "complexity"}},
	{"personas-mcp", []string{"persona", "agent", "role-context"}},
	{"coderef-mcp", []string{"coderef-mcp", "coderef-system"}},
	{"multi-tenant", []string{"multi-tenant", "saas", "business-dash"}},
	{"app-documents", []string{"app-documents", "documents"}},
}

// DefaultUnknownStubs are stubs a previous inference pass could not place
var DefaultUnknownStubs = []string{
	"ai-video-gen",
	"coderef-directory-rename",
	"coderef-tracking-api-mvp",
	"connection-to-all-llm",
	"consolidate-project-directories",
	"git-libraries",
	"mcp-config-investigation",
	"mcp-docs-workflow-refactor",
	"mcp-integrations",
	"mcp-usage-tracker",
	"organize-and-consolidate",
	"railway-config",
	"remove-utility-personas",
	"rename-start-feature-command",
	"reorganize-gits-projects",
	"track-and-note-commands",
	"work-order-folder-rename",
}

// Match is one project's score for a piece of text
type Match struct {
	Project string   `json:"project"`
	Score   int      `json:"score"`
	Hits    []string `json:"hits"`
}

// Scorer ranks projects by keyword hits
type Scorer struct {
	table []ProjectKeywords
}

// NewScorer creates a scorer over table, or DefaultKeywords when nil
func NewScorer(table []ProjectKeywords) *Scorer {
	if table == nil {
		table = DefaultKeywords
	}
	return &Scorer{table: table}
}

// Rank scores every project against name and description. Each keyword
// counts once if it appears anywhere in the combined lower-cased text. Only
// projects with at least one hit are returned, best first; equal scores are
// ordered by project label.
func (s *Scorer) Rank(name, description string) []Match {
	text := strings.ToLower(name + " " + description)

	var matches []Match
	for _, p := range s.table {
		var hits []string
		for _, kw := range p.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				hits = append(hits, kw)
			}
		}
		if len(hits) > 0 {
			matches = append(matches, Match{Project: p.Project, Score: len(hits), Hits: hits})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Project < matches[j].Project
	})
	return matches
}

// Infer returns the best project for name and description, or false when no
// keyword matched
func (s *Scorer) Infer(name, description string) (Match, bool) {
	ranked := s.Rank(name, description)
	if len(ranked) == 0 {
		return Match{}, false
	}
	return ranked[0], true
}
