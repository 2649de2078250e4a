// Package classify decides which stubs are stale enough to archive.
//
// A Chain holds an ordered list of named predicates. Each record is tested
// against them in order and receives the reason of the first predicate that
// matches, or none. Most specific rules come first.
package classify

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AbdouB/stubkeeper/internal/models"
)

// Reason is the archival reason assigned to a record
type Reason string

const (
	ReasonTestExample      Reason = "TEST/EXAMPLE"
	ReasonCompleted        Reason = "COMPLETED"
	ReasonObsoleteName     Reason = "OBSOLETE_NAME"
	ReasonDuplicate        Reason = "DUPLICATE"
	ReasonVagueExploration Reason = "VAGUE_EXPLORATION"
	ReasonInfraUtilityLow  Reason = "INFRA_UTILITY_LOW"
	ReasonLowPriorityOld   Reason = "LOW_PRIORITY_OLD"
)

// Peers is the full loaded record set keyed by directory name
type Peers map[string]*models.Stub

// Rule is one named predicate in the chain
type Rule struct {
	Reason Reason
	Match  func(name string, s *models.Stub, peers Peers) bool
}

// Options configures the data-dependent rules
type Options struct {
	InfraUtilityCutoff time.Time
	LowPriorityCutoff  time.Time
	DuplicateGroups    []DuplicateGroup
}

// Chain evaluates rules in order with first-match-wins
type Chain struct {
	rules []Rule
}

// NewChain builds the standard seven-rule chain
func NewChain(opts Options) *Chain {
	groups := opts.DuplicateGroups
	if groups == nil {
		groups = DefaultDuplicateGroups
	}
	return &Chain{rules: []Rule{
		{ReasonTestExample, func(name string, s *models.Stub, _ Peers) bool { return isTestExample(name, s) }},
		{ReasonCompleted, func(_ string, s *models.Stub, _ Peers) bool { return isCompleted(s) }},
		{ReasonObsoleteName, func(name string, _ *models.Stub, _ Peers) bool { return isObsoleteName(name) }},
		{ReasonDuplicate, func(name string, s *models.Stub, peers Peers) bool { return isDuplicate(groups, name, s, peers) }},
		{ReasonVagueExploration, func(name string, s *models.Stub, _ Peers) bool { return isVagueExploration(name, s) }},
		{ReasonInfraUtilityLow, func(_ string, s *models.Stub, _ Peers) bool {
			return isInfraUtilityLow(s, opts.InfraUtilityCutoff)
		}},
		{ReasonLowPriorityOld, func(_ string, s *models.Stub, _ Peers) bool {
			return isLowPriorityOld(s, opts.LowPriorityCutoff)
		}},
	}}
}

// Rules returns the chain's rules in evaluation order
func (c *Chain) Rules() []Rule {
	return c.rules
}

// Evaluate returns the first matching reason for a record
func (c *Chain) Evaluate(name string, s *models.Stub, peers Peers) (Reason, bool) {
	for _, r := range c.rules {
		if r.Match(name, s, peers) {
			return r.Reason, true
		}
	}
	return "", false
}

// Candidate is a record selected for archival
type Candidate struct {
	Name   string `json:"name"`
	StubID string `json:"stub_id"`
	Reason Reason `json:"reason"`
}

// Classify evaluates every entry against the full set and returns the
// candidates in directory-name order
func (c *Chain) Classify(entries []*models.Entry) []Candidate {
	peers := make(Peers, len(entries))
	for _, e := range entries {
		peers[e.Name] = e.Stub
	}

	var out []Candidate
	for _, e := range sortedEntries(entries) {
		reason, ok := c.Evaluate(e.Name, e.Stub, peers)
		if !ok {
			continue
		}
		out = append(out, Candidate{Name: e.Name, StubID: e.IDOr("UNKNOWN"), Reason: reason})
	}
	return out
}

var (
	testNameKeywords   = []string{"test", "example", "stub-location"}
	testDescKeywords   = []string{"test ", "testing ", "example ", "verify stub"}
	completedStatuses  = []string{"completed", "done", "archived"}
	contextDoneStatus  = []string{"completed", "done"}
	obsoleteNameTokens = []string{
		"deprecated", "remove-", "delete-", "redundant-", "duplicate-", "old-",
		"legacy-", "unused-", "stale-", "archived-", "deprecated-",
	}
	exploratoryStatuses = []string{"brainstorming", "exploration", "research"}
	vagueNameKeywords   = []string{"ideas", "audit", "review", "investigation", "analysis", "improvements", "research"}
	infraCategories     = []string{"infrastructure", "utility", "refactor", "cleanup"}
	lowUrgency          = []string{"low", "medium"}
)

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func lower[T ~string](v T) string {
	return strings.ToLower(string(v))
}

func isTestExample(name string, s *models.Stub) bool {
	n := strings.ToLower(name)
	if containsAny(n, testNameKeywords) {
		return true
	}
	return containsAny(strings.ToLower(s.Description), testDescKeywords) &&
		(strings.Contains(n, "test") || strings.Contains(n, "example"))
}

func isCompleted(s *models.Stub) bool {
	if oneOf(lower(s.Status), completedStatuses) {
		return true
	}
	return oneOf(s.ContextStatus(), contextDoneStatus)
}

func isObsoleteName(name string) bool {
	return containsAny(strings.ToLower(name), obsoleteNameTokens)
}

func isVagueExploration(name string, s *models.Stub) bool {
	status := lower(s.Status)
	if !oneOf(status, exploratoryStatuses) {
		return false
	}
	if containsAny(strings.ToLower(name), vagueNameKeywords) {
		return true
	}
	return status == "brainstorming" && utf8.RuneCountInString(strings.TrimSpace(s.Description)) < 50
}

func isInfraUtilityLow(s *models.Stub, cutoff time.Time) bool {
	if !oneOf(lower(s.Category), infraCategories) ||
		!oneOf(lower(s.Priority), lowUrgency) ||
		lower(s.Status) != string(models.StatusPlanning) {
		return false
	}
	return createdBefore(s, cutoff)
}

func isLowPriorityOld(s *models.Stub, cutoff time.Time) bool {
	return oneOf(lower(s.Priority), lowUrgency) && createdBefore(s, cutoff)
}

// createdBefore is false for any created value that is not a plain date
func createdBefore(s *models.Stub, cutoff time.Time) bool {
	created, err := time.Parse("2006-01-02", s.Created)
	if err != nil {
		return false
	}
	return created.Before(cutoff)
}
