// Package report renders the plain-text reports written after archival and
// migration runs. Reports are regenerated on every run.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AbdouB/stubkeeper/internal/classify"
	"github.com/AbdouB/stubkeeper/internal/normalize"
)

var (
	rule = strings.Repeat("=", 80)
	dash = strings.Repeat("-", 80)
)

// Write replaces the report at path, creating parent directories
func Write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ArchivedStub is one successfully archived record
type ArchivedStub struct {
	Name   string
	StubID string
	Reason classify.Reason
}

// Cutoffs are the dates shown in the criteria reference
type Cutoffs struct {
	InfraUtility time.Time
	LowPriority  time.Time
}

// Archival renders the archival report grouped by reason
func Archival(generated time.Time, archived []ArchivedStub, cutoffs Cutoffs) string {
	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "STUB ARCHIVAL REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Generated: %s\n", generated.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total stubs archived: %d\n", len(archived))

	byReason := map[classify.Reason][]ArchivedStub{}
	for _, a := range archived {
		byReason[a.Reason] = append(byReason[a.Reason], a)
	}
	reasons := make([]string, 0, len(byReason))
	for r := range byReason {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)

	for _, r := range reasons {
		items := byReason[classify.Reason(r)]
		sort.SliceStable(items, func(i, j int) bool { return items[i].StubID < items[j].StubID })

		fmt.Fprintf(&b, "\n%s (%d stubs)\n", r, len(items))
		fmt.Fprintln(&b, dash)
		for _, it := range items {
			fmt.Fprintf(&b, "  %-12s | %s\n", it.StubID, it.Name)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintln(&b, "ARCHIVAL CRITERIA REFERENCE")
	fmt.Fprintln(&b, rule)
	b.WriteString(criteria(cutoffs))
	return b.String()
}

func criteria(c Cutoffs) string {
	day := func(t time.Time) string { return t.Format("2006-01-02") }
	return fmt.Sprintf(`
1. %s
   - Name contains: test, example, stub-location
   - Purpose: Validation stubs for workflow testing

2. %s
   - Status: completed, done, archived (or context.status completed/done)
   - Purpose: Work is finished, no longer needed

3. %s
   - Name contains: deprecated, remove-, delete-, legacy-, unused-, etc.
   - Purpose: Old approaches no longer relevant

4. %s
   - Member of a curated duplicate group with an equally or more urgent peer
   - Purpose: Consolidation - keep best version, archive redundant

5. %s
   - Status: brainstorming, exploration, research with a vague name
     (or brainstorming with a description under 50 characters)
   - Purpose: Exploration without clear scope

6. %s
   - Category: infrastructure, utility, refactor, cleanup
   - Priority: low or medium, status planning
   - Created: before %s
   - Purpose: Stalled low-urgency infrastructure work

7. %s
   - Priority: low or medium
   - Created: before %s
   - Purpose: Old backlog items with low urgency
`,
		classify.ReasonTestExample,
		classify.ReasonCompleted,
		classify.ReasonObsoleteName,
		classify.ReasonDuplicate,
		classify.ReasonVagueExploration,
		classify.ReasonInfraUtilityLow, day(c.InfraUtility),
		classify.ReasonLowPriorityOld, day(c.LowPriority),
	)
}

// MigratedStub is one record's outcome in a migration run
type MigratedStub struct {
	Name    string
	Changes []normalize.Change
	Error   string
}

// MigrationSummary holds the totals shown at the top of the migration report
type MigrationSummary struct {
	Total         int
	Modified      int
	Counts        map[normalize.ChangeKind]int
	Errors        int
	CounterBefore int
	CounterAfter  int
}

var changeLabels = map[normalize.ChangeKind]string{
	normalize.ChangeStatus:   "Status values fixed ('stub' -> 'planning')",
	normalize.ChangeDate:     "Date formats fixed (ISO 8601 -> YYYY-MM-DD)",
	normalize.ChangeStubID:   "Stub IDs added",
	normalize.ChangeCategory: "Categories remapped",
}

// Migration renders the migration report
func Migration(generated time.Time, sum MigrationSummary, records []MigratedStub) string {
	var b strings.Builder
	fmt.Fprintln(&b, "STUB MIGRATION REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Date: %s\n", generated.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total stubs: %d\n", sum.Total)
	fmt.Fprintf(&b, "Files modified: %d\n", sum.Modified)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Changes:")
	for _, kind := range normalize.ChangeKinds {
		fmt.Fprintf(&b, "  - %s: %d\n", changeLabels[kind], sum.Counts[kind])
	}
	fmt.Fprintf(&b, "  - Errors: %d\n", sum.Errors)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Stub ID Counter:")
	fmt.Fprintf(&b, "  - Before: STUB-%03d\n", sum.CounterBefore)
	fmt.Fprintf(&b, "  - After: STUB-%03d\n", sum.CounterAfter)
	fmt.Fprintf(&b, "  - IDs assigned: %d\n", sum.CounterAfter-sum.CounterBefore)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "DETAILED CHANGES")
	fmt.Fprintln(&b, rule)
	b.WriteString(strings.Join(DetailLines(records), "\n"))
	return b.String()
}

// DetailLines lists each changed record followed by its changes, and each
// failed record as a single ERROR line
func DetailLines(records []MigratedStub) []string {
	var lines []string
	for _, r := range records {
		if len(r.Changes) > 0 {
			lines = append(lines, "", r.Name+":")
			for _, c := range r.Changes {
				lines = append(lines, "  - "+c.Detail)
			}
		}
		if r.Error != "" {
			lines = append(lines, "", fmt.Sprintf("%s: ERROR - %s", r.Name, r.Error))
		}
	}
	return lines
}
