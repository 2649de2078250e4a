package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AbdouB/stubkeeper/internal/db"
	"github.com/AbdouB/stubkeeper/internal/models"
	"github.com/AbdouB/stubkeeper/internal/report"
	"github.com/AbdouB/stubkeeper/internal/store"
)

// RunDetail is one run with everything recorded against it
type RunDetail struct {
	Run      *models.Run               `json:"run"`
	Outcomes []*models.ArchivalOutcome `json:"archival_outcomes"`
	Changes  []*models.ChangeEntry     `json:"changes"`
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded runs",
	Long: `List recent runs from the ledger, newest first. With a run id, show the
archival outcomes and field changes recorded for that run.

With --stub, show every archival decision recorded for one stub.

Example:
  stubkeeper history --limit 5 --text
  stubkeeper history --stub legacy-auth-flow
  stubkeeper history 3f0c2a1e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runs := db.NewRunRepository(database)

		if stub, _ := cmd.Flags().GetString("stub"); stub != "" {
			return stubHistory(stub)
		}

		if len(args) == 0 {
			limit, _ := cmd.Flags().GetInt("limit")
			list, err := runs.List(limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if !outputText {
				outputResult(list)
				return nil
			}
			if len(list) == 0 {
				fmt.Println("No runs recorded yet.")
				return nil
			}
			fmt.Println(report.Banner("RUN HISTORY"))
			for _, r := range list {
				dry := ""
				if r.DryRun {
					dry = " " + report.Muted("(dry run)")
				}
				fmt.Printf("%s  %-15s %s  total=%d changed=%d failed=%d%s\n",
					shortID(r.ID), r.Mode, r.StartedAt.Format("2006-01-02 15:04:05"),
					r.Total, r.Changed, r.Failed, dry)
			}
			return nil
		}

		run, err := runs.Get(args[0])
		if err != nil {
			return fmt.Errorf("failed to get run: %w", err)
		}
		if run == nil {
			return fmt.Errorf("run not found: %s", args[0])
		}
		outcomes, err := db.NewOutcomeRepository(database).ListByRun(run.ID)
		if err != nil {
			return fmt.Errorf("failed to list archival outcomes: %w", err)
		}
		changes, err := db.NewChangeRepository(database).ListByRun(run.ID)
		if err != nil {
			return fmt.Errorf("failed to list changes: %w", err)
		}
		detail := RunDetail{Run: run, Outcomes: outcomes, Changes: changes}

		if !outputText {
			outputResult(detail)
			return nil
		}

		fmt.Println(report.Banner(fmt.Sprintf("RUN %s (%s)", run.ID, run.Mode)))
		fmt.Printf("Working dir: %s\n", run.WorkingDir)
		fmt.Printf("Started: %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
		if run.FinishedAt != nil {
			fmt.Printf("Finished: %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Total: %d  Changed: %d  Failed: %d\n", run.Total, run.Changed, run.Failed)

		if len(outcomes) > 0 {
			fmt.Printf("\nArchival (%d):\n", len(outcomes))
			for _, o := range outcomes {
				fmt.Printf("%s %-12s %-20s %s\n", report.Status(outcomeTag(o)), o.StubID, o.Reason, o.StubName)
			}
		}
		if len(changes) > 0 {
			fmt.Printf("\nChanges (%d):\n", len(changes))
			for _, c := range changes {
				fmt.Printf("  %s: %s %s\n", c.StubName, c.Detail, report.Muted("["+c.Kind+"]"))
			}
		}
		return nil
	},
}

// stubHistory lists every archival outcome recorded for one stub
func stubHistory(name string) error {
	outcomes, err := db.NewOutcomeRepository(database).ListByStub(name)
	if err != nil {
		return fmt.Errorf("failed to list archival outcomes: %w", err)
	}
	if !outputText {
		outputResult(outcomes)
		return nil
	}
	if len(outcomes) == 0 {
		fmt.Printf("No archival decisions recorded for %s.\n", name)
		return nil
	}
	fmt.Println(report.Banner("ARCHIVAL HISTORY: " + name))
	for _, o := range outcomes {
		fmt.Printf("%s %s  %-20s run %s\n", report.Status(outcomeTag(o)),
			o.Timestamp.Format("2006-01-02 15:04:05"), o.Reason, shortID(o.RunID))
		if o.Error != "" {
			fmt.Printf("  %s\n", report.Muted(o.Error))
		}
	}
	return nil
}

func outcomeTag(o *models.ArchivalOutcome) string {
	switch {
	case o.Error != "":
		return "FAIL"
	case !o.Archived:
		return "DRY-RUN"
	}
	return "ARCHIVED"
}

// shortID abbreviates a ledger id for tables
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// CounterState is the parsed shared id counter
type CounterState struct {
	Path        string `json:"path"`
	NextID      string `json:"next_id"`
	NextNumber  int    `json:"next_number"`
	LastUpdated string `json:"last_updated,omitempty"`
}

var counterCmd = &cobra.Command{
	Use:   "counter",
	Short: "Show the shared STUB-ID counter",
	Long: `Read the counter document and print the next id to be allocated.
A missing document reports the configured default.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := store.CounterFile{Path: cfg.CounterFile(), DefaultID: cfg.DefaultNextID}
		c, err := f.Read()
		if err != nil {
			return err
		}

		state := CounterState{
			Path:       f.Path,
			NextID:     models.FormatID(c.NextID),
			NextNumber: c.NextID,
		}
		if !c.LastUpdated.IsZero() {
			state.LastUpdated = c.LastUpdated.Format("2006-01-02")
		}

		if !outputText {
			outputResult(state)
			return nil
		}
		fmt.Printf("Next STUB-ID: %s\n", state.NextID)
		if state.LastUpdated != "" {
			fmt.Printf("Last updated: %s\n", state.LastUpdated)
		}
		fmt.Println(report.Muted(state.Path))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs")
	historyCmd.Flags().String("stub", "", "Show archival history for one stub name")

	rootCmd.AddCommand(historyCmd, counterCmd)
}
