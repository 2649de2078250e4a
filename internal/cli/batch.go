package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AbdouB/stubkeeper/internal/batch"
	"github.com/AbdouB/stubkeeper/internal/classify"
	"github.com/AbdouB/stubkeeper/internal/config"
	"github.com/AbdouB/stubkeeper/internal/db"
	"github.com/AbdouB/stubkeeper/internal/infer"
	"github.com/AbdouB/stubkeeper/internal/normalize"
	"github.com/AbdouB/stubkeeper/internal/report"
	"github.com/AbdouB/stubkeeper/internal/store"
)

// newOrchestrator wires the store, counter, ledger and report paths from the
// loaded config
func newOrchestrator(cmd *cobra.Command) *batch.Orchestrator {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	o := &batch.Orchestrator{
		Records:             store.New(cfg.WorkingPath(), cfg.ArchivePath(), cfg.RecordFile),
		WorkingDir:          cfg.WorkingPath(),
		Counter:             store.CounterFile{Path: cfg.CounterFile(), DefaultID: cfg.DefaultNextID},
		Logger:              logger,
		Now:                 time.Now,
		DryRun:              dryRun,
		ArchiveReportPath:   cfg.ArchiveReportPath(),
		MigrationReportPath: cfg.MigrationReportPath(),
		SchemaPath:          cfg.SchemaFile(),
	}
	if database != nil {
		o.Ledger = db.NewLedger(database)
	}
	return o
}

func duplicateGroups(c *config.Config) []classify.DuplicateGroup {
	if c.DuplicateGroups == nil {
		return nil
	}
	out := make([]classify.DuplicateGroup, 0, len(c.DuplicateGroups))
	for _, g := range c.DuplicateGroups {
		out = append(out, classify.DuplicateGroup{Label: g.Label, Members: g.Members})
	}
	return out
}

func projectKeywords(c *config.Config) []infer.ProjectKeywords {
	if c.ProjectKeywords == nil {
		return nil
	}
	out := make([]infer.ProjectKeywords, 0, len(c.ProjectKeywords))
	for _, p := range c.ProjectKeywords {
		out = append(out, infer.ProjectKeywords{Project: p.Project, Keywords: p.Keywords})
	}
	return out
}

func unknownStubs(c *config.Config) []string {
	if c.UnknownStubs == nil {
		return infer.DefaultUnknownStubs
	}
	return c.UnknownStubs
}

func cutoffs(c *config.Config) (report.Cutoffs, error) {
	infra, err := c.InfraUtilityCutoff()
	if err != nil {
		return report.Cutoffs{}, err
	}
	low, err := c.LowPriorityCutoff()
	if err != nil {
		return report.Cutoffs{}, err
	}
	return report.Cutoffs{InfraUtility: infra, LowPriority: low}, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Repair legacy stub records",
	Long: `Apply the schema repairs to every stub, in directory-name order:

  1. status "stub" becomes "planning"
  2. created timestamps are truncated to YYYY-MM-DD
  3. missing stub_id values are allocated from the shared counter
  4. unknown categories are remapped (idea -> feature, config -> infrastructure, ...)

Only changed records are rewritten. The counter document is updated once at
the end when ids were allocated, and the migration report is regenerated.

Example:
  stubkeeper migrate --dry-run --text
  stubkeeper migrate`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := newOrchestrator(cmd)
		res, err := o.Migrate(normalize.New(o.Now))
		if err != nil {
			return err
		}

		if !outputText {
			outputResult(res)
			return nil
		}

		fmt.Println(report.Banner("STUB MIGRATION"))
		for _, r := range res.Records {
			if r.Error != "" {
				fmt.Printf("%s %s\n", report.Status("ERROR"), r.Name)
				fmt.Printf("  %s\n", report.Muted(r.Error))
				continue
			}
			fmt.Printf("%s %s\n", report.Status(updatedTag(res.DryRun)), r.Name)
			for _, c := range r.Changes {
				fmt.Printf("  - %s\n", report.Muted(c.Detail))
			}
		}
		fmt.Println(report.Divider())
		fmt.Printf("Total stubs: %d\n", res.Total)
		fmt.Printf("Files modified: %d\n", res.Modified)
		fmt.Printf("  Status fixed: %d\n", res.Counts[normalize.ChangeStatus])
		fmt.Printf("  Dates fixed: %d\n", res.Counts[normalize.ChangeDate])
		fmt.Printf("  IDs added: %d\n", res.Counts[normalize.ChangeStubID])
		fmt.Printf("  Categories remapped: %d\n", res.Counts[normalize.ChangeCategory])
		fmt.Printf("Errors: %d\n", res.Errors)
		fmt.Printf("Counter: STUB-%03d -> STUB-%03d\n", res.CounterBefore, res.CounterAfter)
		if res.ReportPath != "" {
			fmt.Printf("Report: %s\n", res.ReportPath)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Fill missing required fields",
	Long: `Guarantee every stub has feature_name, description, category, priority,
status and created. Missing values are filled with defaults:

  feature_name  directory name
  description   "TODO: Add description for <name>"
  category      feature
  priority      medium
  status        planning
  created       today

Invalid enum values, non YYYY-MM-DD dates and stub ids without the STUB-
prefix are reported as warnings and left alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := newOrchestrator(cmd)
		res, err := o.Validate(normalize.NewValidator(o.Now))
		if err != nil {
			return err
		}

		if !outputText {
			outputResult(res)
			return nil
		}

		fmt.Println(report.Banner("STUB VALIDATION"))
		for _, r := range res.Records {
			if r.Error != "" {
				fmt.Printf("%s %s\n", report.Status("ERROR"), r.Name)
				fmt.Printf("  %s\n", report.Muted(r.Error))
				continue
			}
			tag := "WARNING"
			if normalize.HasFixes(r.Findings) {
				tag = updatedTag(res.DryRun)
			}
			fmt.Printf("%s %s\n", report.Status(tag), r.Name)
			for _, f := range r.Findings {
				fmt.Printf("  - %s\n", report.Muted(f.Message))
			}
		}
		for _, f := range res.Unhandled {
			fmt.Printf("%s schema requires %q, which is not auto-filled\n", report.Status("WARNING"), f)
		}
		fmt.Println(report.Divider())
		fmt.Printf("Total: %d\n", res.Total)
		fmt.Printf("Updated: %d\n", res.Updated)
		fmt.Printf("Already valid: %d\n", res.Valid)
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Move stale, finished or duplicate stubs to the archive",
	Long: `Classify every stub with the ordered archival rules (first match wins):

  1. TEST/EXAMPLE        test or example stubs
  2. COMPLETED           finished work (status or context.status)
  3. OBSOLETE_NAME       deprecated-, legacy-, old- ... names
  4. DUPLICATE           a curated duplicate group has an equally urgent peer
  5. VAGUE_EXPLORATION   unscoped brainstorming or research
  6. INFRA_UTILITY_LOW   old low-urgency infrastructure work
  7. LOW_PRIORITY_OLD    old low-urgency backlog items

Each candidate directory is moved to the archive store, replacing any existing
directory of the same name. A failed move is reported and the rest continue.

Example:
  stubkeeper archive --dry-run --text`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cut, err := cutoffs(cfg)
		if err != nil {
			return err
		}
		chain := classify.NewChain(classify.Options{
			InfraUtilityCutoff: cut.InfraUtility,
			LowPriorityCutoff:  cut.LowPriority,
			DuplicateGroups:    duplicateGroups(cfg),
		})

		o := newOrchestrator(cmd)
		res, err := o.Archive(chain, cut)
		if err != nil {
			return err
		}

		if !outputText {
			outputResult(res)
			return nil
		}

		fmt.Println(report.Banner("ARCHIVE STUBS"))
		fmt.Printf("Found %d stubs to archive (of %d loaded)\n\n", res.Total, res.Loaded)
		fmt.Printf("  %-12s | %-20s | %s\n", "STUB ID", "REASON", "NAME")
		fmt.Println(report.Divider())
		for _, out := range res.Outcomes {
			fmt.Printf("  %-12s | %-20s | %s\n", out.StubID, out.Reason, out.StubName)
		}
		fmt.Println(report.Divider())

		if res.DryRun {
			fmt.Printf("%s nothing moved\n", report.Status("DRY-RUN"))
			return nil
		}
		fmt.Printf("%s %d/%d\n", report.Status("ARCHIVED"), res.Archived, res.Total)
		if res.Failed > 0 {
			fmt.Printf("%s %d/%d\n", report.Status("FAIL"), res.Failed, res.Total)
			for _, f := range res.Failures() {
				fmt.Printf("  - %s: %s\n", f.StubName, report.Muted(f.Error))
			}
		}
		if res.ReportPath != "" {
			fmt.Printf("Report: %s\n", res.ReportPath)
		}
		return nil
	},
}

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Infer target_project from keywords",
	Long: `Score every stub without a target_project against the project keyword table
and set the best match. Each keyword counts once if it appears anywhere in the
feature name or description; ties go to the alphabetically first project.

Stubs on the unknown list are set to "unknown" without scoring. Stubs that
already have a target are never touched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfer(cmd, false)
	},
}

var assignUnknownCmd = &cobra.Command{
	Use:   "assign-unknown",
	Short: `Set target_project to "unknown" for known-unresolvable stubs`,
	Long: `Apply only the unknown list: every listed stub without a target_project gets
target_project "unknown". The keyword scorer is not run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfer(cmd, true)
	},
}

func runInfer(cmd *cobra.Command, unknownOnly bool) error {
	o := newOrchestrator(cmd)
	res, err := o.Infer(batch.InferOptions{
		Scorer:      infer.NewScorer(projectKeywords(cfg)),
		Unknown:     unknownStubs(cfg),
		UnknownOnly: unknownOnly,
	})
	if err != nil {
		return err
	}

	if !outputText {
		outputResult(res)
		return nil
	}

	title := "INFER TARGET PROJECTS"
	if unknownOnly {
		title = "ASSIGN UNKNOWN TARGETS"
	}
	fmt.Println(report.Banner(title))
	for _, r := range res.Records {
		switch r.Outcome {
		case batch.OutcomeInferred:
			fmt.Printf("%s %s -> %s %s\n", report.Status("INFERRED"), r.Name, r.Match.Project,
				report.Muted(fmt.Sprintf("(score %d: %v)", r.Match.Score, r.Match.Hits)))
		case batch.OutcomeForced:
			fmt.Printf("%s %s -> %s\n", report.Status("UPDATED"), r.Name, infer.UnknownTarget)
		case batch.OutcomeNoMatch:
			fmt.Printf("%s %s\n", report.Status("SKIPPED"), r.Name)
			if r.Description != "" {
				fmt.Printf("  %s\n", report.Muted(preview(r.Description, 80)))
			}
		default:
			fmt.Printf("%s %s: %s\n", report.Status("ERROR"), r.Name, r.Error)
		}
	}
	fmt.Println(report.Divider())
	fmt.Printf("Total stubs: %d\n", res.Total)
	fmt.Printf("Already had target: %d\n", res.HadTarget)
	fmt.Printf("Missing target: %d\n", res.Missing)
	fmt.Printf("Inferred: %d\n", res.Inferred)
	fmt.Printf("Set to unknown: %d\n", res.Forced)
	fmt.Printf("Could not infer: %d\n", res.NoMatch)
	if res.DryRun {
		fmt.Printf("%s nothing written\n", report.Status("DRY-RUN"))
	}
	return nil
}

func updatedTag(dryRun bool) string {
	if dryRun {
		return "DRY-RUN"
	}
	return "UPDATED"
}

// preview truncates s to n runes, marking the cut with "..."
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func init() {
	for _, c := range []*cobra.Command{migrateCmd, validateCmd, archiveCmd, inferCmd, assignUnknownCmd} {
		c.Flags().Bool("dry-run", false, "Compute and report changes without writing anything")
	}

	rootCmd.AddCommand(
		migrateCmd,
		validateCmd,
		archiveCmd,
		inferCmd,
		assignUnknownCmd,
	)
}
