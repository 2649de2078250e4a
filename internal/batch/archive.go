package batch

import (
	"go.uber.org/zap"

	"github.com/AbdouB/stubkeeper/internal/classify"
	"github.com/AbdouB/stubkeeper/internal/models"
	"github.com/AbdouB/stubkeeper/internal/report"
)

// ArchiveResult summarises an archival run. Total is the number of
// candidates, not the number of loaded records.
type ArchiveResult struct {
	RunID      string                    `json:"run_id"`
	DryRun     bool                      `json:"dry_run"`
	Loaded     int                       `json:"loaded"`
	Total      int                       `json:"total"`
	Archived   int                       `json:"archived"`
	Failed     int                       `json:"failed"`
	Outcomes   []*models.ArchivalOutcome `json:"outcomes"`
	ReportPath string                    `json:"report_path,omitempty"`
}

// Failures returns the outcomes whose move failed
func (r *ArchiveResult) Failures() []*models.ArchivalOutcome {
	var out []*models.ArchivalOutcome
	for _, o := range r.Outcomes {
		if o.Error != "" {
			out = append(out, o)
		}
	}
	return out
}

// Archive classifies every record and moves each candidate into the archive
// store. A failed move is recorded and the batch continues.
func (o *Orchestrator) Archive(chain *classify.Chain, cutoffs report.Cutoffs) (*ArchiveResult, error) {
	entries, _, err := o.load()
	if err != nil {
		return nil, err
	}
	run := o.startRun(models.ModeArchive)
	defer o.finishRun(run)

	candidates := chain.Classify(entries)
	res := &ArchiveResult{
		RunID:  run.ID,
		DryRun: o.DryRun,
		Loaded: len(entries),
		Total:  len(candidates),
	}

	var archived []report.ArchivedStub
	for _, c := range candidates {
		outcome := models.NewArchivalOutcome(run.ID, c.Name, c.StubID, string(c.Reason), o.now())
		res.Outcomes = append(res.Outcomes, outcome)

		if o.DryRun {
			o.recordArchival(outcome)
			continue
		}
		if err := o.Records.Archive(c.Name); err != nil {
			o.log().Error("Failed to archive stub", zap.String("stub", c.Name), zap.Error(err))
			outcome.Error = err.Error()
			res.Failed++
			o.recordArchival(outcome)
			continue
		}

		outcome.Archived = true
		res.Archived++
		archived = append(archived, report.ArchivedStub{Name: c.Name, StubID: c.StubID, Reason: c.Reason})
		o.recordArchival(outcome)
	}

	run.Total, run.Changed, run.Failed = res.Total, res.Archived, res.Failed

	if !o.DryRun && o.ArchiveReportPath != "" {
		if err := report.Write(o.ArchiveReportPath, report.Archival(o.now(), archived, cutoffs)); err != nil {
			o.log().Error("Failed to write archival report", zap.Error(err))
		} else {
			res.ReportPath = o.ArchiveReportPath
		}
	}

	o.log().Info("Archival finished",
		zap.Int("archived", res.Archived),
		zap.Int("failed", res.Failed),
		zap.Int("total", res.Total))
	return res, nil
}
