package batch

import (
	"go.uber.org/zap"

	"github.com/AbdouB/stubkeeper/internal/models"
	"github.com/AbdouB/stubkeeper/internal/normalize"
	"github.com/AbdouB/stubkeeper/internal/report"
)

// MigrationResult summarises a normalizer run
type MigrationResult struct {
	RunID         string                       `json:"run_id"`
	DryRun        bool                         `json:"dry_run"`
	Total         int                          `json:"total"`
	Modified      int                          `json:"files_modified"`
	Counts        map[normalize.ChangeKind]int `json:"counts"`
	Errors        int                          `json:"errors"`
	CounterBefore int                          `json:"counter_before"`
	CounterAfter  int                          `json:"counter_after"`
	Records       []MigratedRecord             `json:"records"`
	ReportPath    string                       `json:"report_path,omitempty"`
}

// MigratedRecord is one record's repairs, or the error that left it untouched
type MigratedRecord struct {
	Name    string             `json:"name"`
	Changes []normalize.Change `json:"changes,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Migrate runs the schema normalizer over every record. Ids are allocated in
// directory-name order and the counter is written back once, after the batch,
// and only when at least one id was allocated.
func (o *Orchestrator) Migrate(n *normalize.Normalizer) (*MigrationResult, error) {
	entries, loadErrs, err := o.load()
	if err != nil {
		return nil, err
	}
	run := o.startRun(models.ModeMigrate)
	defer o.finishRun(run)

	counter, err := o.Counter.Read()
	if err != nil {
		o.log().Warn("Counter unreadable, using default", zap.String("path", o.Counter.Path), zap.Error(err))
		counter.NextID = o.Counter.DefaultID
	}

	res := &MigrationResult{
		RunID:         run.ID,
		DryRun:        o.DryRun,
		Total:         len(entries) + len(loadErrs),
		Counts:        map[normalize.ChangeKind]int{},
		CounterBefore: counter.NextID,
	}

	for _, le := range loadErrs {
		res.Records = append(res.Records, MigratedRecord{Name: le.Name, Error: le.Err.Error()})
		res.Errors++
	}

	for _, e := range entries {
		repaired, changes := n.Normalize(e.Stub, &counter)
		if len(changes) == 0 {
			continue
		}

		rec := MigratedRecord{Name: e.Name, Changes: changes}
		e.Stub = repaired
		if err := o.save(e); err != nil {
			o.log().Error("Failed to save stub", zap.String("stub", e.Name), zap.Error(err))
			rec.Error = err.Error()
			res.Errors++
			res.Records = append(res.Records, rec)
			continue
		}

		res.Modified++
		for _, c := range changes {
			res.Counts[c.Kind]++
			o.recordChange(run, e.Name, string(c.Kind), c.Detail)
		}
		res.Records = append(res.Records, rec)
	}
	res.CounterAfter = counter.NextID

	if res.CounterAfter > res.CounterBefore && !o.DryRun {
		if err := o.Counter.Write(counter, o.now()); err != nil {
			o.log().Error("Failed to update counter", zap.String("path", o.Counter.Path), zap.Error(err))
		} else {
			o.log().Info("Counter updated", zap.String("next", models.FormatID(counter.NextID)))
		}
	}

	run.Total, run.Changed, run.Failed = res.Total, res.Modified, res.Errors

	if !o.DryRun && o.MigrationReportPath != "" {
		content := report.Migration(o.now(), report.MigrationSummary{
			Total:         res.Total,
			Modified:      res.Modified,
			Counts:        res.Counts,
			Errors:        res.Errors,
			CounterBefore: res.CounterBefore,
			CounterAfter:  res.CounterAfter,
		}, migratedStubs(res.Records))
		if err := report.Write(o.MigrationReportPath, content); err != nil {
			o.log().Error("Failed to write migration report", zap.Error(err))
		} else {
			res.ReportPath = o.MigrationReportPath
		}
	}

	return res, nil
}

func migratedStubs(records []MigratedRecord) []report.MigratedStub {
	out := make([]report.MigratedStub, 0, len(records))
	for _, r := range records {
		out = append(out, report.MigratedStub{Name: r.Name, Changes: r.Changes, Error: r.Error})
	}
	return out
}
