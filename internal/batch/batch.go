// Package batch loads the record store, runs exactly one engine over the
// whole set, persists the mutations and writes the run's report.
//
// Runs are single-threaded and non-transactional: a crash part way through
// leaves some records repaired or moved and others untouched. Per-record
// failures are collected and never stop the batch.
package batch

import (
	"time"

	"go.uber.org/zap"

	"github.com/AbdouB/stubkeeper/internal/models"
	"github.com/AbdouB/stubkeeper/internal/store"
)

// Records is the record store a run reads and mutates
type Records interface {
	Load() ([]*models.Entry, []*store.LoadError, error)
	Save(entry *models.Entry) error
	Archive(name string) error
}

// Ledger receives an audit trail of every run. Failures are logged, never
// returned.
type Ledger interface {
	StartRun(run *models.Run) error
	FinishRun(run *models.Run) error
	RecordArchival(o *models.ArchivalOutcome) error
	RecordChange(c *models.ChangeEntry) error
}

// Orchestrator runs one engine per call over the loaded store
type Orchestrator struct {
	Records    Records
	WorkingDir string
	Counter    store.CounterFile
	Ledger     Ledger
	Logger     *zap.Logger
	Now        func() time.Time
	DryRun     bool

	ArchiveReportPath   string
	MigrationReportPath string
	SchemaPath          string
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func (o *Orchestrator) log() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// load reads the store and logs every record that could not be decoded
func (o *Orchestrator) load() ([]*models.Entry, []*store.LoadError, error) {
	entries, loadErrs, err := o.Records.Load()
	if err != nil {
		return nil, nil, err
	}
	for _, le := range loadErrs {
		o.log().Warn("Skipping unreadable stub", zap.String("stub", le.Name), zap.Error(le.Err))
	}
	o.log().Debug("Loaded stubs", zap.Int("count", len(entries)), zap.Int("unreadable", len(loadErrs)))
	return entries, loadErrs, nil
}

// save persists an entry unless this is a dry run
func (o *Orchestrator) save(e *models.Entry) error {
	if o.DryRun {
		return nil
	}
	return o.Records.Save(e)
}

func (o *Orchestrator) startRun(mode models.RunMode) *models.Run {
	run := models.NewRun(mode, o.WorkingDir, o.DryRun, o.now())
	if o.Ledger != nil {
		if err := o.Ledger.StartRun(run); err != nil {
			o.log().Warn("Ledger unavailable for run", zap.String("run", run.ID), zap.Error(err))
		}
	}
	return run
}

func (o *Orchestrator) finishRun(run *models.Run) {
	finished := o.now()
	run.FinishedAt = &finished
	if o.Ledger == nil {
		return
	}
	if err := o.Ledger.FinishRun(run); err != nil {
		o.log().Warn("Failed to finish ledger run", zap.String("run", run.ID), zap.Error(err))
	}
}

func (o *Orchestrator) recordChange(run *models.Run, name, kind, detail string) {
	if o.Ledger == nil {
		return
	}
	if err := o.Ledger.RecordChange(models.NewChangeEntry(run.ID, name, kind, detail, o.now())); err != nil {
		o.log().Warn("Failed to record change", zap.String("stub", name), zap.Error(err))
	}
}

func (o *Orchestrator) recordArchival(outcome *models.ArchivalOutcome) {
	if o.Ledger == nil {
		return
	}
	if err := o.Ledger.RecordArchival(outcome); err != nil {
		o.log().Warn("Failed to record archival", zap.String("stub", outcome.StubName), zap.Error(err))
	}
}
