package db

import (
	"github.com/AbdouB/stubkeeper/internal/models"
)

// OutcomeRepository handles archival outcome database operations
type OutcomeRepository struct {
	db *DB
}

// NewOutcomeRepository creates a new outcome repository
func NewOutcomeRepository(db *DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Create inserts an archival outcome
func (r *OutcomeRepository) Create(o *models.ArchivalOutcome) error {
	query := `
		INSERT INTO archival_outcomes (id, run_id, stub_name, stub_id, reason, archived, error, created_at)
		VALUES (:id, :run_id, :stub_name, :stub_id, :reason, :archived, :error, :created_at)
	`
	_, err := r.db.NamedExec(query, o)
	return err
}

// ListByRun returns a run's outcomes ordered by stub name
func (r *OutcomeRepository) ListByRun(runID string) ([]*models.ArchivalOutcome, error) {
	var out []*models.ArchivalOutcome
	err := r.db.Select(&out, `SELECT * FROM archival_outcomes WHERE run_id = ? ORDER BY stub_name`, runID)
	return out, err
}

// ListByStub returns every recorded outcome for a stub name, newest first
func (r *OutcomeRepository) ListByStub(name string) ([]*models.ArchivalOutcome, error) {
	var out []*models.ArchivalOutcome
	err := r.db.Select(&out, `SELECT * FROM archival_outcomes WHERE stub_name = ? ORDER BY created_at DESC`, name)
	return out, err
}

// ChangeRepository handles repair change database operations
type ChangeRepository struct {
	db *DB
}

// NewChangeRepository creates a new change repository
func NewChangeRepository(db *DB) *ChangeRepository {
	return &ChangeRepository{db: db}
}

// Create inserts a change entry
func (r *ChangeRepository) Create(c *models.ChangeEntry) error {
	query := `
		INSERT INTO repair_changes (id, run_id, stub_name, kind, detail, created_at)
		VALUES (:id, :run_id, :stub_name, :kind, :detail, :created_at)
	`
	_, err := r.db.NamedExec(query, c)
	return err
}

// ListByRun returns a run's changes ordered by stub name, then insertion
func (r *ChangeRepository) ListByRun(runID string) ([]*models.ChangeEntry, error) {
	var out []*models.ChangeEntry
	err := r.db.Select(&out, `SELECT * FROM repair_changes WHERE run_id = ? ORDER BY stub_name, rowid`, runID)
	return out, err
}

// Ledger records batch runs through the repositories
type Ledger struct {
	runs     *RunRepository
	outcomes *OutcomeRepository
	changes  *ChangeRepository
}

// NewLedger creates a ledger over db
func NewLedger(db *DB) *Ledger {
	return &Ledger{
		runs:     NewRunRepository(db),
		outcomes: NewOutcomeRepository(db),
		changes:  NewChangeRepository(db),
	}
}

// StartRun inserts a run
func (l *Ledger) StartRun(run *models.Run) error { return l.runs.Create(run) }

// FinishRun stores a run's totals
func (l *Ledger) FinishRun(run *models.Run) error { return l.runs.Finish(run) }

// RecordArchival inserts an archival outcome
func (l *Ledger) RecordArchival(o *models.ArchivalOutcome) error { return l.outcomes.Create(o) }

// RecordChange inserts a repair change
func (l *Ledger) RecordChange(c *models.ChangeEntry) error { return l.changes.Create(c) }
