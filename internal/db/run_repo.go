package db

import (
	"database/sql"
	"errors"

	"github.com/AbdouB/stubkeeper/internal/models"
)

// RunRepository handles run database operations
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run
func (r *RunRepository) Create(run *models.Run) error {
	query := `
		INSERT INTO runs (id, mode, working_dir, dry_run, started_at, finished_at, total, changed, failed)
		VALUES (:id, :mode, :working_dir, :dry_run, :started_at, :finished_at, :total, :changed, :failed)
	`
	_, err := r.db.NamedExec(query, run)
	return err
}

// Finish stores the run's end time and totals
func (r *RunRepository) Finish(run *models.Run) error {
	query := `
		UPDATE runs SET
			finished_at = :finished_at,
			total = :total,
			changed = :changed,
			failed = :failed
		WHERE id = :id
	`
	_, err := r.db.NamedExec(query, run)
	return err
}

// Get retrieves a run by ID, or nil when it does not exist
func (r *RunRepository) Get(id string) (*models.Run, error) {
	var run models.Run
	err := r.db.Get(&run, `SELECT * FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the most recent runs, newest first
func (r *RunRepository) List(limit int) ([]*models.Run, error) {
	var runs []*models.Run
	err := r.db.Select(&runs, `SELECT * FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	return runs, err
}
