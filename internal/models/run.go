package models

import (
	"time"

	"github.com/google/uuid"
)

// RunMode identifies which engine a batch run executed
type RunMode string

const (
	ModeMigrate       RunMode = "migrate"
	ModeValidate      RunMode = "validate"
	ModeArchive       RunMode = "archive"
	ModeInfer         RunMode = "infer"
	ModeAssignUnknown RunMode = "assign-unknown"
)

// Run is one invocation of the batch orchestrator as recorded in the ledger
type Run struct {
	ID         string     `json:"id" db:"id"`
	Mode       RunMode    `json:"mode" db:"mode"`
	WorkingDir string     `json:"working_dir" db:"working_dir"`
	DryRun     bool       `json:"dry_run" db:"dry_run"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	Total      int        `json:"total" db:"total"`
	Changed    int        `json:"changed" db:"changed"`
	Failed     int        `json:"failed" db:"failed"`
}

// NewRun creates a new run started at now
func NewRun(mode RunMode, workingDir string, dryRun bool, now time.Time) *Run {
	return &Run{
		ID:         uuid.New().String(),
		Mode:       mode,
		WorkingDir: workingDir,
		DryRun:     dryRun,
		StartedAt:  now,
	}
}

// ArchivalOutcome records what happened to one archival candidate
type ArchivalOutcome struct {
	ID        string    `json:"id" db:"id"`
	RunID     string    `json:"run_id" db:"run_id"`
	StubName  string    `json:"name" db:"stub_name"`
	StubID    string    `json:"stub_id" db:"stub_id"`
	Reason    string    `json:"reason" db:"reason"`
	Archived  bool      `json:"archived" db:"archived"`
	Error     string    `json:"error,omitempty" db:"error"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

// NewArchivalOutcome creates an outcome entry for a run
func NewArchivalOutcome(runID, name, stubID, reason string, now time.Time) *ArchivalOutcome {
	return &ArchivalOutcome{
		ID:        uuid.New().String(),
		RunID:     runID,
		StubName:  name,
		StubID:    stubID,
		Reason:    reason,
		Timestamp: now,
	}
}

// ChangeEntry records one field-level repair applied to a stub
type ChangeEntry struct {
	ID        string    `json:"id" db:"id"`
	RunID     string    `json:"run_id" db:"run_id"`
	StubName  string    `json:"name" db:"stub_name"`
	Kind      string    `json:"kind" db:"kind"`
	Detail    string    `json:"detail" db:"detail"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

// NewChangeEntry creates a change entry for a run
func NewChangeEntry(runID, name, kind, detail string, now time.Time) *ChangeEntry {
	return &ChangeEntry{
		ID:        uuid.New().String(),
		RunID:     runID,
		StubName:  name,
		Kind:      kind,
		Detail:    detail,
		Timestamp: now,
	}
}
