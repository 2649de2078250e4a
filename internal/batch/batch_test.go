package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AbdouB/stubkeeper/internal/classify"
	"github.com/AbdouB/stubkeeper/internal/infer"
	"github.com/AbdouB/stubkeeper/internal/models"
	"github.com/AbdouB/stubkeeper/internal/normalize"
	"github.com/AbdouB/stubkeeper/internal/report"
	"github.com/AbdouB/stubkeeper/internal/store"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }

var testCutoffs = report.Cutoffs{
	InfraUtility: time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
	LowPriority:  time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC),
}

// memLedger keeps everything the orchestrator records
type memLedger struct {
	runs     []*models.Run
	finished []*models.Run
	outcomes []*models.ArchivalOutcome
	changes  []*models.ChangeEntry
}

func (l *memLedger) StartRun(r *models.Run) error {
	l.runs = append(l.runs, r)
	return nil
}

func (l *memLedger) FinishRun(r *models.Run) error {
	l.finished = append(l.finished, r)
	return nil
}

func (l *memLedger) RecordArchival(o *models.ArchivalOutcome) error {
	l.outcomes = append(l.outcomes, o)
	return nil
}

func (l *memLedger) RecordChange(c *models.ChangeEntry) error {
	l.changes = append(l.changes, c)
	return nil
}

// failingArchive wraps a store and refuses to move one record
type failingArchive struct {
	*store.Store
	fail string
}

func (f failingArchive) Archive(name string) error {
	if name == f.fail {
		return errors.New("permission denied")
	}
	return f.Store.Archive(name)
}

type fixture struct {
	root   string
	store  *store.Store
	ledger *memLedger
	orch   *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	working := filepath.Join(root, "working")
	require.NoError(t, os.MkdirAll(working, 0755))

	s := store.New(working, filepath.Join(root, "archived"), "stub.json")
	ledger := &memLedger{}
	return &fixture{
		root:   root,
		store:  s,
		ledger: ledger,
		orch: &Orchestrator{
			Records:             s,
			WorkingDir:          working,
			Counter:             store.CounterFile{Path: filepath.Join(root, "projects.md"), DefaultID: 84},
			Ledger:              ledger,
			Logger:              zaptest.NewLogger(t),
			Now:                 fixedNow,
			ArchiveReportPath:   filepath.Join(root, "reports", "ARCHIVAL_REPORT.txt"),
			MigrationReportPath: filepath.Join(root, "STUB_MIGRATION_REPORT.txt"),
			SchemaPath:          filepath.Join(root, "stub-schema.json"),
		},
	}
}

func (f *fixture) write(t *testing.T, name, body string) {
	t.Helper()
	dir := filepath.Join(f.store.WorkingDir, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stub.json"), []byte(body), 0644))
}

func (f *fixture) read(t *testing.T, name string) *models.Stub {
	t.Helper()
	e, err := f.store.Get(name)
	require.NoError(t, err)
	return e.Stub
}

func (f *fixture) raw(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(f.store.RecordPath(name))
	require.NoError(t, err)
	return string(data)
}

func TestMigrate_RepairsAndAllocates(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alpha", `{"stub_id":"STUB-001","status":"stub","category":"feature"}`)
	f.write(t, "beta", `{"created":"2025-12-28T06:37:00Z","category":"idea","owner":"ops"}`)
	f.write(t, "gamma", `{"stub_id":"STUB-002","status":"planning","category":"feature","created":"2026-01-01"}`)
	f.write(t, "broken", `{"stub_id":`)
	require.NoError(t, os.WriteFile(f.orch.Counter.Path,
		[]byte("# Projects\n\nNext STUB-ID: STUB-084\nLast updated: 2026-01-13\n"), 0644))
	gammaBefore := f.raw(t, "gamma")

	res, err := f.orch.Migrate(normalize.New(fixedNow))
	require.NoError(t, err)

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Modified)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 84, res.CounterBefore)
	assert.Equal(t, 85, res.CounterAfter)
	assert.Equal(t, 1, res.Counts[normalize.ChangeStatus])
	assert.Equal(t, 1, res.Counts[normalize.ChangeDate])
	assert.Equal(t, 1, res.Counts[normalize.ChangeStubID])
	assert.Equal(t, 1, res.Counts[normalize.ChangeCategory])

	assert.Equal(t, models.StatusPlanning, f.read(t, "alpha").Status)
	beta := f.read(t, "beta")
	assert.Equal(t, "STUB-084", beta.StubID)
	assert.Equal(t, "2025-12-28", beta.Created)
	assert.Equal(t, models.CategoryFeature, beta.Category)
	assert.Contains(t, f.raw(t, "beta"), `"owner": "ops"`)
	assert.Equal(t, gammaBefore, f.raw(t, "gamma"), "unchanged records are not rewritten")

	counter, err := os.ReadFile(f.orch.Counter.Path)
	require.NoError(t, err)
	assert.Contains(t, string(counter), "# Projects")
	assert.Contains(t, string(counter), "Next STUB-ID: STUB-085")
	assert.Contains(t, string(counter), "Last updated: 2026-10-19")

	rep, err := os.ReadFile(f.orch.MigrationReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(rep), "Files modified: 2")
	assert.Contains(t, string(rep), "broken: ERROR - ")

	assert.Len(t, f.ledger.changes, 4)
	require.Len(t, f.ledger.finished, 1)
	assert.Equal(t, models.ModeMigrate, f.ledger.finished[0].Mode)
	assert.NotNil(t, f.ledger.finished[0].FinishedAt)
}

func TestMigrate_StatusRepairKeepsEmptyKeys(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alpha", `{"stub_id":"STUB-001","feature_name":"alpha","description":"","category":"feature","priority":"high","status":"stub","created":"2025-12-28","target_project":""}`)

	res, err := f.orch.Migrate(normalize.New(fixedNow))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Modified)

	out := f.raw(t, "alpha")
	assert.Contains(t, out, `"status": "planning"`)
	assert.Contains(t, out, `"description": ""`)
	assert.Contains(t, out, `"target_project": ""`)
	assert.JSONEq(t, `{"stub_id":"STUB-001","feature_name":"alpha","description":"","category":"feature","priority":"high","status":"planning","created":"2025-12-28","target_project":""}`, out)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alpha", `{"status":"stub","created":"2026-02-01T10:00:00Z","category":"persona"}`)
	f.write(t, "beta", `{"category":"config"}`)

	first, err := f.orch.Migrate(normalize.New(fixedNow))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Modified)
	assert.Equal(t, 86, first.CounterAfter)

	second, err := f.orch.Migrate(normalize.New(fixedNow))
	require.NoError(t, err)
	assert.Zero(t, second.Modified)
	assert.Equal(t, 86, second.CounterBefore)
	assert.Equal(t, 86, second.CounterAfter)

	assert.NotEqual(t, f.read(t, "alpha").StubID, f.read(t, "beta").StubID)
}

func TestMigrate_DryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.orch.DryRun = true
	f.write(t, "alpha", `{"status":"stub"}`)
	before := f.raw(t, "alpha")

	res, err := f.orch.Migrate(normalize.New(fixedNow))
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Modified)
	assert.Equal(t, 85, res.CounterAfter)

	assert.Equal(t, before, f.raw(t, "alpha"))
	assert.NoFileExists(t, f.orch.Counter.Path)
	assert.NoFileExists(t, f.orch.MigrationReportPath)
}

func TestMigrate_CounterUntouchedWithoutAllocation(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alpha", `{"stub_id":"STUB-010","status":"stub"}`)

	res, err := f.orch.Migrate(normalize.New(fixedNow))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Modified)
	assert.NoFileExists(t, f.orch.Counter.Path)
}

func TestValidate_FillsAndWarns(t *testing.T) {
	f := newFixture(t)
	f.write(t, "bare", `{}`)
	f.write(t, "warn-only", `{"stub_id":"X-1","feature_name":"w","description":"d","category":"feature","priority":"medium","status":"planning","created":"2026-01-01"}`)
	f.write(t, "ok", `{"stub_id":"STUB-003","feature_name":"o","description":"d","category":"bugfix","priority":"high","status":"ready","created":"2026-01-01"}`)
	require.NoError(t, os.WriteFile(f.orch.SchemaPath, []byte(`{"required":["stub_id","feature_name","owner"]}`), 0644))
	warnBefore := f.raw(t, "warn-only")

	res, err := f.orch.Validate(normalize.NewValidator(fixedNow))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Valid)
	assert.Equal(t, []string{"owner"}, res.Unhandled)

	bare := f.read(t, "bare")
	assert.Equal(t, "bare", bare.FeatureName)
	assert.Equal(t, "TODO: Add description for bare", bare.Description)
	assert.Equal(t, models.CategoryFeature, bare.Category)
	assert.Equal(t, models.PriorityMedium, bare.Priority)
	assert.Equal(t, models.StatusPlanning, bare.Status)
	assert.Equal(t, "2026-10-19", bare.Created)

	assert.Equal(t, warnBefore, f.raw(t, "warn-only"), "warnings alone never rewrite a record")
	assert.Len(t, f.ledger.changes, 6)
}

func TestArchive_MovesCandidates(t *testing.T) {
	f := newFixture(t)
	f.write(t, "websocket-live-update-test", `{"stub_id":"STUB-007","status":"planning","priority":"critical"}`)
	f.write(t, "shipped", `{"stub_id":"STUB-008","status":"planning","context":{"status":"done"}}`)
	f.write(t, "payments", `{"stub_id":"STUB-009","status":"planning","priority":"high","created":"2026-10-19"}`)

	res, err := f.orch.Archive(classify.NewChain(classify.Options{
		InfraUtilityCutoff: testCutoffs.InfraUtility,
		LowPriorityCutoff:  testCutoffs.LowPriority,
	}), testCutoffs)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Loaded)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Archived)
	assert.Zero(t, res.Failed)

	assert.DirExists(t, filepath.Join(f.store.ArchiveDir, "websocket-live-update-test"))
	assert.DirExists(t, filepath.Join(f.store.ArchiveDir, "shipped"))
	assert.NoDirExists(t, filepath.Join(f.store.WorkingDir, "shipped"))
	assert.DirExists(t, filepath.Join(f.store.WorkingDir, "payments"))

	rep, err := os.ReadFile(f.orch.ArchiveReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(rep), "COMPLETED (1 stubs)")
	assert.Contains(t, string(rep), "TEST/EXAMPLE (1 stubs)")
	assert.Len(t, f.ledger.outcomes, 2)
}

func TestArchive_FailureDoesNotStopBatch(t *testing.T) {
	f := newFixture(t)
	f.orch.Records = failingArchive{Store: f.store, fail: "alpha-test"}
	f.write(t, "alpha-test", `{"stub_id":"STUB-001"}`)
	f.write(t, "beta-example", `{"stub_id":"STUB-002"}`)

	res, err := f.orch.Archive(classify.NewChain(classify.Options{}), testCutoffs)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Archived)
	assert.Equal(t, 1, res.Failed)
	failures := res.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "alpha-test", failures[0].StubName)
	assert.Equal(t, "permission denied", failures[0].Error)

	rep, err := os.ReadFile(f.orch.ArchiveReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(rep), "Total stubs archived: 1")
	assert.NotContains(t, string(rep), "alpha-test")
}

func TestArchive_DryRunMovesNothing(t *testing.T) {
	f := newFixture(t)
	f.orch.DryRun = true
	f.write(t, "old-ideas", `{"stub_id":"STUB-031"}`)

	res, err := f.orch.Archive(classify.NewChain(classify.Options{}), testCutoffs)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Total)
	assert.Zero(t, res.Archived)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, string(classify.ReasonObsoleteName), res.Outcomes[0].Reason)
	assert.DirExists(t, filepath.Join(f.store.WorkingDir, "old-ideas"))
	assert.NoFileExists(t, f.orch.ArchiveReportPath)
}

func testScorer() *infer.Scorer {
	return infer.NewScorer([]infer.ProjectKeywords{
		{Project: "coderef-dashboard", Keywords: []string{"dashboard", "widget", "tracking-widget"}},
		{Project: "papertrail", Keywords: []string{"audit", "trail"}},
	})
}

func TestInfer_AssignsTargets(t *testing.T) {
	f := newFixture(t)
	f.write(t, "tracking-widget", `{"feature_name":"tracking-widget","description":"dashboard widget for tracking"}`)
	f.write(t, "has-target", `{"description":"audit trail","target_project":"elsewhere"}`)
	f.write(t, "mystery", `{"description":"zzz"}`)
	f.write(t, "legacy-thing", `{"description":"dashboard"}`)

	res, err := f.orch.Infer(InferOptions{Scorer: testScorer(), Unknown: []string{"legacy-thing"}})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 1, res.HadTarget)
	assert.Equal(t, 3, res.Missing)
	assert.Equal(t, 1, res.Inferred)
	assert.Equal(t, 1, res.Forced)
	assert.Equal(t, 1, res.NoMatch)

	assert.Equal(t, "coderef-dashboard", f.read(t, "tracking-widget").TargetProject)
	assert.Equal(t, "elsewhere", f.read(t, "has-target").TargetProject)
	assert.Equal(t, infer.UnknownTarget, f.read(t, "legacy-thing").TargetProject)
	assert.Empty(t, f.read(t, "mystery").TargetProject)
}

func TestInfer_UnknownOnly(t *testing.T) {
	f := newFixture(t)
	f.write(t, "tracking-widget", `{"description":"dashboard widget"}`)
	f.write(t, "legacy-thing", `{}`)
	f.write(t, "set-already", `{"target_project":"papertrail"}`)

	res, err := f.orch.Infer(InferOptions{
		Scorer:      testScorer(),
		Unknown:     []string{"legacy-thing", "set-already"},
		UnknownOnly: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Forced)
	assert.Zero(t, res.Inferred)
	assert.Empty(t, f.read(t, "tracking-widget").TargetProject)
	assert.Equal(t, infer.UnknownTarget, f.read(t, "legacy-thing").TargetProject)
	assert.Equal(t, "papertrail", f.read(t, "set-already").TargetProject)
	require.Len(t, f.ledger.runs, 1)
	assert.Equal(t, models.ModeAssignUnknown, f.ledger.runs[0].Mode)
}
