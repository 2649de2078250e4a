package batch

import (
	"errors"
	"io/fs"

	"go.uber.org/zap"

	"github.com/AbdouB/stubkeeper/internal/models"
	"github.com/AbdouB/stubkeeper/internal/normalize"
)

// ValidationResult summarises an auto-fill run
type ValidationResult struct {
	RunID     string            `json:"run_id"`
	DryRun    bool              `json:"dry_run"`
	Total     int               `json:"total"`
	Updated   int               `json:"updated"`
	Valid     int               `json:"already_valid"`
	Errors    int               `json:"errors"`
	Records   []ValidatedRecord `json:"records"`
	Unhandled []string          `json:"unhandled_required,omitempty"`
}

// ValidatedRecord is one record's findings
type ValidatedRecord struct {
	Name     string              `json:"name"`
	Findings []normalize.Finding `json:"findings"`
	Error    string              `json:"error,omitempty"`
}

// Validate fills missing required fields on every record. Records whose
// findings are only warnings are left untouched.
func (o *Orchestrator) Validate(v *normalize.Validator) (*ValidationResult, error) {
	entries, loadErrs, err := o.load()
	if err != nil {
		return nil, err
	}
	run := o.startRun(models.ModeValidate)
	defer o.finishRun(run)

	res := &ValidationResult{
		RunID:     run.ID,
		DryRun:    o.DryRun,
		Total:     len(entries),
		Unhandled: o.checkSchema(),
	}

	for _, le := range loadErrs {
		res.Records = append(res.Records, ValidatedRecord{Name: le.Name, Error: le.Err.Error()})
		res.Errors++
	}

	for _, e := range entries {
		filled, findings := v.Check(e.Name, e.Stub)
		if len(findings) == 0 {
			res.Valid++
			continue
		}

		rec := ValidatedRecord{Name: e.Name, Findings: findings}
		if !normalize.HasFixes(findings) {
			res.Valid++
			res.Records = append(res.Records, rec)
			continue
		}

		e.Stub = filled
		if err := o.save(e); err != nil {
			o.log().Error("Failed to save stub", zap.String("stub", e.Name), zap.Error(err))
			rec.Error = err.Error()
			res.Errors++
			res.Records = append(res.Records, rec)
			continue
		}
		res.Updated++
		for _, f := range findings {
			if f.Fixed {
				o.recordChange(run, e.Name, "field_filled", f.Message)
			}
		}
		res.Records = append(res.Records, rec)
	}

	run.Total, run.Changed, run.Failed = res.Total, res.Updated, res.Errors
	return res, nil
}

// checkSchema reads the canonical schema document, if there is one, and
// returns the required fields the validator cannot fill
func (o *Orchestrator) checkSchema() []string {
	if o.SchemaPath == "" {
		return nil
	}
	doc, err := normalize.LoadSchema(o.SchemaPath)
	if errors.Is(err, fs.ErrNotExist) {
		o.log().Debug("No schema document", zap.String("path", o.SchemaPath))
		return nil
	}
	if err != nil {
		o.log().Warn("Schema document unreadable", zap.String("path", o.SchemaPath), zap.Error(err))
		return nil
	}

	unhandled := doc.UnhandledRequired()
	for _, f := range unhandled {
		o.log().Warn("Schema requires a field the validator does not fill", zap.String("field", f))
	}
	return unhandled
}
