package batch

import (
	"go.uber.org/zap"

	"github.com/AbdouB/stubkeeper/internal/infer"
	"github.com/AbdouB/stubkeeper/internal/models"
)

// Per-record inference outcomes
const (
	OutcomeInferred   = "inferred"
	OutcomeForced     = "forced_unknown"
	OutcomeNoMatch    = "no_match"
	OutcomeSaveFailed = "save_failed"
)

// InferenceResult summarises a target inference run
type InferenceResult struct {
	RunID     string           `json:"run_id"`
	DryRun    bool             `json:"dry_run"`
	Total     int              `json:"total"`
	HadTarget int              `json:"already_had_target"`
	Missing   int              `json:"missing_target"`
	Inferred  int              `json:"inferred"`
	Forced    int              `json:"forced_unknown"`
	NoMatch   int              `json:"could_not_infer"`
	Errors    int              `json:"errors"`
	Records   []InferredRecord `json:"records"`
}

// InferredRecord is one record without a target and what happened to it
type InferredRecord struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Outcome     string       `json:"outcome"`
	Match       *infer.Match `json:"match,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// InferOptions selects the inference mode
type InferOptions struct {
	Scorer *infer.Scorer
	// Unknown names are force-assigned infer.UnknownTarget without scoring
	Unknown []string
	// UnknownOnly skips the scorer entirely and only applies the unknown list
	UnknownOnly bool
}

// Infer fills target_project on records that do not have one yet
func (o *Orchestrator) Infer(opts InferOptions) (*InferenceResult, error) {
	entries, _, err := o.load()
	if err != nil {
		return nil, err
	}
	mode := models.ModeInfer
	if opts.UnknownOnly {
		mode = models.ModeAssignUnknown
	}
	run := o.startRun(mode)
	defer o.finishRun(run)

	unknown := make(map[string]bool, len(opts.Unknown))
	for _, n := range opts.Unknown {
		unknown[n] = true
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = infer.NewScorer(nil)
	}

	res := &InferenceResult{RunID: run.ID, DryRun: o.DryRun, Total: len(entries)}
	for _, e := range entries {
		if e.Stub.HasTarget() {
			res.HadTarget++
			continue
		}

		var rec InferredRecord
		switch {
		case unknown[e.Name]:
			res.Missing++
			rec = InferredRecord{Name: e.Name, Outcome: OutcomeForced}
			e.Stub.TargetProject = infer.UnknownTarget
		case opts.UnknownOnly:
			continue
		default:
			res.Missing++
			m, ok := scorer.Infer(e.DisplayName(), e.Stub.Description)
			if !ok {
				res.NoMatch++
				res.Records = append(res.Records, InferredRecord{
					Name:        e.Name,
					Description: e.Stub.Description,
					Outcome:     OutcomeNoMatch,
				})
				continue
			}
			rec = InferredRecord{Name: e.Name, Outcome: OutcomeInferred, Match: &m}
			e.Stub.TargetProject = m.Project
		}

		if err := o.save(e); err != nil {
			o.log().Error("Failed to save stub", zap.String("stub", e.Name), zap.Error(err))
			rec.Outcome = OutcomeSaveFailed
			rec.Error = err.Error()
			res.Errors++
			res.Records = append(res.Records, rec)
			continue
		}

		if rec.Outcome == OutcomeForced {
			res.Forced++
		} else {
			res.Inferred++
		}
		o.recordChange(run, e.Name, "target_project", e.Stub.TargetProject)
		res.Records = append(res.Records, rec)
	}

	run.Total, run.Changed, run.Failed = res.Total, res.Inferred+res.Forced, res.Errors
	return res, nil
}
