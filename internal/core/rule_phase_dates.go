package core

import (
	"context"
	"fmt"

	"metrocore/pkg/domain"
)

// PhaseDateRule enforces the actual-date invariants on samples: a phase date
// may only exist for stages at or before the current stage, and a terminal
// sample carries no due date.
func PhaseDateRule() domain.Rule {
	return phaseDateRule{}
}

type phaseDateRule struct{}

func (phaseDateRule) Name() string { return "phase_dates" }

func (phaseDateRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntitySample {
			continue
		}
		sample, ok := domain.DecodeChangePayload[domain.Sample](change.After)
		if !ok {
			continue
		}
		currentIdx, ok := domain.StageIndex(sample.Stage)
		if !ok {
			continue
		}
		for stage := range sample.PhaseDates {
			idx, known := domain.StageIndex(stage)
			if !known || idx > currentIdx {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "phase_dates",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("sample %s has an actual date for phase %s beyond its current stage %s", sample.ID, stage, sample.Stage),
					Entity:   domain.EntitySample,
					EntityID: sample.ID,
				})
			}
		}
		if sample.Stage == domain.TerminalStage && sample.DueDate != nil {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "phase_dates",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("terminal sample %s must not carry a due date", sample.ID),
				Entity:   domain.EntitySample,
				EntityID: sample.ID,
			})
		}
	}
	return res, nil
}
