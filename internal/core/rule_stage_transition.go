package core

import (
	"context"
	"fmt"

	"metrocore/pkg/domain"
)

// StageTransitionRule blocks illegal stage movements on samples: unknown stage
// values, stage skips, and any movement out of the terminal stage.
func StageTransitionRule() domain.Rule {
	return stageTransitionRule{}
}

type stageTransitionRule struct{}

func (stageTransitionRule) Name() string { return "stage_transition" }

func (stageTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntitySample {
			continue
		}

		after, ok := domain.DecodeChangePayload[domain.Sample](change.After)
		if !ok {
			continue
		}
		afterIdx, valid := domain.StageIndex(after.Stage)
		if !valid {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "stage_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("sample %s is set to unknown stage %s", after.ID, after.Stage),
				Entity:   domain.EntitySample,
				EntityID: after.ID,
			})
			continue
		}

		before, ok := domain.DecodeChangePayload[domain.Sample](change.Before)
		if !ok {
			continue
		}
		if before.Stage == after.Stage {
			continue
		}
		if before.Stage == domain.TerminalStage {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "stage_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("cannot move sample %s out of terminal stage %s", before.ID, before.Stage),
				Entity:   domain.EntitySample,
				EntityID: after.ID,
			})
			continue
		}
		beforeIdx, valid := domain.StageIndex(before.Stage)
		if !valid {
			continue
		}
		if diff := afterIdx - beforeIdx; diff > 1 || diff < -1 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "stage_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("sample %s may only move to an adjacent stage, not %s to %s", after.ID, before.Stage, after.Stage),
				Entity:   domain.EntitySample,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
