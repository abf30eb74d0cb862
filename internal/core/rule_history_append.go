package core

import (
	"context"
	"fmt"

	"metrocore/pkg/domain"
)

// HistoryAppendRule keeps the status history append-only: entries are never
// updated or deleted, and a retried append may not duplicate the entry it
// already wrote.
func HistoryAppendRule() domain.Rule {
	return historyAppendRule{}
}

type historyAppendRule struct{}

func (historyAppendRule) Name() string { return "history_append_only" }

func (historyAppendRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityStatusHistory {
			continue
		}
		if change.Action != domain.ActionCreate {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "history_append_only",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("status history is append-only; %s is not permitted", change.Action),
				Entity:   domain.EntityStatusHistory,
			})
			continue
		}

		entry, ok := domain.DecodeChangePayload[domain.StatusHistoryEntry](change.After)
		if !ok {
			continue
		}
		duplicates := 0
		for _, existing := range view.HistoryFor(entry.SampleID) {
			if existing.Stage == entry.Stage && existing.EnteredAt.Equal(entry.EnteredAt) && existing.Actor == entry.Actor {
				duplicates++
			}
		}
		// The appended entry is already visible in the snapshot, so a single
		// match is the entry itself.
		if duplicates > 1 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "history_append_only",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("duplicate history entry for sample %s at stage %s", entry.SampleID, entry.Stage),
				Entity:   domain.EntityStatusHistory,
				EntityID: entry.ID,
			})
		}
	}
	return res, nil
}
