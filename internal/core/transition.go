package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"metrocore/pkg/domain"
)

// ReasonCode is the machine-readable rejection reason carried by a
// TransitionError.
type ReasonCode string

// Transition rejection reason codes. Rejections are synchronous and never
// coerced to a different stage.
const (
	ReasonInvalidTransition     ReasonCode = "invalid_transition"
	ReasonJustificationRequired ReasonCode = "justification_required"
	ReasonEvidenceConflict      ReasonCode = "evidence_conflict"
	ReasonInvalidDueDate        ReasonCode = "invalid_due_date"
)

// TransitionError rejects a requested transition with a machine-readable
// reason and a human message.
type TransitionError struct {
	Code    ReasonCode
	Message string
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// justificationMinLen is the minimum trimmed comment length accepted when
// approving a sample whose last validation verdict failed.
const justificationMinLen = 3

// TransitionRequest carries the metadata of a requested stage transition.
// Actor is always explicit; there is no ambient current user.
type TransitionRequest struct {
	Actor           string
	Comments        string
	EventDate       time.Time // zero value means the service clock's now
	Evidence        EvidenceRef
	DueDateOverride *time.Time
}

// Transition moves a sample to an adjacent stage. It enforces, in order:
// adjacency (next or previous stage only), the justification gate on
// approving a sample whose report failed validation, evidence exclusivity,
// and due-date override sanity. On acceptance it atomically appends the
// history entry, updates the stage and phase date, and recomputes the due
// date for the following phase; reverting backward across report validation
// drops the cached lab report. Rejections carry a TransitionError; rule
// violations roll the whole transition back.
func (s *Service) Transition(ctx context.Context, sampleID string, target Stage, req TransitionRequest) (Sample, Result, error) {
	ctx, done := s.instrument(ctx, "transition")

	if req.Evidence.FileKey != "" && req.Evidence.URL != "" {
		err := TransitionError{Code: ReasonEvidenceConflict, Message: "attach an uploaded file or an external URL, not both"}
		done(err)
		return Sample{}, Result{}, err
	}
	if req.Evidence.FileKey != "" {
		if err := s.verifyEvidence(ctx, req.Evidence.FileKey); err != nil {
			done(err)
			return Sample{}, Result{}, err
		}
	}

	eventDate := req.EventDate
	if eventDate.IsZero() {
		eventDate = s.nowFn()
	}
	if req.DueDateOverride != nil {
		if target == domain.TerminalStage {
			err := TransitionError{Code: ReasonInvalidDueDate, Message: "terminal stage takes no due date"}
			done(err)
			return Sample{}, Result{}, err
		}
		if dateOf(*req.DueDateOverride).Before(dateOf(eventDate)) {
			err := TransitionError{Code: ReasonInvalidDueDate, Message: "due date override must be today or later"}
			done(err)
			return Sample{}, Result{}, err
		}
	}

	var updated Sample
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		current, ok := tx.FindSample(sampleID)
		if !ok {
			return ErrNotFound{Entity: EntitySample, ID: sampleID}
		}

		next, hasNext := domain.NextStage(current.Stage)
		prev, hasPrev := domain.PreviousStage(current.Stage)
		forward := hasNext && target == next
		backward := hasPrev && target == prev
		if !forward && !backward {
			return TransitionError{
				Code:    ReasonInvalidTransition,
				Message: fmt.Sprintf("cannot move from %s to %s: only adjacent stages are reachable", current.Stage, target),
			}
		}

		var verdictSnapshot *Verdict
		if report, ok := tx.FindLabReport(sampleID); ok {
			v := report.Overall
			verdictSnapshot = &v
			if target == StageReportApproved && v == VerdictFail {
				if len(strings.TrimSpace(req.Comments)) < justificationMinLen {
					return TransitionError{
						Code:    ReasonJustificationRequired,
						Message: "approving a sample with a failed validation verdict requires a justification comment",
					}
				}
			}
		}

		if backward && current.Stage == StageReportUnderValidation {
			// Leaving validation backwards invalidates the cached report;
			// resubmission recomputes the band against then-current history.
			if err := tx.DeleteLabReport(sampleID); err != nil {
				return err
			}
		}

		var err error
		updated, err = tx.UpdateSample(sampleID, func(smp *Sample) error {
			leaving := smp.Stage
			smp.Stage = target
			if smp.PhaseDates == nil {
				smp.PhaseDates = map[Stage]time.Time{}
			}
			smp.PhaseDates[target] = eventDate
			if backward {
				delete(smp.PhaseDates, leaving)
			}
			switch {
			case req.DueDateOverride != nil:
				due := dateOf(*req.DueDateOverride)
				smp.DueDate = &due
			default:
				if due, ok := s.sla.DueDate(target, eventDate); ok {
					smp.DueDate = &due
				} else {
					smp.DueDate = nil
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		_, err = tx.AppendHistory(StatusHistoryEntry{
			SampleID:  sampleID,
			Stage:     target,
			EnteredAt: eventDate,
			Actor:     req.Actor,
			Comment:   req.Comments,
			Evidence:  req.Evidence,
			Verdict:   verdictSnapshot,
		})
		return err
	})
	done(err)
	return updated, res, err
}

// verifyEvidence confirms an uploaded evidence blob exists before a
// transition may reference it. A failed or abandoned upload surfaces here as
// a terminal error, never as a dangling reference.
func (s *Service) verifyEvidence(ctx context.Context, key string) error {
	if s.evidence == nil {
		return fmt.Errorf("evidence file %s referenced but no evidence store configured", key)
	}
	if _, err := s.evidence.Head(ctx, key); err != nil {
		return fmt.Errorf("evidence file %s not available: %w", key, err)
	}
	return nil
}
