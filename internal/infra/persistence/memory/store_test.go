package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"metrocore/pkg/domain"
)

func TestRunInTransactionCommitsAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var sampleID string
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindSample("missing"); ok {
			t.Fatalf("expected missing sample lookup")
		}
		point, err := tx.CreateSamplePoint(domain.SamplePoint{Name: "P-01", Kind: domain.PointFiscal})
		if err != nil {
			return err
		}
		created, err := tx.CreateSample(domain.Sample{Identifier: "AMO-1", SamplePointID: point.ID, Stage: domain.StagePlanned, Active: true})
		if err != nil {
			return err
		}
		if created.ID == "" {
			t.Fatalf("expected generated ID")
		}
		sampleID = created.ID
		view := tx.Snapshot()
		if len(view.ListSamples()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(store.ListSamples()) != 1 {
		t.Fatalf("expected persisted sample")
	}

	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListSamples()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if got, ok := store.GetSample(sampleID); !ok || got.Identifier != "AMO-1" {
		t.Fatalf("expected restored sample, got %+v ok=%v", got, ok)
	}
}

func TestFailedTransactionDiscardsMutations(t *testing.T) {
	store := NewStore(nil)
	sentinel := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateWell(domain.Well{Name: "MLS-1"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if len(store.ListSamples()) != 0 {
		t.Fatalf("expected no committed state")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block_everything" }

func (blockingRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for range changes {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "block_everything",
			Severity: domain.SeverityBlock,
			Message:  "blocked",
		})
	}
	return res, nil
}

func TestBlockingViolationRollsBack(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockingRule{})
	store := NewStore(engine)

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateWell(domain.Well{Name: "MLS-1"})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if len(violation.Result.Violations) == 0 {
		t.Fatalf("expected violations in result")
	}
}

func TestUpdateSampleIsolation(t *testing.T) {
	store := NewStore(nil)
	var id string
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		created, err := tx.CreateSample(domain.Sample{Identifier: "AMO-2", SamplePointID: "p", Stage: domain.StagePlanned})
		id = created.ID
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	before, _ := store.GetSample(id)
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateSample(id, func(smp *domain.Sample) error {
			smp.Identifier = "AMO-2-renamed"
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if before.Identifier != "AMO-2" {
		t.Fatalf("previously read sample mutated: %+v", before)
	}
	after, _ := store.GetSample(id)
	if after.Identifier != "AMO-2-renamed" {
		t.Fatalf("expected committed rename, got %q", after.Identifier)
	}
	if after.UpdatedAt.Before(after.CreatedAt) {
		t.Fatalf("updated timestamp must not precede creation")
	}
}

func TestHistoryAppendOnlyOrdering(t *testing.T) {
	store := NewStore(nil)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for i, stage := range []domain.Stage{domain.StagePlanned, domain.StageSampled} {
			if _, err := tx.AppendHistory(domain.StatusHistoryEntry{
				SampleID:  "s1",
				Stage:     stage,
				EnteredAt: base.AddDate(0, 0, i),
				Actor:     "tech",
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	history := store.HistoryFor("s1")
	if len(history) != 2 {
		t.Fatalf("history = %d entries, want 2", len(history))
	}
	if history[0].Stage != domain.StagePlanned || history[1].Stage != domain.StageSampled {
		t.Fatalf("history must preserve append order")
	}
}

func TestRecentReadingsWindow(t *testing.T) {
	store := NewStore(nil)
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for i := 0; i < 5; i++ {
			if _, err := tx.AppendReading(domain.Reading{
				SamplePointID: "p1",
				Parameter:     domain.ParameterDensity,
				Value:         float64(800 + i),
				RecordedAt:    base.AddDate(0, 0, i),
			}); err != nil {
				return err
			}
		}
		// Other pairs never leak into the window.
		_, err := tx.AppendReading(domain.Reading{SamplePointID: "p2", Parameter: domain.ParameterDensity, Value: 999, RecordedAt: base})
		return err
	})
	if err != nil {
		t.Fatalf("append readings: %v", err)
	}

	recent := store.RecentReadings("p1", domain.ParameterDensity, 3)
	if len(recent) != 3 {
		t.Fatalf("recent = %d, want 3", len(recent))
	}
	if recent[0].Value != 802 || recent[2].Value != 804 {
		t.Fatalf("window must keep the most recent values oldest-first, got %+v", recent)
	}

	all := store.RecentReadings("p1", domain.ParameterDensity, 0)
	if len(all) != 5 {
		t.Fatalf("zero limit must return the full series, got %d", len(all))
	}
}

func TestLabReportLifecycle(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.PutLabReport(domain.LabReport{SampleID: "s1", Overall: domain.VerdictPass}); err != nil {
			return err
		}
		if _, err := tx.PutLabReport(domain.LabReport{SampleID: "s1", Overall: domain.VerdictFail}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("put report: %v", err)
	}
	report, ok := store.GetLabReport("s1")
	if !ok || report.Overall != domain.VerdictFail {
		t.Fatalf("expected replaced report, got %+v ok=%v", report, ok)
	}

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.DeleteLabReport("s1"); err != nil {
			return err
		}
		// Deleting an absent report is a no-op.
		return tx.DeleteLabReport("s1")
	})
	if err != nil {
		t.Fatalf("delete report: %v", err)
	}
	if _, ok := store.GetLabReport("s1"); ok {
		t.Fatalf("expected report removed")
	}
}
