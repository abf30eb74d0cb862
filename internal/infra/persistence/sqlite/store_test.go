package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"metrocore/pkg/domain"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrocore.db")
	ctx := context.Background()

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	var sampleID string
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		point, err := tx.CreateSamplePoint(domain.SamplePoint{Name: "P-07", Kind: domain.PointFiscal})
		if err != nil {
			return err
		}
		sample, err := tx.CreateSample(domain.Sample{Identifier: "AMO-1042", SamplePointID: point.ID, Stage: domain.StagePlanned, Active: true})
		if err != nil {
			return err
		}
		sampleID = sample.ID
		if _, err := tx.AppendHistory(domain.StatusHistoryEntry{SampleID: sample.ID, Stage: domain.StagePlanned, Actor: "tech"}); err != nil {
			return err
		}
		_, err = tx.AppendReading(domain.Reading{SamplePointID: point.ID, Parameter: domain.ParameterDensity, Value: 851})
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	sample, ok := reopened.GetSample(sampleID)
	if !ok || sample.Identifier != "AMO-1042" {
		t.Fatalf("expected rehydrated sample, got %+v ok=%v", sample, ok)
	}
	if len(reopened.HistoryFor(sampleID)) != 1 {
		t.Fatalf("expected rehydrated history")
	}
	readings := reopened.RecentReadings(sample.SamplePointID, domain.ParameterDensity, 10)
	if len(readings) != 1 || readings[0].Value != 851 {
		t.Fatalf("expected rehydrated readings, got %+v", readings)
	}
}

func TestStoreDefaultsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "dir", "state.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store with nested path: %v", err)
	}
	defer func() { _ = store.Close() }()
	if store.Path() != path {
		t.Fatalf("path = %q, want %q", store.Path(), path)
	}
	if store.DB() == nil {
		t.Fatalf("expected database handle")
	}
}

func TestFailedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrocore.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	wantErr := domain.RuleViolationError{}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateWell(domain.Well{Name: "MLS-1"}); err != nil {
			return err
		}
		return wantErr
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got, ok := store.GetWell("any"); ok {
		t.Fatalf("expected nothing persisted, got %+v", got)
	}
}
