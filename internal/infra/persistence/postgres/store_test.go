package postgres

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"metrocore/internal/infra/persistence/memory"
	"metrocore/pkg/domain"
)

func TestNewStoreOpenFailure(t *testing.T) {
	wantErr := errors.New("refused")
	restore := OverrideSQLOpen(func(driver, dsn string) (*sql.DB, error) {
		if driver != "pgx" {
			t.Fatalf("driver = %q, want pgx", driver)
		}
		if dsn != defaultDSN {
			t.Fatalf("dsn = %q, want default", dsn)
		}
		return nil, wantErr
	})
	defer restore()

	_, err := NewStore("", domain.NewRulesEngine())
	if err == nil || !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped open error, got %v", err)
	}
	if !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("error must name the failing step, got %v", err)
	}
}

func TestOverrideSQLOpenRestores(t *testing.T) {
	called := false
	restore := OverrideSQLOpen(func(driver, dsn string) (*sql.DB, error) {
		called = true
		return nil, errors.New("stub")
	})
	_, _ = NewStore("postgres://ignored", nil)
	if !called {
		t.Fatalf("override not applied")
	}
	restore()
	// After restore the stub must not be reachable; a second override proves
	// the slot is writable again.
	restore2 := OverrideSQLOpen(sql.Open)
	restore2()
}

func TestMarshalBucketRejectsUnknown(t *testing.T) {
	if _, err := marshalBucket(memory.Snapshot{}, "bogus"); err == nil {
		t.Fatalf("expected unknown bucket error")
	}
	for _, bucket := range postgresBuckets {
		if _, err := marshalBucket(memory.Snapshot{}, bucket); err != nil {
			t.Fatalf("bucket %s: %v", bucket, err)
		}
	}
}
