package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateSample(Sample) (Sample, error)
	UpdateSample(id string, mutator func(*Sample) error) (Sample, error)
	AppendHistory(StatusHistoryEntry) (StatusHistoryEntry, error)
	PutLabReport(LabReport) (LabReport, error)
	DeleteLabReport(sampleID string) error
	CreateSamplePoint(SamplePoint) (SamplePoint, error)
	UpdateSamplePoint(id string, mutator func(*SamplePoint) error) (SamplePoint, error)
	CreateWell(Well) (Well, error)
	AppendReading(Reading) (Reading, error)
	FindSample(id string) (Sample, bool)
	FindSamplePoint(id string) (SamplePoint, bool)
	FindWell(id string) (Well, bool)
	FindLabReport(sampleID string) (LabReport, bool)
	HistoryFor(sampleID string) []StatusHistoryEntry
	RecentReadings(samplePointID string, parameter Parameter, limit int) []Reading
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers. Reads
// against committed state are lock-free with respect to in-flight transitions.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetSample(id string) (Sample, bool)
	ListSamples() []Sample
	HistoryFor(sampleID string) []StatusHistoryEntry
	GetLabReport(sampleID string) (LabReport, bool)
	GetSamplePoint(id string) (SamplePoint, bool)
	ListSamplePoints() []SamplePoint
	GetWell(id string) (Well, bool)
	RecentReadings(samplePointID string, parameter Parameter, limit int) []Reading
}
