package core

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	blobcore "metrocore/internal/blob/core"
	"metrocore/pkg/domain"
)

// Service exposes the sample lifecycle operations: planning, gated stage
// transitions, lab report validation, and the dashboard read models. Samples
// are mutated exclusively through this service; the store's transactional
// snapshot commit keeps each transition all-or-nothing.
type Service struct {
	store    domain.PersistentStore
	sla      *SLACalculator
	window   int
	evidence blobcore.Store
	logger   Logger
	metrics  MetricsRecorder
	tracer   Tracer
	nowFn    func() time.Time
}

// ServiceOption customises service construction.
type ServiceOption func(*Service)

// WithLogger installs a structured logger. Nil restores the noop default.
func WithLogger(l Logger) ServiceOption {
	return func(s *Service) {
		if l == nil {
			l = noopLogger{}
		}
		s.logger = l
	}
}

// WithMetrics installs a metrics recorder. Nil restores the noop default.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m == nil {
			m = noopMetrics{}
		}
		s.metrics = m
	}
}

// WithTracer installs a tracer. Nil restores the noop default.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t == nil {
			t = noopTracer{}
		}
		s.tracer = t
	}
}

// WithClock overrides the service clock, used for event timestamps and
// urgency evaluation. Nil restores UTC wall time.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now == nil {
			now = func() time.Time { return time.Now().UTC() }
		}
		s.nowFn = now
	}
}

// WithEvidenceStore wires the blob store used for uploaded transition
// evidence. Without one, file evidence references are rejected.
func WithEvidenceStore(store blobcore.Store) ServiceOption {
	return func(s *Service) { s.evidence = store }
}

// WithValidationWindow sets the rolling history window for statistical report
// validation. Values below one restore the default.
func WithValidationWindow(n int) ServiceOption {
	return func(s *Service) {
		if n < 1 {
			n = DefaultValidationWindow
		}
		s.window = n
	}
}

// NewService constructs a service over the supplied store and SLA calculator.
// A nil calculator uses the stock budgets.
func NewService(store domain.PersistentStore, sla *SLACalculator, opts ...ServiceOption) *Service {
	if sla == nil {
		sla = NewSLACalculator(nil)
	}
	s := &Service{
		store:   store,
		sla:     sla,
		window:  DefaultValidationWindow,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over an in-memory store with the given
// rules engine, for tests and ephemeral deployments.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	store, err := OpenPersistentStore(StorageConfig{Driver: StorageMemory}, engine)
	if err != nil {
		panic(err)
	}
	return NewService(store, nil, opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// SLA returns the calculator the service computes due dates with.
func (s *Service) SLA() *SLACalculator {
	return s.sla
}

// instrument opens a span and returns a closure that finishes the span and
// records the operation outcome.
func (s *Service) instrument(ctx context.Context, operation string) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	return ctx, func(err error) {
		span.End(err)
		s.metrics.Observe(ctx, operation, err == nil, time.Since(started))
		if err != nil {
			s.logger.Warn("operation failed", "operation", operation, "error", err)
		} else {
			s.logger.Debug("operation completed", "operation", operation)
		}
	}
}

// CreateSample plans a new sample: it enters the pipeline in the initial
// stage with its first phase date stamped and the first due date computed.
func (s *Service) CreateSample(ctx context.Context, sample Sample, actor string) (Sample, Result, error) {
	ctx, done := s.instrument(ctx, "create_sample")
	var created Sample
	now := s.nowFn()
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, ok := tx.FindSamplePoint(sample.SamplePointID); !ok {
			return ErrNotFound{Entity: EntitySamplePoint, ID: sample.SamplePointID}
		}
		sample.Stage = domain.InitialStage
		sample.Active = true
		sample.PhaseDates = map[Stage]time.Time{domain.InitialStage: now}
		if due, ok := s.sla.DueDate(domain.InitialStage, now); ok {
			sample.DueDate = &due
		} else {
			sample.DueDate = nil
		}
		var err error
		created, err = tx.CreateSample(sample)
		if err != nil {
			return err
		}
		_, err = tx.AppendHistory(StatusHistoryEntry{
			SampleID:  created.ID,
			Stage:     domain.InitialStage,
			EnteredAt: now,
			Actor:     actor,
			Comment:   "sample planned",
		})
		return err
	})
	done(err)
	return created, res, err
}

// CreateSamplePoint registers a sample point.
func (s *Service) CreateSamplePoint(ctx context.Context, point SamplePoint) (SamplePoint, Result, error) {
	ctx, done := s.instrument(ctx, "create_sample_point")
	var created SamplePoint
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateSamplePoint(point)
		return err
	})
	done(err)
	return created, res, err
}

// CreateWell registers a well for test-separator linkage.
func (s *Service) CreateWell(ctx context.Context, well Well) (Well, Result, error) {
	ctx, done := s.instrument(ctx, "create_well")
	var created Well
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateWell(well)
		return err
	})
	done(err)
	return created, res, err
}

// LinkWell attaches a well to a sample. The well-linkage rule blocks the
// commit unless the sample's point is a test separator and the well exists.
func (s *Service) LinkWell(ctx context.Context, sampleID, wellID string) (Sample, Result, error) {
	ctx, done := s.instrument(ctx, "link_well")
	var updated Sample
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateSample(sampleID, func(smp *Sample) error {
			smp.WellID = &wellID
			return nil
		})
		return err
	})
	done(err)
	return updated, res, err
}

// AppendReading stores one historical parameter reading for a sample point.
func (s *Service) AppendReading(ctx context.Context, reading Reading) (Reading, Result, error) {
	ctx, done := s.instrument(ctx, "append_reading")
	var created Reading
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, ok := tx.FindSamplePoint(reading.SamplePointID); !ok {
			return ErrNotFound{Entity: EntitySamplePoint, ID: reading.SamplePointID}
		}
		var err error
		created, err = tx.AppendReading(reading)
		return err
	})
	done(err)
	return created, res, err
}

// GetSample retrieves a sample by ID from committed state.
func (s *Service) GetSample(id string) (Sample, bool) {
	return s.store.GetSample(id)
}

// ListSamples returns all samples ordered most urgent first.
func (s *Service) ListSamples() []Sample {
	return SortByUrgency(s.store.ListSamples(), s.sla, s.nowFn())
}

// History returns the full audit trail for a sample, oldest first.
func (s *Service) History(sampleID string) []StatusHistoryEntry {
	return s.store.HistoryFor(sampleID)
}

// UrgencyFor classifies a sample's deadline posture as of the service clock.
func (s *Service) UrgencyFor(sample Sample) Urgency {
	return s.sla.Urgency(sample.Stage, sample.DueDate, s.nowFn())
}

// Dashboard aggregates active samples by phase cluster and urgency bucket.
func (s *Service) Dashboard() []ClusterStat {
	return Aggregate(s.store.ListSamples(), s.sla, s.nowFn())
}

// AttachEvidence uploads a blob to the evidence store and returns its stored
// info, including a durable URL when the driver can presign one. The returned
// key is what a subsequent transition references; an upload failure surfaces
// here, before any transition state is touched.
func (s *Service) AttachEvidence(ctx context.Context, sampleID, filename, contentType string, r io.Reader) (blobcore.Info, error) {
	ctx, done := s.instrument(ctx, "attach_evidence")
	if s.evidence == nil {
		err := fmt.Errorf("no evidence store configured")
		done(err)
		return blobcore.Info{}, err
	}
	if _, ok := s.store.GetSample(sampleID); !ok {
		err := ErrNotFound{Entity: EntitySample, ID: sampleID}
		done(err)
		return blobcore.Info{}, err
	}
	key := path.Join("evidence", sampleID, uuid.NewString()+"-"+path.Base(filename))
	info, err := s.evidence.Put(ctx, key, r, blobcore.PutOptions{ContentType: contentType})
	if err != nil {
		done(err)
		return blobcore.Info{}, fmt.Errorf("store evidence: %w", err)
	}
	if url, perr := s.evidence.PresignURL(ctx, key, blobcore.SignedURLOptions{}); perr == nil {
		info.URL = url
	}
	done(nil)
	return info, nil
}

// SubmitLabReport validates parser-extracted readings against each
// parameter's rolling history and persists the resulting report. The
// historical mean and std are frozen into each result at validation time; the
// submitted values are appended to history only after the band is computed,
// so they never validate against themselves. A malformed series degrades to a
// collapsed band instead of failing the report.
func (s *Service) SubmitLabReport(ctx context.Context, sampleID string, readings []ParameterReading) (LabReport, Result, error) {
	ctx, done := s.instrument(ctx, "submit_lab_report")
	var report LabReport
	now := s.nowFn()
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		sample, ok := tx.FindSample(sampleID)
		if !ok {
			return ErrNotFound{Entity: EntitySample, ID: sampleID}
		}

		results := make([]LabResult, 0, len(readings))
		for _, reading := range readings {
			history := tx.RecentReadings(sample.SamplePointID, reading.Parameter, s.window)
			values := make([]float64, 0, len(history))
			for _, h := range history {
				values = append(values, h.Value)
			}
			band := ComputeBand(values)
			results = append(results, LabResult{
				Parameter: reading.Parameter,
				Value:     reading.Value,
				Unit:      reading.Unit,
				Mean:      band.Mean,
				Std:       band.Std,
				Verdict:   Classify(reading.Value, band),
			})
		}

		var err error
		report, err = tx.PutLabReport(LabReport{
			SampleID:    sampleID,
			Results:     results,
			Overall:     OverallVerdict(results),
			Window:      s.window,
			ValidatedAt: now,
		})
		if err != nil {
			return err
		}
		for _, reading := range readings {
			if _, err := tx.AppendReading(Reading{
				SamplePointID: sample.SamplePointID,
				Parameter:     reading.Parameter,
				Value:         reading.Value,
				Unit:          reading.Unit,
				RecordedAt:    now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	done(err)
	return report, res, err
}

// GetLabReport returns the stored report for a sample, if any.
func (s *Service) GetLabReport(sampleID string) (LabReport, bool) {
	return s.store.GetLabReport(sampleID)
}

// ErrNotFound is returned when reference validation fails within
// transactional helpers.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
