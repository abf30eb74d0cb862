// Package memory provides the in-memory implementation of the core
// persistence store, used directly for tests and ephemeral environments and
// reused as the transactional engine by the durable backends.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"metrocore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain
// persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Sample aliases domain.Sample for in-memory persistence operations.
	Sample = domain.Sample
	// StatusHistoryEntry aliases domain.StatusHistoryEntry.
	StatusHistoryEntry = domain.StatusHistoryEntry
	// LabReport aliases domain.LabReport.
	LabReport = domain.LabReport
	// SamplePoint aliases domain.SamplePoint.
	SamplePoint = domain.SamplePoint
	// Well aliases domain.Well.
	Well = domain.Well
	// Reading aliases domain.Reading.
	Reading = domain.Reading
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases the domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	samples      map[string]Sample
	history      map[string][]StatusHistoryEntry
	reports      map[string]LabReport
	samplePoints map[string]SamplePoint
	wells        map[string]Well
	readings     []Reading
}

// Snapshot captures a point-in-time clone of the store state. History is
// keyed by sample ID; readings are chronological.
type Snapshot struct {
	Samples      map[string]Sample               `json:"samples"`
	History      map[string][]StatusHistoryEntry `json:"history"`
	Reports      map[string]LabReport            `json:"reports"`
	SamplePoints map[string]SamplePoint          `json:"sample_points"`
	Wells        map[string]Well                 `json:"wells"`
	Readings     []Reading                       `json:"readings"`
}

func newMemoryState() memoryState {
	return memoryState{
		samples:      make(map[string]Sample),
		history:      make(map[string][]StatusHistoryEntry),
		reports:      make(map[string]LabReport),
		samplePoints: make(map[string]SamplePoint),
		wells:        make(map[string]Well),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.samples {
		cloned.samples[k] = cloneSample(v)
	}
	for k, v := range s.history {
		cloned.history[k] = append([]StatusHistoryEntry(nil), v...)
	}
	for k, v := range s.reports {
		cloned.reports[k] = cloneReport(v)
	}
	for k, v := range s.samplePoints {
		cloned.samplePoints[k] = v
	}
	for k, v := range s.wells {
		cloned.wells[k] = v
	}
	cloned.readings = append([]Reading(nil), s.readings...)
	return cloned
}

func cloneSample(s Sample) Sample {
	cp := s
	if s.PhaseDates != nil {
		cp.PhaseDates = make(map[domain.Stage]time.Time, len(s.PhaseDates))
		for k, v := range s.PhaseDates {
			cp.PhaseDates[k] = v
		}
	}
	if s.DueDate != nil {
		due := *s.DueDate
		cp.DueDate = &due
	}
	if s.WellID != nil {
		well := *s.WellID
		cp.WellID = &well
	}
	return cp
}

func cloneReport(r LabReport) LabReport {
	cp := r
	cp.Results = append([]domain.LabResult(nil), r.Results...)
	return cp
}

// Store provides an in-memory transactional store for the sample pipeline.
// The single mutex serializes transitions, which gives the required
// single-writer-per-sample discipline; reads clone committed state and never
// block behind an in-flight transaction's rule evaluation.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// transaction is the mutation set applied to a cloned state and committed
// atomically on success.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

var _ Transaction = (*transaction)(nil)

type transactionView struct {
	state *memoryState
}

var _ TransactionView = transactionView{}

// RunInTransaction executes fn within a transactional copy of the store
// state. Rules are evaluated over the mutated snapshot; blocking violations
// (or any error from fn) discard the whole mutation set.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := transactionView{state: &tx.state}
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(transactionView{state: &snapshot})
}

func (tx *transaction) recordChange(entity domain.EntityType, action domain.Action, before, after any) error {
	change := Change{Entity: entity, Action: action}
	if before != nil {
		payload, err := domain.NewChangePayloadFromValue(before)
		if err != nil {
			return fmt.Errorf("encode %s before: %w", entity, err)
		}
		change.Before = payload
	}
	if after != nil {
		payload, err := domain.NewChangePayloadFromValue(after)
		if err != nil {
			return fmt.Errorf("encode %s after: %w", entity, err)
		}
		change.After = payload
	}
	tx.changes = append(tx.changes, change)
	return nil
}

// Snapshot returns the read-only view of the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return transactionView{state: &tx.state}
}

// CreateSample stores a new sample within the transaction.
func (tx *transaction) CreateSample(smp Sample) (Sample, error) {
	if smp.ID == "" {
		smp.ID = tx.store.newID()
	}
	if _, exists := tx.state.samples[smp.ID]; exists {
		return Sample{}, fmt.Errorf("sample %q already exists", smp.ID)
	}
	smp.CreatedAt = tx.now
	smp.UpdatedAt = tx.now
	tx.state.samples[smp.ID] = cloneSample(smp)
	if err := tx.recordChange(domain.EntitySample, domain.ActionCreate, nil, cloneSample(smp)); err != nil {
		return Sample{}, err
	}
	return cloneSample(smp), nil
}

// UpdateSample mutates a sample using the provided mutator function.
func (tx *transaction) UpdateSample(id string, mutator func(*Sample) error) (Sample, error) {
	current, ok := tx.state.samples[id]
	if !ok {
		return Sample{}, fmt.Errorf("sample %q not found", id)
	}
	before := cloneSample(current)
	working := cloneSample(current)
	if err := mutator(&working); err != nil {
		return Sample{}, err
	}
	working.ID = id
	working.UpdatedAt = tx.now
	tx.state.samples[id] = cloneSample(working)
	if err := tx.recordChange(domain.EntitySample, domain.ActionUpdate, before, cloneSample(working)); err != nil {
		return Sample{}, err
	}
	return cloneSample(working), nil
}

// AppendHistory appends an immutable status history entry.
func (tx *transaction) AppendHistory(entry StatusHistoryEntry) (StatusHistoryEntry, error) {
	if entry.SampleID == "" {
		return StatusHistoryEntry{}, fmt.Errorf("history entry requires a sample reference")
	}
	if entry.ID == "" {
		entry.ID = tx.store.newID()
	}
	entry.CreatedAt = tx.now
	entry.UpdatedAt = tx.now
	tx.state.history[entry.SampleID] = append(tx.state.history[entry.SampleID], entry)
	if err := tx.recordChange(domain.EntityStatusHistory, domain.ActionCreate, nil, entry); err != nil {
		return StatusHistoryEntry{}, err
	}
	return entry, nil
}

// PutLabReport stores (or replaces) the validated report for a sample.
func (tx *transaction) PutLabReport(report LabReport) (LabReport, error) {
	if report.SampleID == "" {
		return LabReport{}, fmt.Errorf("lab report requires a sample reference")
	}
	if report.ID == "" {
		report.ID = tx.store.newID()
	}
	var before any
	if existing, ok := tx.state.reports[report.SampleID]; ok {
		report.CreatedAt = existing.CreatedAt
		before = cloneReport(existing)
	} else {
		report.CreatedAt = tx.now
	}
	report.UpdatedAt = tx.now
	tx.state.reports[report.SampleID] = cloneReport(report)
	action := domain.ActionCreate
	if before != nil {
		action = domain.ActionUpdate
	}
	if err := tx.recordChange(domain.EntityLabReport, action, before, cloneReport(report)); err != nil {
		return LabReport{}, err
	}
	return cloneReport(report), nil
}

// DeleteLabReport drops the cached report for a sample.
func (tx *transaction) DeleteLabReport(sampleID string) error {
	current, ok := tx.state.reports[sampleID]
	if !ok {
		return nil
	}
	delete(tx.state.reports, sampleID)
	return tx.recordChange(domain.EntityLabReport, domain.ActionDelete, cloneReport(current), nil)
}

// CreateSamplePoint stores a new sample point.
func (tx *transaction) CreateSamplePoint(p SamplePoint) (SamplePoint, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.samplePoints[p.ID]; exists {
		return SamplePoint{}, fmt.Errorf("sample point %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.samplePoints[p.ID] = p
	if err := tx.recordChange(domain.EntitySamplePoint, domain.ActionCreate, nil, p); err != nil {
		return SamplePoint{}, err
	}
	return p, nil
}

// UpdateSamplePoint mutates an existing sample point.
func (tx *transaction) UpdateSamplePoint(id string, mutator func(*SamplePoint) error) (SamplePoint, error) {
	current, ok := tx.state.samplePoints[id]
	if !ok {
		return SamplePoint{}, fmt.Errorf("sample point %q not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return SamplePoint{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.samplePoints[id] = current
	if err := tx.recordChange(domain.EntitySamplePoint, domain.ActionUpdate, before, current); err != nil {
		return SamplePoint{}, err
	}
	return current, nil
}

// CreateWell stores a new well record.
func (tx *transaction) CreateWell(w Well) (Well, error) {
	if w.ID == "" {
		w.ID = tx.store.newID()
	}
	if _, exists := tx.state.wells[w.ID]; exists {
		return Well{}, fmt.Errorf("well %q already exists", w.ID)
	}
	w.CreatedAt = tx.now
	w.UpdatedAt = tx.now
	tx.state.wells[w.ID] = w
	if err := tx.recordChange(domain.EntityWell, domain.ActionCreate, nil, w); err != nil {
		return Well{}, err
	}
	return w, nil
}

// AppendReading appends a historical parameter reading.
func (tx *transaction) AppendReading(r Reading) (Reading, error) {
	if r.SamplePointID == "" {
		return Reading{}, fmt.Errorf("reading requires a sample point reference")
	}
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = tx.now
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.readings = append(tx.state.readings, r)
	if err := tx.recordChange(domain.EntityReading, domain.ActionCreate, nil, r); err != nil {
		return Reading{}, err
	}
	return r, nil
}

// FindSample retrieves a sample by ID from the transaction state.
func (tx *transaction) FindSample(id string) (Sample, bool) {
	smp, ok := tx.state.samples[id]
	if !ok {
		return Sample{}, false
	}
	return cloneSample(smp), true
}

// FindSamplePoint retrieves a sample point by ID.
func (tx *transaction) FindSamplePoint(id string) (SamplePoint, bool) {
	p, ok := tx.state.samplePoints[id]
	return p, ok
}

// FindWell retrieves a well by ID.
func (tx *transaction) FindWell(id string) (Well, bool) {
	w, ok := tx.state.wells[id]
	return w, ok
}

// FindLabReport retrieves the stored report for a sample.
func (tx *transaction) FindLabReport(sampleID string) (LabReport, bool) {
	r, ok := tx.state.reports[sampleID]
	if !ok {
		return LabReport{}, false
	}
	return cloneReport(r), true
}

// HistoryFor returns the audit trail for a sample, oldest first.
func (tx *transaction) HistoryFor(sampleID string) []StatusHistoryEntry {
	return append([]StatusHistoryEntry(nil), tx.state.history[sampleID]...)
}

// RecentReadings returns the most recent limit readings for the pair, oldest
// first.
func (tx *transaction) RecentReadings(samplePointID string, parameter domain.Parameter, limit int) []Reading {
	return recentReadings(tx.state.readings, samplePointID, parameter, limit)
}

func recentReadings(all []Reading, samplePointID string, parameter domain.Parameter, limit int) []Reading {
	var matched []Reading
	for _, r := range all {
		if r.SamplePointID == samplePointID && r.Parameter == parameter {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].RecordedAt.Before(matched[j].RecordedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched
}

// transactionView implements the read-only rule view over a state snapshot.

func (v transactionView) ListSamples() []Sample {
	out := make([]Sample, 0, len(v.state.samples))
	for _, smp := range v.state.samples {
		out = append(out, cloneSample(smp))
	}
	return out
}

func (v transactionView) ListSamplePoints() []SamplePoint {
	out := make([]SamplePoint, 0, len(v.state.samplePoints))
	for _, p := range v.state.samplePoints {
		out = append(out, p)
	}
	return out
}

func (v transactionView) FindSample(id string) (Sample, bool) {
	smp, ok := v.state.samples[id]
	if !ok {
		return Sample{}, false
	}
	return cloneSample(smp), true
}

func (v transactionView) FindSamplePoint(id string) (SamplePoint, bool) {
	p, ok := v.state.samplePoints[id]
	return p, ok
}

func (v transactionView) FindWell(id string) (Well, bool) {
	w, ok := v.state.wells[id]
	return w, ok
}

func (v transactionView) FindLabReport(sampleID string) (LabReport, bool) {
	r, ok := v.state.reports[sampleID]
	if !ok {
		return LabReport{}, false
	}
	return cloneReport(r), true
}

func (v transactionView) HistoryFor(sampleID string) []StatusHistoryEntry {
	return append([]StatusHistoryEntry(nil), v.state.history[sampleID]...)
}

// Read helpers ---------------------------------------------------------------

// GetSample retrieves a sample by ID from committed state.
func (s *Store) GetSample(id string) (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	smp, ok := s.state.samples[id]
	if !ok {
		return Sample{}, false
	}
	return cloneSample(smp), true
}

// ListSamples returns all samples from committed state.
func (s *Store) ListSamples() []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Sample, 0, len(s.state.samples))
	for _, smp := range s.state.samples {
		out = append(out, cloneSample(smp))
	}
	return out
}

// HistoryFor returns the committed audit trail for a sample, oldest first.
func (s *Store) HistoryFor(sampleID string) []StatusHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]StatusHistoryEntry(nil), s.state.history[sampleID]...)
}

// GetLabReport returns the committed report for a sample, if any.
func (s *Store) GetLabReport(sampleID string) (LabReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.reports[sampleID]
	if !ok {
		return LabReport{}, false
	}
	return cloneReport(r), true
}

// GetSamplePoint retrieves a sample point by ID.
func (s *Store) GetSamplePoint(id string) (SamplePoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.samplePoints[id]
	return p, ok
}

// ListSamplePoints returns all sample points.
func (s *Store) ListSamplePoints() []SamplePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SamplePoint, 0, len(s.state.samplePoints))
	for _, p := range s.state.samplePoints {
		out = append(out, p)
	}
	return out
}

// GetWell retrieves a well by ID.
func (s *Store) GetWell(id string) (Well, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.state.wells[id]
	return w, ok
}

// RecentReadings returns the most recent limit readings for the pair, oldest
// first.
func (s *Store) RecentReadings(samplePointID string, parameter domain.Parameter, limit int) []Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recentReadings(s.state.readings, samplePointID, parameter, limit)
}

// ExportState returns a deep snapshot of committed state for durable backends.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cloned := s.state.clone()
	return Snapshot{
		Samples:      cloned.samples,
		History:      cloned.history,
		Reports:      cloned.reports,
		SamplePoints: cloned.samplePoints,
		Wells:        cloned.wells,
		Readings:     cloned.readings,
	}
}

// ImportState replaces committed state from a snapshot, hydrating missing
// buckets with empty maps.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := newMemoryState()
	for k, v := range snapshot.Samples {
		state.samples[k] = cloneSample(v)
	}
	for k, v := range snapshot.History {
		state.history[k] = append([]StatusHistoryEntry(nil), v...)
	}
	for k, v := range snapshot.Reports {
		state.reports[k] = cloneReport(v)
	}
	for k, v := range snapshot.SamplePoints {
		state.samplePoints[k] = v
	}
	for k, v := range snapshot.Wells {
		state.wells[k] = v
	}
	state.readings = append([]Reading(nil), snapshot.Readings...)
	s.state = state
}
