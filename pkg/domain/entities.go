// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by metrocore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntitySample identifies a fluid sample record.
	EntitySample EntityType = "sample"
	// EntityStatusHistory identifies an immutable status history entry.
	EntityStatusHistory EntityType = "status_history"
	// EntityLabReport identifies a validated lab report record.
	EntityLabReport EntityType = "lab_report"
	// EntitySamplePoint identifies a sample point record.
	EntitySamplePoint EntityType = "sample_point"
	// EntityWell identifies a well record.
	EntityWell EntityType = "well"
	// EntityReading identifies a historical parameter reading.
	EntityReading EntityType = "reading"
)

// AnalysisType enumerates the laboratory analysis families a sample is drawn for.
type AnalysisType string

// Canonical analysis types recognised by the sampling pipeline.
const (
	AnalysisSpecificMass   AnalysisType = "specific_mass"
	AnalysisViscosity      AnalysisType = "viscosity"
	AnalysisPVT            AnalysisType = "pvt"
	AnalysisChromatography AnalysisType = "chromatography"
	AnalysisDensity        AnalysisType = "density"
	AnalysisBSW            AnalysisType = "bsw"
	AnalysisSulfur         AnalysisType = "sulfur"
)

// Parameter names the measurable quantities extracted from a lab report.
type Parameter string

// Fixed parameter vocabulary produced by the external report parser.
const (
	ParameterDensity       Parameter = "density"
	ParameterRS            Parameter = "rs"
	ParameterFE            Parameter = "fe"
	ParameterO2            Parameter = "o2"
	ParameterDensityAbsStd Parameter = "density_abs_std"
	ParameterDensityAbsOp  Parameter = "density_abs_op"
	ParameterViscosity     Parameter = "viscosity"
	ParameterSalinity      Parameter = "salinity"
	ParameterBSW           Parameter = "bsw"
	ParameterSulfur        Parameter = "sulfur"
)

// Verdict classifies a reading (or a whole report) against the historical band.
type Verdict string

// Verdict outcomes. A report with any failing parameter fails overall.
const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// SamplePointKind distinguishes fiscal, operational, and test-separator points.
type SamplePointKind string

// Sample point kinds. Only test-separator points may link a well.
const (
	PointFiscal        SamplePointKind = "fiscal"
	PointOperational   SamplePointKind = "operational"
	PointTestSeparator SamplePointKind = "test_separator"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sample represents one physical fluid sample drawn at a sample point. Its
// stage and due date are mutated exclusively through the transition engine.
type Sample struct {
	Base
	Identifier    string              `json:"identifier"`
	SamplePointID string              `json:"sample_point_id"`
	AnalysisType  AnalysisType        `json:"analysis_type"`
	Stage         Stage               `json:"stage"`
	PhaseDates    map[Stage]time.Time `json:"phase_dates"`
	DueDate       *time.Time          `json:"due_date"`
	Active        bool                `json:"active"`
	WellID        *string             `json:"well_id,omitempty"`
	Mitigated     bool                `json:"mitigated"`
}

// EvidenceRef points at proof attached to a transition: either an uploaded
// blob key or an external URL, never both.
type EvidenceRef struct {
	FileKey string `json:"file_key,omitempty"`
	URL     string `json:"url,omitempty"`
}

// IsZero reports whether no evidence is attached.
func (e EvidenceRef) IsZero() bool { return e.FileKey == "" && e.URL == "" }

// StatusHistoryEntry is the immutable audit record appended on every accepted
// transition. Entries are ordered by creation and never rewritten.
type StatusHistoryEntry struct {
	Base
	SampleID  string      `json:"sample_id"`
	Stage     Stage       `json:"stage"`
	EnteredAt time.Time   `json:"entered_at"`
	Actor     string      `json:"actor"`
	Comment   string      `json:"comment,omitempty"`
	Evidence  EvidenceRef `json:"evidence,omitempty"`
	Verdict   *Verdict    `json:"verdict,omitempty"`
}

// LabResult is one parameter reading validated against the historical band.
// Mean and std are frozen at validation time and never recomputed.
type LabResult struct {
	Parameter Parameter `json:"parameter"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Mean      float64   `json:"historical_mean"`
	Std       float64   `json:"historical_std"`
	Verdict   Verdict   `json:"verdict"`
}

// LabReport collects the validated results for one sample's report.
type LabReport struct {
	Base
	SampleID    string      `json:"sample_id"`
	Results     []LabResult `json:"results"`
	Overall     Verdict     `json:"overall_status"`
	Window      int         `json:"window"`
	ValidatedAt time.Time   `json:"validated_at"`
}

// SamplePoint is the physical location samples are drawn from.
type SamplePoint struct {
	Base
	Name string          `json:"name"`
	Kind SamplePointKind `json:"kind"`
	Tag  string          `json:"tag,omitempty"`
}

// Well is a production well referenced by test-separator sample points.
type Well struct {
	Base
	Name string `json:"name"`
	Code string `json:"code"`
}

// Reading is one historical numeric measurement for a (sample point, parameter)
// pair, consumed by the statistical validator.
type Reading struct {
	Base
	SamplePointID string    `json:"sample_point_id"`
	Parameter     Parameter `json:"parameter"`
	Value         float64   `json:"value"`
	Unit          string    `json:"unit"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before ChangePayload
	After  ChangePayload
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
