package core

import "metrocore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Stage              = domain.Stage
	PhaseCluster       = domain.PhaseCluster
	StageBudgets       = domain.StageBudgets
	AnalysisType       = domain.AnalysisType
	Parameter          = domain.Parameter
	Verdict            = domain.Verdict
	Severity           = domain.Severity
	Base               = domain.Base
	Sample             = domain.Sample
	StatusHistoryEntry = domain.StatusHistoryEntry
	EvidenceRef        = domain.EvidenceRef
	LabResult          = domain.LabResult
	LabReport          = domain.LabReport
	SamplePoint        = domain.SamplePoint
	Well               = domain.Well
	Reading            = domain.Reading
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	RuleView           = domain.RuleView
	PersistentStore    = domain.PersistentStore
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
)

const (
	EntitySample        = domain.EntitySample
	EntityStatusHistory = domain.EntityStatusHistory
	EntityLabReport     = domain.EntityLabReport
	EntitySamplePoint   = domain.EntitySamplePoint
	EntityWell          = domain.EntityWell
	EntityReading       = domain.EntityReading
)

const (
	StagePlanned               = domain.StagePlanned
	StageSampled               = domain.StageSampled
	StageDisembarkPreparation  = domain.StageDisembarkPreparation
	StageDisembarkLogistics    = domain.StageDisembarkLogistics
	StageWarehouse             = domain.StageWarehouse
	StageLogisticsToVendor     = domain.StageLogisticsToVendor
	StageDeliveredAtVendor     = domain.StageDeliveredAtVendor
	StageReportIssued          = domain.StageReportIssued
	StageReportUnderValidation = domain.StageReportUnderValidation
	StageReportApproved        = domain.StageReportApproved
	StageFlowComputerUpdated   = domain.StageFlowComputerUpdated
)

const (
	VerdictPass = domain.VerdictPass
	VerdictFail = domain.VerdictFail
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
