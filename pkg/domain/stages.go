package domain

// Stage is one of the eleven ordered points in the sample pipeline.
type Stage string

// Canonical pipeline stages in lifecycle order.
const (
	StagePlanned               Stage = "planned"
	StageSampled               Stage = "sampled"
	StageDisembarkPreparation  Stage = "disembark_preparation"
	StageDisembarkLogistics    Stage = "disembark_logistics"
	StageWarehouse             Stage = "warehouse"
	StageLogisticsToVendor     Stage = "logistics_to_vendor"
	StageDeliveredAtVendor     Stage = "delivered_at_vendor"
	StageReportIssued          Stage = "report_issued"
	StageReportUnderValidation Stage = "report_under_validation"
	StageReportApproved        Stage = "report_approved_reproved"
	StageFlowComputerUpdated   Stage = "flow_computer_updated"
)

// StageOrder lists all stages in pipeline order. Index zero is the initial
// stage; the last element is terminal.
var StageOrder = []Stage{
	StagePlanned,
	StageSampled,
	StageDisembarkPreparation,
	StageDisembarkLogistics,
	StageWarehouse,
	StageLogisticsToVendor,
	StageDeliveredAtVendor,
	StageReportIssued,
	StageReportUnderValidation,
	StageReportApproved,
	StageFlowComputerUpdated,
}

var stageIndex = func() map[Stage]int {
	m := make(map[Stage]int, len(StageOrder))
	for i, s := range StageOrder {
		m[s] = i
	}
	return m
}()

// InitialStage is the stage every sample is created in.
const InitialStage = StagePlanned

// TerminalStage ends the pipeline; it is an end state, not a deletion.
const TerminalStage = StageFlowComputerUpdated

// StageIndex returns the ordinal position of a stage and whether it is a
// registry value.
func StageIndex(s Stage) (int, bool) {
	i, ok := stageIndex[s]
	return i, ok
}

// NextStage returns the stage following s, or false at the terminal boundary
// or for unknown stages.
func NextStage(s Stage) (Stage, bool) {
	i, ok := stageIndex[s]
	if !ok || i == len(StageOrder)-1 {
		return "", false
	}
	return StageOrder[i+1], true
}

// PreviousStage returns the stage preceding s, or false at the initial
// boundary or for unknown stages.
func PreviousStage(s Stage) (Stage, bool) {
	i, ok := stageIndex[s]
	if !ok || i == 0 {
		return "", false
	}
	return StageOrder[i-1], true
}

var stageLabels = map[Stage]string{
	StagePlanned:               "Planned",
	StageSampled:               "Sampled",
	StageDisembarkPreparation:  "Disembark preparation",
	StageDisembarkLogistics:    "Disembark logistics",
	StageWarehouse:             "Warehouse",
	StageLogisticsToVendor:     "Logistics to vendor",
	StageDeliveredAtVendor:     "Delivered at vendor",
	StageReportIssued:          "Report issued",
	StageReportUnderValidation: "Report under validation",
	StageReportApproved:        "Report approved/reproved",
	StageFlowComputerUpdated:   "Flow computer updated",
}

// StageLabel returns the operator-facing label for a stage.
func StageLabel(s Stage) string { return stageLabels[s] }

// PhaseCluster groups stages into the five operator-facing dashboard buckets.
type PhaseCluster string

// Dashboard phase clusters in pipeline order.
const (
	ClusterSampling  PhaseCluster = "sampling"
	ClusterDisembark PhaseCluster = "disembark"
	ClusterLogistics PhaseCluster = "logistics"
	ClusterReport    PhaseCluster = "report"
	ClusterFCUpdate  PhaseCluster = "fc_update"
)

// ClusterOrder lists the dashboard clusters in display order.
var ClusterOrder = []PhaseCluster{
	ClusterSampling,
	ClusterDisembark,
	ClusterLogistics,
	ClusterReport,
	ClusterFCUpdate,
}

var stageClusters = map[Stage]PhaseCluster{
	StagePlanned:               ClusterSampling,
	StageSampled:               ClusterSampling,
	StageDisembarkPreparation:  ClusterDisembark,
	StageDisembarkLogistics:    ClusterDisembark,
	StageWarehouse:             ClusterLogistics,
	StageLogisticsToVendor:     ClusterLogistics,
	StageDeliveredAtVendor:     ClusterLogistics,
	StageReportIssued:          ClusterReport,
	StageReportUnderValidation: ClusterReport,
	StageReportApproved:        ClusterReport,
	StageFlowComputerUpdated:   ClusterFCUpdate,
}

// ClusterOf returns the dashboard cluster a stage belongs to.
func ClusterOf(s Stage) (PhaseCluster, bool) {
	c, ok := stageClusters[s]
	return c, ok
}

// ClusterStages returns the stages of a cluster in pipeline order.
func ClusterStages(c PhaseCluster) []Stage {
	var out []Stage
	for _, s := range StageOrder {
		if stageClusters[s] == c {
			out = append(out, s)
		}
	}
	return out
}

// StageBudgets maps each stage to its SLA day budget: the number of calendar
// days allowed before the next phase is expected to begin. The terminal stage
// carries no budget.
type StageBudgets map[Stage]int

// DefaultStageBudgets returns the stock 10-10-5-5 deployment pattern.
// Deployments override it through configuration, never in code.
func DefaultStageBudgets() StageBudgets {
	return StageBudgets{
		StagePlanned:               10,
		StageSampled:               10,
		StageDisembarkPreparation:  5,
		StageDisembarkLogistics:    5,
		StageWarehouse:             5,
		StageLogisticsToVendor:     5,
		StageDeliveredAtVendor:     10,
		StageReportIssued:          5,
		StageReportUnderValidation: 5,
		StageReportApproved:        5,
	}
}
