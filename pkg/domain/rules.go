package domain

import "context"

// RuleView is the read-only entity surface rules evaluate against. Inside a
// transaction it reflects pending changes, not just committed state.
type RuleView interface {
	ListSamples() []Sample
	ListSamplePoints() []SamplePoint
	FindSample(id string) (Sample, bool)
	FindSamplePoint(id string) (SamplePoint, bool)
	FindWell(id string) (Well, bool)
	FindLabReport(sampleID string) (LabReport, bool)
	HistoryFor(sampleID string) []StatusHistoryEntry
}

// Rule inspects the change set of a transaction against a read-only view of
// the committed-plus-pending state and reports violations. Rules never
// mutate; blocking violations abort the transaction.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine runs every registered rule over a transaction's change set.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an empty engine; rules are added via Register.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule. Evaluation order follows registration order.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate merges the results of all registered rules. A rule error aborts
// evaluation immediately; violations alone do not.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
