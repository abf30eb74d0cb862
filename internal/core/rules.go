package core

import "metrocore/pkg/domain"

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set
// guarding the sample pipeline invariants.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(StageTransitionRule())
	engine.Register(HistoryAppendRule())
	engine.Register(PhaseDateRule())
	engine.Register(WellLinkageRule())
	return engine
}
