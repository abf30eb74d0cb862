package domain

import "testing"

func TestStageOrderAndAdjacency(t *testing.T) {
	if InitialStage != StageOrder[0] {
		t.Fatalf("expected initial stage first in order")
	}
	if TerminalStage != StageOrder[len(StageOrder)-1] {
		t.Fatalf("expected terminal stage last in order")
	}
	for i, stage := range StageOrder {
		idx, ok := StageIndex(stage)
		if !ok || idx != i {
			t.Fatalf("stage %s: index %d ok=%v, want %d", stage, idx, ok, i)
		}
	}
	if _, ok := StageIndex(Stage("bogus")); ok {
		t.Fatalf("expected unknown stage to have no index")
	}
}

func TestNextAndPreviousStage(t *testing.T) {
	for i, stage := range StageOrder {
		next, ok := NextStage(stage)
		if i == len(StageOrder)-1 {
			if ok {
				t.Fatalf("terminal stage must have no next, got %s", next)
			}
		} else if !ok || next != StageOrder[i+1] {
			t.Fatalf("next of %s: got %s ok=%v", stage, next, ok)
		}
		prev, ok := PreviousStage(stage)
		if i == 0 {
			if ok {
				t.Fatalf("initial stage must have no previous, got %s", prev)
			}
		} else if !ok || prev != StageOrder[i-1] {
			t.Fatalf("previous of %s: got %s ok=%v", stage, prev, ok)
		}
	}
}

func TestClusterCoverage(t *testing.T) {
	covered := make(map[Stage]bool)
	for _, cluster := range ClusterOrder {
		for _, stage := range ClusterStages(cluster) {
			if covered[stage] {
				t.Fatalf("stage %s assigned to multiple clusters", stage)
			}
			covered[stage] = true
			if got, _ := ClusterOf(stage); got != cluster {
				t.Fatalf("ClusterOf(%s) = %s, want %s", stage, got, cluster)
			}
		}
	}
	for _, stage := range StageOrder {
		if !covered[stage] {
			t.Fatalf("stage %s not covered by any cluster", stage)
		}
	}
}

func TestDefaultStageBudgets(t *testing.T) {
	budgets := DefaultStageBudgets()
	if _, ok := budgets[TerminalStage]; ok {
		t.Fatalf("terminal stage must not carry a budget")
	}
	for _, stage := range StageOrder[:len(StageOrder)-1] {
		days, ok := budgets[stage]
		if !ok {
			t.Fatalf("stage %s missing budget", stage)
		}
		if days <= 0 {
			t.Fatalf("stage %s budget %d must be positive", stage, days)
		}
	}
}

func TestStageLabels(t *testing.T) {
	for _, stage := range StageOrder {
		if StageLabel(stage) == "" {
			t.Fatalf("stage %s missing label", stage)
		}
	}
}
