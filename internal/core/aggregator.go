package core

import (
	"sort"
	"time"

	"metrocore/pkg/domain"
)

// StageCount splits the active samples sitting in one stage by urgency bucket.
type StageCount struct {
	Stage       domain.Stage `json:"stage"`
	Label       string       `json:"label"`
	Overdue     int          `json:"overdue"`
	DueToday    int          `json:"due_today"`
	DueTomorrow int          `json:"due_tomorrow"`
	Others      int          `json:"others"`
	Total       int          `json:"total"`
}

// ClusterStat is the dashboard counter block for one phase cluster.
type ClusterStat struct {
	Cluster     domain.PhaseCluster `json:"cluster"`
	Overdue     int                 `json:"overdue"`
	DueToday    int                 `json:"due_today"`
	DueTomorrow int                 `json:"due_tomorrow"`
	Others      int                 `json:"others"`
	Total       int                 `json:"total"`
	Stages      []StageCount        `json:"stages"`
}

// Aggregate groups active samples by phase cluster and urgency bucket for the
// dashboard counters. It is a pure read over the supplied slice and never
// mutates samples. Every cluster appears in the output, empty or not, in
// display order.
func Aggregate(samples []domain.Sample, calc *SLACalculator, today time.Time) []ClusterStat {
	byStage := make(map[domain.Stage]*StageCount, len(domain.StageOrder))
	for _, stage := range domain.StageOrder {
		byStage[stage] = &StageCount{Stage: stage, Label: domain.StageLabel(stage)}
	}

	for _, sample := range samples {
		if !sample.Active {
			continue
		}
		count, ok := byStage[sample.Stage]
		if !ok {
			continue
		}
		switch calc.Urgency(sample.Stage, sample.DueDate, today).Class {
		case UrgencyOverdue:
			count.Overdue++
		case UrgencyDueToday:
			count.DueToday++
		case UrgencyDueTomorrow:
			count.DueTomorrow++
		default:
			count.Others++
		}
		count.Total++
	}

	out := make([]ClusterStat, 0, len(domain.ClusterOrder))
	for _, cluster := range domain.ClusterOrder {
		stat := ClusterStat{Cluster: cluster}
		for _, stage := range domain.ClusterStages(cluster) {
			count := byStage[stage]
			stat.Overdue += count.Overdue
			stat.DueToday += count.DueToday
			stat.DueTomorrow += count.DueTomorrow
			stat.Others += count.Others
			stat.Total += count.Total
			stat.Stages = append(stat.Stages, *count)
		}
		out = append(out, stat)
	}
	return out
}

// SortByUrgency orders samples most overdue first; samples without a due date
// sort last. The input slice is sorted in place and returned for chaining.
func SortByUrgency(samples []domain.Sample, calc *SLACalculator, today time.Time) []domain.Sample {
	rank := func(s domain.Sample) (int, int) {
		u := calc.Urgency(s.Stage, s.DueDate, today)
		switch u.Class {
		case UrgencyOverdue:
			return 0, -u.Days
		case UrgencyDueToday:
			return 1, 0
		case UrgencyDueTomorrow:
			return 2, 0
		case UrgencyOnTrack:
			return 3, u.Days
		case UrgencyComplete:
			return 4, 0
		default:
			return 5, 0
		}
	}
	sort.SliceStable(samples, func(i, j int) bool {
		ci, di := rank(samples[i])
		cj, dj := rank(samples[j])
		if ci != cj {
			return ci < cj
		}
		return di < dj
	})
	return samples
}
