package core

import (
	"testing"
	"time"

	"metrocore/pkg/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDueDateFromBudget(t *testing.T) {
	calc := NewSLACalculator(nil)

	due, ok := calc.DueDate(domain.StagePlanned, day("2025-01-01"))
	if !ok {
		t.Fatalf("expected budget for planned stage")
	}
	if want := day("2025-01-11"); !due.Equal(want) {
		t.Fatalf("due = %s, want %s", due, want)
	}

	// Intra-day timestamps truncate to the calendar day before adding budget.
	due2, ok := calc.DueDate(domain.StagePlanned, day("2025-01-01").Add(23*time.Hour))
	if !ok || !due2.Equal(due) {
		t.Fatalf("expected timestamp truncation, got %s", due2)
	}

	if _, ok := calc.DueDate(domain.TerminalStage, day("2025-01-01")); ok {
		t.Fatalf("terminal stage must not produce a due date")
	}
}

func TestDueDateSkipsHolidays(t *testing.T) {
	calc := NewSLACalculator(
		domain.StageBudgets{domain.StageWarehouse: 2},
		WithHolidays([]time.Time{day("2025-01-02"), day("2025-01-03")}),
	)
	due, ok := calc.DueDate(domain.StageWarehouse, day("2025-01-01"))
	if !ok {
		t.Fatalf("expected due date")
	}
	if want := day("2025-01-05"); !due.Equal(want) {
		t.Fatalf("due = %s, want %s", due, want)
	}
}

func TestUrgencyClassification(t *testing.T) {
	calc := NewSLACalculator(nil)
	today := day("2025-03-10")

	cases := []struct {
		name  string
		stage domain.Stage
		due   *time.Time
		want  Urgency
	}{
		{"terminal is complete", domain.TerminalStage, ptr(day("2025-03-01")), Urgency{Class: UrgencyComplete}},
		{"missing due date", domain.StageSampled, nil, Urgency{Class: UrgencyNotApplicable}},
		{"three days late", domain.StageSampled, ptr(day("2025-03-07")), Urgency{Class: UrgencyOverdue, Days: 3}},
		{"due today", domain.StageSampled, ptr(day("2025-03-10")), Urgency{Class: UrgencyDueToday}},
		{"due tomorrow", domain.StageSampled, ptr(day("2025-03-11")), Urgency{Class: UrgencyDueTomorrow}},
		{"on track", domain.StageSampled, ptr(day("2025-03-14")), Urgency{Class: UrgencyOnTrack, Days: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.Urgency(tc.stage, tc.due, today)
			if got != tc.want {
				t.Fatalf("urgency = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestBudgetIgnoresNonPositiveEntries(t *testing.T) {
	calc := NewSLACalculator(domain.StageBudgets{domain.StageSampled: 0})
	if _, ok := calc.Budget(domain.StageSampled); ok {
		t.Fatalf("zero budget must not be usable")
	}
}

func ptr[T any](v T) *T { return &v }
