package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"metrocore/pkg/domain"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" {
		t.Fatal("expected a generated expvar name")
	}

	ctx := context.Background()
	rec.Observe(ctx, "transition", true, 20*time.Millisecond)
	rec.Observe(ctx, "transition", true, 30*time.Millisecond)
	rec.Observe(ctx, "transition", false, 10*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second) // ignored

	snap := rec.Snapshot()
	stats := snap.Operations["transition"]
	if stats.DurationMSTotal != 60 {
		t.Fatalf("durations = %v, want 60", stats.DurationMSTotal)
	}
	if stats.Success != 2 || stats.Error != 1 {
		t.Fatalf("counts = %+v, want 2 success / 1 error", stats)
	}
	if len(snap.Operations) != 1 {
		t.Fatalf("operations = %d, want 1", len(snap.Operations))
	}
}

func TestExpvarMetricsRecorderNamesAreUnique(t *testing.T) {
	a := NewExpvarMetricsRecorder("")
	b := NewExpvarMetricsRecorder("")
	if a.Name() == b.Name() {
		t.Fatalf("generated names collide: %s", a.Name())
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)

	_, span := tracer.Start(context.Background(), "submit_lab_report")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "transition")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Operation != "submit_lab_report" || entries[0].Status != "success" {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Fatalf("second entry = %+v", entries[1])
	}

	dec := json.NewDecoder(&buf)
	var lines int
	for dec.More() {
		var entry JSONTraceEntry
		if err := dec.Decode(&entry); err != nil {
			t.Fatalf("decode emitted span: %v", err)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("emitted lines = %d, want 2", lines)
	}
}

func TestJSONTracerWithoutWriter(t *testing.T) {
	tracer := NewJSONTracer(nil)
	_, span := tracer.Start(context.Background(), "transition")
	span.End(nil)
	if len(tracer.Entries()) != 1 {
		t.Fatal("span not retained")
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusMetricsRecorder(reg)

	ctx := context.Background()
	rec.Observe(ctx, "create_sample", true, 5*time.Millisecond)
	rec.Observe(ctx, "create_sample", true, 5*time.Millisecond)
	rec.Observe(ctx, "create_sample", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second) // ignored

	if got := testutil.ToFloat64(rec.results.WithLabelValues("create_sample", "success")); got != 2 {
		t.Fatalf("success counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("create_sample", "error")); got != 1 {
		t.Fatalf("error counter = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	if !names["metrocore_service_operations_total"] || !names["metrocore_service_operation_duration_seconds"] {
		t.Fatalf("metric families missing: %v", names)
	}
}

func TestServiceInstrumentationEmitsOutcomes(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	tracer := NewJSONTracer(nil)
	svc := NewInMemoryService(NewDefaultRulesEngine(),
		WithMetrics(rec),
		WithTracer(tracer),
	)
	ctx := context.Background()

	if _, _, err := svc.CreateSamplePoint(ctx, domain.SamplePoint{Name: "P-01", Kind: domain.PointFiscal}); err != nil {
		t.Fatalf("create sample point: %v", err)
	}
	if _, _, err := svc.CreateSample(ctx, domain.Sample{Identifier: "X", SamplePointID: "missing"}, "tech"); err == nil {
		t.Fatal("expected failure for unknown sample point")
	}

	snap := rec.Snapshot()
	if got := snap.Operations["create_sample_point"]; got.Success != 1 {
		t.Fatalf("create_sample_point stats = %+v", got)
	}
	if got := snap.Operations["create_sample"]; got.Error != 1 {
		t.Fatalf("create_sample stats = %+v", got)
	}

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("spans = %d, want 2", len(entries))
	}
	if entries[1].Status != "error" {
		t.Fatalf("failed operation span = %+v", entries[1])
	}
}
