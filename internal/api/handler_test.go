package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"metrocore/internal/core"
	blobmem "metrocore/internal/infra/blob/memory"
	"metrocore/pkg/domain"
)

var testClock = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (*Handler, *core.Service) {
	t.Helper()
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine(),
		core.WithClock(func() time.Time { return testClock }),
		core.WithEvidenceStore(blobmem.New()),
	)
	return NewHandler(svc), svc
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createPoint(t *testing.T, h *Handler) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/sample-points", map[string]any{"name": "P-07", "kind": "fiscal", "tag": "FT-2031"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create point status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Point domain.SamplePoint `json:"sample_point"`
	}
	decodeBody(t, rec, &resp)
	return resp.Point.ID
}

func createSample(t *testing.T, h *Handler, pointID string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/samples", map[string]any{
		"identifier":      "AMO-1042",
		"sample_point_id": pointID,
		"analysis_type":   "density",
		"actor":           "tech.silva",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sample status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Sample domain.Sample `json:"sample"`
	}
	decodeBody(t, rec, &resp)
	return resp.Sample.ID
}

func TestSampleLifecycleOverHTTP(t *testing.T) {
	h, _ := newTestHandler(t)
	pointID := createPoint(t, h)
	sampleID := createSample(t, h, pointID)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/samples/"+sampleID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get sample status = %d", rec.Code)
	}
	var getResp struct {
		Sample struct {
			domain.Sample
			Urgency core.Urgency `json:"urgency"`
		} `json:"sample"`
	}
	decodeBody(t, rec, &getResp)
	if getResp.Sample.Stage != domain.StagePlanned {
		t.Fatalf("stage = %s", getResp.Sample.Stage)
	}
	if getResp.Sample.Urgency.Class != core.UrgencyOnTrack {
		t.Fatalf("urgency = %+v", getResp.Sample.Urgency)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/samples/"+sampleID+"/transition", map[string]any{
		"target": "sampled",
		"actor":  "tech.silva",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("transition status = %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/samples/"+sampleID+"/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	var histResp struct {
		History []domain.StatusHistoryEntry `json:"history"`
	}
	decodeBody(t, rec, &histResp)
	if len(histResp.History) != 2 {
		t.Fatalf("history = %d entries, want 2", len(histResp.History))
	}
}

func TestTransitionRejectionsMapTo422(t *testing.T) {
	h, _ := newTestHandler(t)
	pointID := createPoint(t, h)
	sampleID := createSample(t, h, pointID)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/samples/"+sampleID+"/transition", map[string]any{
		"target": "warehouse",
		"actor":  "tech.silva",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body)
	}
	var errResp struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	decodeBody(t, rec, &errResp)
	if errResp.Code != string(core.ReasonInvalidTransition) {
		t.Fatalf("code = %q", errResp.Code)
	}
}

func TestUnknownSampleMapsTo404(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/api/v1/samples/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/v1/samples/nope/transition", map[string]any{"target": "sampled", "actor": "a"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("transition status = %d, want 404: %s", rec.Code, rec.Body)
	}
}

func TestReportSubmissionAndRetrieval(t *testing.T) {
	h, _ := newTestHandler(t)
	pointID := createPoint(t, h)
	sampleID := createSample(t, h, pointID)

	for _, v := range []float64{850, 852, 848} {
		rec := doJSON(t, h, http.MethodPost, "/api/v1/readings", map[string]any{
			"sample_point_id": pointID,
			"parameter":       "density",
			"value":           v,
			"unit":            "kg/m3",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("reading status = %d: %s", rec.Code, rec.Body)
		}
	}

	rec := doJSON(t, h, http.MethodPost, "/api/v1/samples/"+sampleID+"/report", map[string]any{
		"readings": []map[string]any{{"parameter": "density", "value": 851, "unit": "kg/m3"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("report status = %d: %s", rec.Code, rec.Body)
	}
	var repResp struct {
		Report domain.LabReport `json:"report"`
	}
	decodeBody(t, rec, &repResp)
	if repResp.Report.Overall != domain.VerdictPass {
		t.Fatalf("overall = %s", repResp.Report.Overall)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/samples/"+sampleID+"/report", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get report status = %d", rec.Code)
	}
}

func TestEvidenceUploadOverHTTP(t *testing.T) {
	h, _ := newTestHandler(t)
	pointID := createPoint(t, h)
	sampleID := createSample(t, h, pointID)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/samples/%s/evidence?filename=manifest.pdf", sampleID), strings.NewReader("pdf-bytes"))
	req.Header.Set("Content-Type", "application/pdf")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("evidence status = %d: %s", rec.Code, rec.Body)
	}
	var evResp struct {
		Evidence struct {
			Key string `json:"key"`
		} `json:"evidence"`
	}
	decodeBody(t, rec, &evResp)
	if !strings.HasPrefix(evResp.Evidence.Key, "evidence/"+sampleID+"/") {
		t.Fatalf("key = %q", evResp.Evidence.Key)
	}

	// Missing filename is a client error.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/samples/"+sampleID+"/evidence", strings.NewReader("x"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	pointID := createPoint(t, h)
	createSample(t, h, pointID)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}
	var resp struct {
		Clusters []core.ClusterStat `json:"clusters"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Clusters) != len(domain.ClusterOrder) {
		t.Fatalf("clusters = %d, want %d", len(resp.Clusters), len(domain.ClusterOrder))
	}
	if resp.Clusters[0].Total != 1 {
		t.Fatalf("sampling cluster total = %d, want 1", resp.Clusters[0].Total)
	}
}

func TestRuleViolationMapsTo409(t *testing.T) {
	h, _ := newTestHandler(t)
	pointID := createPoint(t, h)
	sampleID := createSample(t, h, pointID)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/wells", map[string]any{"name": "MLS-112", "code": "7-MLS-112D"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create well status = %d", rec.Code)
	}
	var wellResp struct {
		Well domain.Well `json:"well"`
	}
	decodeBody(t, rec, &wellResp)

	// Linking a well to a fiscal-point sample violates the linkage rule.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/samples/"+sampleID+"/well", map[string]any{"well_id": wellResp.Well.ID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodDelete, "/api/v1/samples", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
