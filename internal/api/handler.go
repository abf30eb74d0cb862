// Package api exposes the sample lifecycle service over HTTP/JSON.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"metrocore/internal/core"
	"metrocore/pkg/domain"
)

// Handler provides HTTP access to the sample lifecycle service.
type Handler struct {
	Service *core.Service
}

// NewHandler constructs a sample lifecycle HTTP handler.
func NewHandler(svc *core.Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "sample service not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/api/v1/samples":
		h.handleSamples(w, r)
	case strings.HasPrefix(path, "/api/v1/samples/"):
		h.handleSample(w, r, strings.TrimPrefix(path, "/api/v1/samples/"))
	case path == "/api/v1/sample-points":
		h.handleSamplePoints(w, r)
	case path == "/api/v1/wells":
		h.handleWells(w, r)
	case path == "/api/v1/readings":
		h.handleReadings(w, r)
	case r.Method == http.MethodGet && path == "/api/v1/dashboard":
		h.handleDashboard(w, r)
	default:
		http.NotFound(w, r)
	}
}

// sampleView decorates a sample with its computed urgency for list and detail
// responses.
type sampleView struct {
	domain.Sample
	Urgency core.Urgency `json:"urgency"`
}

func (h *Handler) view(sample domain.Sample) sampleView {
	return sampleView{Sample: sample, Urgency: h.Service.UrgencyFor(sample)}
}

type createSampleRequest struct {
	Identifier    string              `json:"identifier"`
	SamplePointID string              `json:"sample_point_id"`
	AnalysisType  domain.AnalysisType `json:"analysis_type"`
	Actor         string              `json:"actor"`
}

func (h *Handler) handleSamples(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		samples := h.Service.ListSamples()
		views := make([]sampleView, 0, len(samples))
		for _, sample := range samples {
			views = append(views, h.view(sample))
		}
		writeJSON(w, http.StatusOK, map[string]any{"samples": views})
	case http.MethodPost:
		var req createSampleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid sample payload")
			return
		}
		sample := domain.Sample{
			Identifier:    req.Identifier,
			SamplePointID: req.SamplePointID,
			AnalysisType:  req.AnalysisType,
		}
		created, _, err := h.Service.CreateSample(r.Context(), sample, req.Actor)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sample": h.view(created)})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleSample(w http.ResponseWriter, r *http.Request, remainder string) {
	segments := strings.Split(remainder, "/")
	id := segments[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(segments) == 1 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		sample, ok := h.Service.GetSample(id)
		if !ok {
			writeError(w, http.StatusNotFound, "sample not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sample": h.view(sample)})
		return
	}

	if len(segments) != 2 {
		http.NotFound(w, r)
		return
	}

	switch segments[1] {
	case "history":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleHistory(w, id)
	case "transition":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleTransition(w, r, id)
	case "report":
		switch r.Method {
		case http.MethodGet:
			report, ok := h.Service.GetLabReport(id)
			if !ok {
				writeError(w, http.StatusNotFound, "lab report not found")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"report": report})
		case http.MethodPost:
			h.handleSubmitReport(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "evidence":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleAttachEvidence(w, r, id)
	case "well":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleLinkWell(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleHistory(w http.ResponseWriter, id string) {
	if _, ok := h.Service.GetSample(id); !ok {
		writeError(w, http.StatusNotFound, "sample not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": h.Service.History(id)})
}

type transitionRequest struct {
	Target          domain.Stage       `json:"target"`
	Actor           string             `json:"actor"`
	Comments        string             `json:"comments"`
	EventDate       *time.Time         `json:"event_date,omitempty"`
	Evidence        domain.EvidenceRef `json:"evidence"`
	DueDateOverride *time.Time         `json:"due_date_override,omitempty"`
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, id string) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid transition payload")
		return
	}
	in := core.TransitionRequest{
		Actor:           req.Actor,
		Comments:        req.Comments,
		Evidence:        req.Evidence,
		DueDateOverride: req.DueDateOverride,
	}
	if req.EventDate != nil {
		in.EventDate = *req.EventDate
	}
	sample, _, err := h.Service.Transition(r.Context(), id, req.Target, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sample": h.view(sample)})
}

type submitReportRequest struct {
	Readings []core.ParameterReading `json:"readings"`
}

func (h *Handler) handleSubmitReport(w http.ResponseWriter, r *http.Request, id string) {
	var req submitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid report payload")
		return
	}
	report, _, err := h.Service.SubmitLabReport(r.Context(), id, req.Readings)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"report": report})
}

func (h *Handler) handleAttachEvidence(w http.ResponseWriter, r *http.Request, id string) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "filename query parameter required")
		return
	}
	contentType := r.Header.Get("Content-Type")
	info, err := h.Service.AttachEvidence(r.Context(), id, filename, contentType, r.Body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"evidence": info})
}

type linkWellRequest struct {
	WellID string `json:"well_id"`
}

func (h *Handler) handleLinkWell(w http.ResponseWriter, r *http.Request, id string) {
	var req linkWellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid well link payload")
		return
	}
	sample, _, err := h.Service.LinkWell(r.Context(), id, req.WellID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sample": h.view(sample)})
}

func (h *Handler) handleSamplePoints(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"sample_points": h.Service.Store().ListSamplePoints()})
	case http.MethodPost:
		var point domain.SamplePoint
		if err := json.NewDecoder(r.Body).Decode(&point); err != nil {
			writeError(w, http.StatusBadRequest, "invalid sample point payload")
			return
		}
		created, _, err := h.Service.CreateSamplePoint(r.Context(), point)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sample_point": created})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleWells(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var well domain.Well
	if err := json.NewDecoder(r.Body).Decode(&well); err != nil {
		writeError(w, http.StatusBadRequest, "invalid well payload")
		return
	}
	created, _, err := h.Service.CreateWell(r.Context(), well)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"well": created})
}

func (h *Handler) handleReadings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var reading domain.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeError(w, http.StatusBadRequest, "invalid reading payload")
		return
	}
	created, _, err := h.Service.AppendReading(r.Context(), reading)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"reading": created})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"clusters": h.Service.Dashboard()})
}

// writeServiceError maps service failures to HTTP statuses: rejected
// transitions surface as 422 with their reason code, rule violations as 409,
// missing entities as 404.
func writeServiceError(w http.ResponseWriter, err error) {
	var transitionErr core.TransitionError
	if errors.As(err, &transitionErr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"code":  transitionErr.Code,
			"error": transitionErr.Message,
		})
		return
	}
	var violation domain.RuleViolationError
	if errors.As(err, &violation) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "rule violation",
			"violations": violation.Result.Violations,
		})
		return
	}
	var notFound core.ErrNotFound
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, notFound.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
