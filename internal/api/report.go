package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wholetthecowsout/cowwatch/internal/guard"
	"github.com/wholetthecowsout/cowwatch/internal/middleware"
	"github.com/wholetthecowsout/cowwatch/internal/models"
)

// SubmitRequest is the payload for filing a new sighting.
type SubmitRequest struct {
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Photo       string   `json:"photo"`
	Fingerprint string   `json:"fingerprint"`
	ReporterLat *float64 `json:"reporterLat"`
	ReporterLng *float64 `json:"reporterLng"`
}

// ReportResponse is the subset of a report echoed back to reporters. The
// photo payload, fingerprint and network address stay server-side.
type ReportResponse struct {
	ID          string     `json:"id"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

func toResponse(r *models.Report) ReportResponse {
	return ReportResponse{
		ID:          r.ID,
		Description: r.Description,
		Location:    r.Location,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		ResolvedAt:  r.ResolvedAt,
	}
}

func toResponses(reports []models.Report) []ReportResponse {
	out := make([]ReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, toResponse(&reports[i]))
	}
	return out
}

// SubmitReportHandler handles POST /api/reports.
func (s *Server) SubmitReportHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "submit_report"
	const method = "POST"
	logger := middleware.LoggerFromRequest(r, s.Logger)

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusBadRequest, "Invalid request.", string(guard.CodeInvalidInput))
		return
	}

	sub := guard.Submission{
		Description: req.Description,
		Location:    req.Location,
		Photo:       req.Photo,
		Fingerprint: req.Fingerprint,
		IPAddress:   clientIP(r),
		ReporterLat: req.ReporterLat,
		ReporterLng: req.ReporterLng,
	}

	report, err := s.Pipeline.Submit(r.Context(), sub)
	if err != nil {
		rej, ok := guard.AsRejection(err)
		if !ok {
			logger.Error("submit report", zap.Error(err))
			s.Metrics.IncrementRequests(endpoint, method, "500")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			writeError(w, http.StatusInternalServerError, "Something went wrong.", string(guard.CodeUpstreamFailure))
			return
		}
		status := rejectionStatus(rej.Code)
		if rej.Code == guard.CodeUpstreamFailure {
			logger.Error("submit report upstream failure", zap.Error(rej.Unwrap()))
		}
		s.recordSubmissionEvent(r, string(rej.Code), "", req.Location)
		s.Metrics.IncrementRequests(endpoint, method, httpStatusLabel(status))
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, status, rej.Message, string(rej.Code))
		return
	}

	s.recordSubmissionEvent(r, "accepted", report.ID, report.Location)
	s.Metrics.IncrementRequests(endpoint, method, "201")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, http.StatusCreated, map[string]ReportResponse{"report": toResponse(report)})
}

// VerifyPhotoHandler handles POST /api/reports/verify-photo, letting the
// client check a photo before filing the full report.
func (s *Server) VerifyPhotoHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "verify_photo"
	const method = "POST"
	logger := middleware.LoggerFromRequest(r, s.Logger)

	var req struct {
		Photo string `json:"photo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Photo == "" {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusBadRequest, "Photo is required.", string(guard.CodeInvalidInput))
		return
	}

	result, err := s.Classifier.Classify(r.Context(), req.Photo)
	if err != nil {
		logger.Error("verify photo", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusInternalServerError, "Failed to verify photo.", string(guard.CodeUpstreamFailure))
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

// LatestActiveReportHandler handles GET /api/reports: the most recent
// unresolved report within the active window, or null.
func (s *Server) LatestActiveReportHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "latest_active"
	const method = "GET"
	logger := middleware.LoggerFromRequest(r, s.Logger)

	since := time.Now().Add(-s.Config.ActiveReportWindow)
	report, err := s.Reports.LatestActiveReport(r.Context(), since)
	if err != nil {
		logger.Error("latest active report", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusInternalServerError, "Failed to fetch reports.", string(guard.CodeUpstreamFailure))
		return
	}

	var body struct {
		Report *ReportResponse `json:"report"`
	}
	if report != nil {
		resp := toResponse(report)
		body.Report = &resp
	}
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, http.StatusOK, body)
}

// ActiveReportsHandler handles GET /api/reports/active: all unresolved
// reports within the active window, newest first.
func (s *Server) ActiveReportsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "active_reports"
	const method = "GET"
	logger := middleware.LoggerFromRequest(r, s.Logger)

	since := time.Now().Add(-s.Config.ActiveReportWindow)
	reports, err := s.Reports.ListReportsSince(r.Context(), since, true)
	if err != nil {
		logger.Error("list active reports", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusInternalServerError, "Failed to fetch reports.", string(guard.CodeUpstreamFailure))
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, http.StatusOK, map[string][]ReportResponse{"reports": toResponses(reports)})
}

// AdminReportsHandler handles GET /api/admin/reports: every report within
// the admin window, newest first, including resolved ones. The admin
// surface sits behind an identity-aware proxy, so full records (photo
// included) are returned for triage.
func (s *Server) AdminReportsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "admin_reports"
	const method = "GET"
	logger := middleware.LoggerFromRequest(r, s.Logger)

	since := time.Now().Add(-s.Config.AdminReportWindow)
	reports, err := s.Reports.ListReportsSince(r.Context(), since, false)
	if err != nil {
		logger.Error("list admin reports", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusInternalServerError, "Failed to fetch reports.", string(guard.CodeUpstreamFailure))
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, http.StatusOK, map[string][]models.Report{"reports": reports})
}

// UpdateStatusHandler handles PATCH /api/reports/{id}: a ranger-invoked
// status transition. resolved is terminal; reaching it stamps resolved_at.
func (s *Server) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "update_status"
	const method = "PATCH"
	logger := middleware.LoggerFromRequest(r, s.Logger)

	id := mux.Vars(r)["id"]
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusBadRequest, "Invalid request.", string(guard.CodeInvalidInput))
		return
	}

	target, ok := models.ParseStatus(req.Status)
	if !ok {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusBadRequest, "Invalid status.", string(guard.CodeInvalidInput))
		return
	}

	current, err := s.Reports.GetReport(r.Context(), id)
	if err != nil {
		logger.Error("get report", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusInternalServerError, "Failed to update report.", string(guard.CodeUpstreamFailure))
		return
	}
	if current == nil {
		s.Metrics.IncrementRequests(endpoint, method, "404")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusNotFound, "Report not found.", string(guard.CodeInvalidInput))
		return
	}
	if !models.CanTransition(current.Status, target) {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusBadRequest, "Invalid status transition.", string(guard.CodeInvalidInput))
		return
	}

	updated, err := s.Reports.UpdateReportStatus(r.Context(), id, target)
	if err != nil || updated == nil {
		logger.Error("update report status", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusInternalServerError, "Failed to update report.", string(guard.CodeUpstreamFailure))
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, http.StatusOK, map[string]ReportResponse{"report": toResponse(updated)})
}
