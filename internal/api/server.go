package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avct/uasurfer"
	"go.uber.org/zap"

	"github.com/wholetthecowsout/cowwatch/internal/analytics"
	"github.com/wholetthecowsout/cowwatch/internal/config"
	"github.com/wholetthecowsout/cowwatch/internal/geoip"
	"github.com/wholetthecowsout/cowwatch/internal/guard"
	"github.com/wholetthecowsout/cowwatch/internal/models"
	"github.com/wholetthecowsout/cowwatch/internal/observability"
	"github.com/wholetthecowsout/cowwatch/internal/vision"
)

// Submitter runs the submission-guard pipeline. *guard.Pipeline satisfies
// it; handler tests substitute fakes.
type Submitter interface {
	Submit(ctx context.Context, sub guard.Submission) (*models.Report, error)
}

// ReportDirectory is the read/update capability the report endpoints need.
// *db.Postgres satisfies it.
type ReportDirectory interface {
	GetReport(ctx context.Context, id string) (*models.Report, error)
	LatestActiveReport(ctx context.Context, since time.Time) (*models.Report, error)
	ListReportsSince(ctx context.Context, since time.Time, activeOnly bool) ([]models.Report, error)
	UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus) (*models.Report, error)
}

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger     *zap.Logger
	Pipeline   Submitter
	Reports    ReportDirectory
	Classifier vision.Classifier
	Analytics  analytics.Service
	GeoIP      *geoip.GeoIP
	Metrics    observability.MetricsRegistry
	Config     config.Config
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, pipeline Submitter, reports ReportDirectory, classifier vision.Classifier, analyticsSvc analytics.Service, geo *geoip.GeoIP, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	if analyticsSvc == nil {
		analyticsSvc = analytics.Noop{}
	}
	return &Server{
		Logger:     logger,
		Pipeline:   pipeline,
		Reports:    reports,
		Classifier: classifier,
		Analytics:  analyticsSvc,
		GeoIP:      geo,
		Metrics:    metrics,
		Config:     cfg,
	}
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the structured error body every rejection gets.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// rejectionStatus maps a guard rejection code onto an HTTP status class.
func rejectionStatus(code guard.Code) int {
	switch code {
	case guard.CodeRateLimited:
		return http.StatusTooManyRequests
	case guard.CodeConflict:
		return http.StatusConflict
	case guard.CodeUpstreamFailure:
		return http.StatusInternalServerError
	default:
		// invalid input, out of range and content rejections are all
		// things the reporter must correct
		return http.StatusBadRequest
	}
}

// httpStatusLabel renders a status code for metric labels.
func httpStatusLabel(status int) string {
	return strconv.Itoa(status)
}

// clientIP extracts the reporter's network address. The first hop of
// X-Forwarded-For wins when a proxy supplies it; the rate limiter itself
// treats the value as opaque.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// deviceTypeFromUA classifies the reporting device for analytics.
func deviceTypeFromUA(uaString string) string {
	switch uasurfer.Parse(uaString).DeviceType {
	case uasurfer.DeviceComputer:
		return "desktop"
	case uasurfer.DevicePhone:
		return "mobile"
	case uasurfer.DeviceTablet:
		return "tablet"
	default:
		return "other"
	}
}

// recordSubmissionEvent writes a best-effort analytics row for a submission
// attempt.
func (s *Server) recordSubmissionEvent(r *http.Request, outcome, reportID, location string) {
	country := ""
	if s.GeoIP != nil {
		country = s.GeoIP.CountryFromAddr(clientIP(r))
	}
	ev := analytics.SubmissionEvent{
		Outcome:    outcome,
		ReportID:   reportID,
		Location:   location,
		DeviceType: deviceTypeFromUA(r.UserAgent()),
		Country:    country,
	}
	if err := s.Analytics.RecordSubmission(r.Context(), ev); err != nil {
		s.Logger.Warn("record submission event", zap.Error(err))
	}
}
