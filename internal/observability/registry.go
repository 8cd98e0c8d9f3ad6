package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// This replaces direct access to global Prometheus metrics with dependency injection.
type MetricsRegistry interface {
	// HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Submission pipeline metrics
	IncrementSubmissions(outcome string)

	// Rate limiting metrics
	IncrementRateLimitChecks(kind string)
	IncrementRateLimitHits(kind string)

	// Classifier metrics
	IncrementClassifierRequests(outcome string)
	RecordClassifierLatency(duration time.Duration)

	// Notification metrics
	IncrementNotifications(channel, status string)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry.
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementSubmissions(outcome string) {
	SubmissionCount.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitChecks(kind string) {
	RateLimitChecks.WithLabelValues(kind).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitHits(kind string) {
	RateLimitHits.WithLabelValues(kind).Inc()
}

func (r *PrometheusRegistry) IncrementClassifierRequests(outcome string) {
	ClassifierRequests.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) RecordClassifierLatency(duration time.Duration) {
	ClassifierLatency.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementNotifications(channel, status string) {
	NotificationCount.WithLabelValues(channel, status).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing.
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry.
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementSubmissions(outcome string)                                  {}
func (r *NoOpRegistry) IncrementRateLimitChecks(kind string)                                 {}
func (r *NoOpRegistry) IncrementRateLimitHits(kind string)                                   {}
func (r *NoOpRegistry) IncrementClassifierRequests(outcome string)                           {}
func (r *NoOpRegistry) RecordClassifierLatency(duration time.Duration)                       {}
func (r *NoOpRegistry) IncrementNotifications(channel, status string)                        {}
