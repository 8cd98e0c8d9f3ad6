package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cowwatch_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cowwatch_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// submission outcomes: accepted, or the rejection code
	SubmissionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cowwatch_submissions_total",
			Help: "Total report submissions by outcome",
		},
		[]string{"outcome"},
	)

	// rate limiter checks and hits, labelled by identity kind
	RateLimitChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cowwatch_ratelimit_checks_total",
			Help: "Total rate limit checks",
		},
		[]string{"kind"},
	)
	RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cowwatch_ratelimit_hits_total",
			Help: "Total rate limit rejections",
		},
		[]string{"kind"},
	)

	// classifier calls labelled by outcome (match, no_match, skipped, error)
	ClassifierRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cowwatch_classifier_requests_total",
			Help: "Total image classifier requests",
		},
		[]string{"outcome"},
	)

	// classifier call latency
	ClassifierLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cowwatch_classifier_duration_seconds",
			Help:    "Histogram of image classifier call latencies",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ranger notifications per channel and status
	NotificationCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cowwatch_notifications_total",
			Help: "Total ranger notifications attempted",
		},
		[]string{"channel", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		SubmissionCount,
		RateLimitChecks,
		RateLimitHits,
		ClassifierRequests,
		ClassifierLatency,
		NotificationCount,
	)
}
