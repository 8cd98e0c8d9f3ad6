package guard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wholetthecowsout/cowwatch/internal/observability"
)

// Rate limiter rejection reasons shown to the reporter.
const (
	reasonFingerprintLimit = "You have already submitted a report today. Please try again tomorrow."
	reasonNetworkLimit     = "Report limit reached from this network today."
)

// Counter key kinds shared with the daily counter cache.
const (
	kindFingerprint = "fp"
	kindIP          = "ip"
)

// RateLimitConfig carries the per-identity daily caps. The fingerprint cap
// is stricter than the network cap: a fingerprint is a stronger identity
// signal than an address shared by a household.
type RateLimitConfig struct {
	FingerprintDailyCap int
	IPDailyCap          int
}

// RateLimitResult is the limiter's verdict.
type RateLimitResult struct {
	Allowed bool
	Reason  string
}

// RateLimiter enforces daily submission caps per device fingerprint and per
// network address, counted from the start of the current UTC day. Store
// counts are authoritative; the optional counter cache only lets the limiter
// refuse obvious repeats without touching the store.
type RateLimiter struct {
	store   ReportStore
	counter DailyCounter
	cfg     RateLimitConfig
	logger  *zap.Logger
	metrics observability.MetricsRegistry
	now     func() time.Time
}

// NewRateLimiter constructs a limiter. counter may be nil.
func NewRateLimiter(store ReportStore, counter DailyCounter, cfg RateLimitConfig, logger *zap.Logger, metrics observability.MetricsRegistry) *RateLimiter {
	if cfg.FingerprintDailyCap <= 0 {
		cfg.FingerprintDailyCap = 1
	}
	if cfg.IPDailyCap <= 0 {
		cfg.IPDailyCap = 2
	}
	return &RateLimiter{
		store:   store,
		counter: counter,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// SetClock overrides the limiter's clock; used by tests with fixed times.
func (l *RateLimiter) SetClock(now func() time.Time) {
	l.now = now
}

// startOfToday returns midnight UTC of the current day.
func (l *RateLimiter) startOfToday() time.Time {
	now := l.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Check evaluates both caps. The fingerprint check runs first; when it
// trips, the network check is never evaluated.
func (l *RateLimiter) Check(ctx context.Context, fingerprint, ipAddress string) (RateLimitResult, error) {
	since := l.startOfToday()

	l.metrics.IncrementRateLimitChecks(kindFingerprint)
	over, err := l.overCap(ctx, kindFingerprint, fingerprint, since, l.cfg.FingerprintDailyCap)
	if err != nil {
		return RateLimitResult{}, err
	}
	if over {
		l.metrics.IncrementRateLimitHits(kindFingerprint)
		return RateLimitResult{Allowed: false, Reason: reasonFingerprintLimit}, nil
	}

	l.metrics.IncrementRateLimitChecks(kindIP)
	over, err = l.overCap(ctx, kindIP, ipAddress, since, l.cfg.IPDailyCap)
	if err != nil {
		return RateLimitResult{}, err
	}
	if over {
		l.metrics.IncrementRateLimitHits(kindIP)
		return RateLimitResult{Allowed: false, Reason: reasonNetworkLimit}, nil
	}

	return RateLimitResult{Allowed: true}, nil
}

// overCap consults the counter cache first, then the store.
func (l *RateLimiter) overCap(ctx context.Context, kind, value string, since time.Time, limit int) (bool, error) {
	if l.counter != nil {
		cached, err := l.counter.CountSubmissionsToday(ctx, kind, value, l.now())
		if err != nil {
			// Cache trouble never blocks a submission; the store decides.
			l.logger.Warn("rate limit counter unavailable", zap.String("kind", kind), zap.Error(err))
		} else if cached >= int64(limit) {
			return true, nil
		}
	}

	var n int
	var err error
	switch kind {
	case kindFingerprint:
		n, err = l.store.CountReportsByFingerprint(ctx, value, since)
	default:
		n, err = l.store.CountReportsByIP(ctx, value, since)
	}
	if err != nil {
		return false, err
	}
	return n >= limit, nil
}

// Record bumps the daily counters after a report has been persisted.
func (l *RateLimiter) Record(ctx context.Context, fingerprint, ipAddress string) {
	if l.counter == nil {
		return
	}
	now := l.now()
	if err := l.counter.IncrementSubmission(ctx, kindFingerprint, fingerprint, now); err != nil {
		l.logger.Warn("record fingerprint submission", zap.Error(err))
	}
	if err := l.counter.IncrementSubmission(ctx, kindIP, ipAddress, now); err != nil {
		l.logger.Warn("record ip submission", zap.Error(err))
	}
}
