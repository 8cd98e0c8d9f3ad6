package guard

import (
	"context"
	"time"

	"github.com/wholetthecowsout/cowwatch/internal/models"
)

// ReportStore is the narrow persistence capability the pipeline needs.
// *db.Postgres satisfies it in production; tests use in-memory fakes.
type ReportStore interface {
	CountReportsByFingerprint(ctx context.Context, fingerprint string, since time.Time) (int, error)
	CountReportsByIP(ctx context.Context, ip string, since time.Time) (int, error)
	FindActiveReportByLocation(ctx context.Context, location string) (*models.Report, error)
	InsertReport(ctx context.Context, r *models.Report) error
}

// DailyCounter is an optional fast-path counter over the limiter's UTC-day
// window. *db.RedisStore satisfies it; a nil counter disables the fast path.
type DailyCounter interface {
	CountSubmissionsToday(ctx context.Context, kind, value string, now time.Time) (int64, error)
	IncrementSubmission(ctx context.Context, kind, value string, now time.Time) error
}
