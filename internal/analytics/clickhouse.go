package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// Service records submission outcomes for the ranger dashboard. Recording
// is best-effort; callers log and move on when it fails.
type Service interface {
	RecordSubmission(ctx context.Context, ev SubmissionEvent) error
	Close()
}

// SubmissionEvent mirrors a row in the submission_events table.
type SubmissionEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	Outcome    string    `json:"outcome"` // accepted or a rejection code
	ReportID   string    `json:"report_id"`
	Location   string    `json:"location"`
	DeviceType string    `json:"device_type"`
	Country    string    `json:"country"`
}

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB *sql.DB
}

// InitClickHouse connects to ClickHouse and ensures the submission_events
// table exists.
func InitClickHouse(dsn string) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(25)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS submission_events (
       timestamp   DateTime,
       outcome     String,
       report_id   String,
       location    String,
       device_type String,
       country     String
   ) ENGINE=MergeTree() ORDER BY (outcome, timestamp)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &Analytics{DB: db}, nil
}

// RecordSubmission inserts a single event row.
func (a *Analytics) RecordSubmission(ctx context.Context, ev SubmissionEvent) error {
	if a == nil || a.DB == nil {
		return nil
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := a.DB.ExecContext(ctx,
		`INSERT INTO submission_events (timestamp, outcome, report_id, location, device_type, country)
         VALUES ($1,$2,$3,$4,$5,$6)`,
		ts, ev.Outcome, ev.ReportID, ev.Location, ev.DeviceType, ev.Country)
	if err != nil {
		return fmt.Errorf("insert submission event: %w", err)
	}
	return nil
}

// Close shuts down the ClickHouse connection.
func (a *Analytics) Close() {
	if a != nil && a.DB != nil {
		if err := a.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}

// Noop is the Service used when analytics storage is not configured.
type Noop struct{}

func (Noop) RecordSubmission(ctx context.Context, ev SubmissionEvent) error { return nil }
func (Noop) Close()                                                         {}
