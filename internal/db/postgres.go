package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/wholetthecowsout/cowwatch/internal/models"
)

// ErrDuplicateActive is returned by InsertReport when another active report
// already holds the same location. The partial unique index below makes the
// duplicate-active check race-safe: two concurrent submissions for one
// location cannot both insert, and the loser surfaces this error.
var ErrDuplicateActive = errors.New("active report already exists for this location")

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS reports (
    id UUID PRIMARY KEY,
    description TEXT,
    location TEXT,
    status VARCHAR(20) NOT NULL DEFAULT 'reported',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    resolved_at TIMESTAMPTZ NULL,
    photo_base64 TEXT,
    fingerprint TEXT,
    ip_address TEXT,
    reporter_lat DOUBLE PRECISION NULL,
    reporter_lng DOUBLE PRECISION NULL
);

-- Rate limiter lookups
CREATE INDEX IF NOT EXISTS idx_reports_fingerprint_created ON reports (fingerprint, created_at);
CREATE INDEX IF NOT EXISTS idx_reports_ip_created ON reports (ip_address, created_at);

-- Read endpoints
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports (created_at DESC);

-- One active report per location, enforced at the storage layer
CREATE UNIQUE INDEX IF NOT EXISTS idx_reports_one_active_per_location
    ON reports (location) WHERE status IN ('reported', 'acknowledged');
`

// pqUniqueViolation is the postgres error code for unique constraint violations.
const pqUniqueViolation = "23505"

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	ctx := context.Background()
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const reportColumns = `id, description, location, status, created_at, resolved_at,
    photo_base64, fingerprint, ip_address, reporter_lat, reporter_lng`

// scanReport reads one reports row from a row scanner.
func scanReport(scan func(dest ...any) error) (*models.Report, error) {
	var r models.Report
	var description, location, photo, fingerprint, ip sql.NullString
	var resolvedAt sql.NullTime
	var lat, lng sql.NullFloat64
	if err := scan(&r.ID, &description, &location, &r.Status, &r.CreatedAt, &resolvedAt,
		&photo, &fingerprint, &ip, &lat, &lng); err != nil {
		return nil, err
	}
	r.Description = description.String
	r.Location = location.String
	r.PhotoBase64 = photo.String
	r.Fingerprint = fingerprint.String
	r.IPAddress = ip.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		r.ResolvedAt = &t
	}
	if lat.Valid {
		v := lat.Float64
		r.ReporterLat = &v
	}
	if lng.Valid {
		v := lng.Float64
		r.ReporterLng = &v
	}
	return &r, nil
}

// InsertReport persists a new report. The id and creation timestamp are
// assigned here; the caller gets them back on the same struct.
func (p *Postgres) InsertReport(ctx context.Context, r *models.Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := p.DB.ExecContext(ctx, `INSERT INTO reports (
            id, description, location, status, created_at,
            photo_base64, fingerprint, ip_address, reporter_lat, reporter_lng)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, nullStr(r.Description), nullStr(r.Location), r.Status, r.CreatedAt,
		nullStr(r.PhotoBase64), nullStr(r.Fingerprint), nullStr(r.IPAddress),
		r.ReporterLat, r.ReporterLng)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateActive
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetReport fetches a report by id. Returns (nil, nil) when no row matches.
func (p *Postgres) GetReport(ctx context.Context, id string) (*models.Report, error) {
	row := p.DB.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=$1`, id)
	r, err := scanReport(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

// CountReportsByFingerprint counts reports submitted by a device fingerprint
// at or after the given time.
func (p *Postgres) CountReportsByFingerprint(ctx context.Context, fingerprint string, since time.Time) (int, error) {
	var n int
	err := p.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reports WHERE fingerprint=$1 AND created_at >= $2`,
		fingerprint, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reports by fingerprint: %w", err)
	}
	return n, nil
}

// CountReportsByIP counts reports submitted from a network address at or
// after the given time.
func (p *Postgres) CountReportsByIP(ctx context.Context, ip string, since time.Time) (int, error) {
	var n int
	err := p.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reports WHERE ip_address=$1 AND created_at >= $2`,
		ip, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reports by ip: %w", err)
	}
	return n, nil
}

// FindActiveReportByLocation returns the unresolved report at the exact
// location string, or (nil, nil) when the location is clear.
func (p *Postgres) FindActiveReportByLocation(ctx context.Context, location string) (*models.Report, error) {
	row := p.DB.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports
         WHERE location=$1 AND status = ANY($2) LIMIT 1`,
		location, pq.Array(models.ActiveStatuses()))
	r, err := scanReport(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active report: %w", err)
	}
	return r, nil
}

// LatestActiveReport returns the most recent unresolved report created at or
// after since, or (nil, nil) when there is none.
func (p *Postgres) LatestActiveReport(ctx context.Context, since time.Time) (*models.Report, error) {
	row := p.DB.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports
         WHERE status = ANY($1) AND created_at >= $2
         ORDER BY created_at DESC LIMIT 1`,
		pq.Array(models.ActiveStatuses()), since)
	r, err := scanReport(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest active report: %w", err)
	}
	return r, nil
}

// ListReportsSince returns reports created at or after since, newest first.
// With activeOnly set, resolved reports are excluded.
func (p *Postgres) ListReportsSince(ctx context.Context, since time.Time, activeOnly bool) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE created_at >= $1`
	args := []any{since}
	if activeOnly {
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(models.ActiveStatuses()))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var reports []models.Report
	for rows.Next() {
		r, err := scanReport(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return reports, nil
}

// UpdateReportStatus applies a status transition and returns the updated
// report. Entering resolved stamps resolved_at; it is never cleared.
func (p *Postgres) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus) (*models.Report, error) {
	var row *sql.Row
	if status == models.StatusResolved {
		row = p.DB.QueryRowContext(ctx,
			`UPDATE reports SET status=$1, resolved_at=NOW() WHERE id=$2 RETURNING `+reportColumns,
			status, id)
	} else {
		row = p.DB.QueryRowContext(ctx,
			`UPDATE reports SET status=$1 WHERE id=$2 RETURNING `+reportColumns,
			status, id)
	}
	r, err := scanReport(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update report status: %w", err)
	}
	return r, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
