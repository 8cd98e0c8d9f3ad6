package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	ServiceName  string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	PostgresDSN   string
	RedisAddr     string
	ClickHouseDSN string
	GeoIPDB       string
	LocationsFile string

	// Submission guard
	MaxDistanceMiles    float64
	FingerprintDailyCap int
	IPDailyCap          int

	// Vision classifier
	VisionAPIKey   string
	VisionEndpoint string
	VisionTimeout  time.Duration

	// Read windows
	ActiveReportWindow time.Duration
	AdminReportWindow  time.Duration

	// Ranger notifications
	RangerEmails       []string
	RangerPhoneNumbers []string
	ResendAPIKey       string
	EmailFrom          string
	SiteURL            string
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioFromNumber   string

	// Database connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.ServiceName = getenv("SERVICE_NAME", "cowwatch")
	cfg.Port = getenv("PORT", "8080")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 10*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 30*time.Second)

	cfg.PostgresDSN = getenv("POSTGRES_DSN", "postgres://postgres@127.0.0.1:5432/postgres?sslmode=disable")
	cfg.RedisAddr = getenv("REDIS_ADDR", "")
	cfg.ClickHouseDSN = getenv("CLICKHOUSE_DSN", "")
	cfg.GeoIPDB = getenv("GEOIP_DB", "")
	cfg.LocationsFile = getenv("LOCATIONS_FILE", "")

	cfg.MaxDistanceMiles = envFloat("MAX_DISTANCE_MILES", 1.0)
	cfg.FingerprintDailyCap = envInt("FINGERPRINT_DAILY_CAP", 1)
	cfg.IPDailyCap = envInt("IP_DAILY_CAP", 2)

	cfg.VisionAPIKey = getenv("VISION_API_KEY", "")
	cfg.VisionEndpoint = getenv("VISION_ENDPOINT", "https://vision.googleapis.com/v1/images:annotate")
	cfg.VisionTimeout = envDuration("VISION_TIMEOUT", 15*time.Second)

	cfg.ActiveReportWindow = envDuration("ACTIVE_REPORT_WINDOW", 24*time.Hour)
	cfg.AdminReportWindow = envDuration("ADMIN_REPORT_WINDOW", 7*24*time.Hour)

	cfg.RangerEmails = envList("RANGER_EMAILS")
	cfg.RangerPhoneNumbers = envList("RANGER_PHONE_NUMBERS")
	cfg.ResendAPIKey = getenv("RESEND_API_KEY", "")
	cfg.EmailFrom = getenv("EMAIL_FROM", "Cow Alert <alerts@mail.wholetthecowsout.com>")
	cfg.SiteURL = getenv("SITE_URL", "https://wholetthecowsout.com")
	cfg.TwilioAccountSID = getenv("TWILIO_ACCOUNT_SID", "")
	cfg.TwilioAuthToken = getenv("TWILIO_AUTH_TOKEN", "")
	cfg.TwilioFromNumber = getenv("TWILIO_PHONE_NUMBER", "")

	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.DBConnMaxIdleTime = envDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute)

	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envList parses a comma-separated environment variable, trimming whitespace
// around each entry. Unset or empty variables yield nil.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}
