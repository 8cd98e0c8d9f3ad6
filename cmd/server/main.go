package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/wholetthecowsout/cowwatch/internal/analytics"
	"github.com/wholetthecowsout/cowwatch/internal/api"
	"github.com/wholetthecowsout/cowwatch/internal/config"
	"github.com/wholetthecowsout/cowwatch/internal/db"
	"github.com/wholetthecowsout/cowwatch/internal/geo"
	"github.com/wholetthecowsout/cowwatch/internal/geoip"
	"github.com/wholetthecowsout/cowwatch/internal/guard"
	"github.com/wholetthecowsout/cowwatch/internal/middleware"
	"github.com/wholetthecowsout/cowwatch/internal/notify"
	"github.com/wholetthecowsout/cowwatch/internal/observability"
	"github.com/wholetthecowsout/cowwatch/internal/vision"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	var redisStore *db.RedisStore
	if cfg.RedisAddr != "" {
		redisStore, err = db.InitRedis(cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer redisStore.Close()
	}

	var analyticsSvc analytics.Service = analytics.Noop{}
	if cfg.ClickHouseDSN != "" {
		ch, err := analytics.InitClickHouse(cfg.ClickHouseDSN)
		if err != nil {
			return fmt.Errorf("failed to connect clickhouse: %w", err)
		}
		analyticsSvc = ch
	}
	defer analyticsSvc.Close()

	var geoSvc *geoip.GeoIP
	if cfg.GeoIPDB != "" {
		geoSvc, err = geoip.Init(cfg.GeoIPDB)
		if err != nil {
			return fmt.Errorf("failed to load geoip db: %w", err)
		}
		defer func() { _ = geoSvc.Close() }()
	}

	registry, err := geo.LoadRegistry(cfg.LocationsFile)
	if err != nil {
		return fmt.Errorf("failed to load locations: %w", err)
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	classifier := vision.NewClient(cfg.VisionEndpoint, cfg.VisionAPIKey, cfg.VisionTimeout, logger, metricsRegistry)

	var channels []notify.Channel
	if email := notify.NewEmailChannel(cfg.ResendAPIKey, cfg.EmailFrom, cfg.RangerEmails, cfg.SiteURL, registry); email != nil {
		channels = append(channels, email)
	}
	if sms := notify.NewSMSChannel(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.RangerPhoneNumbers); sms != nil {
		channels = append(channels, sms)
	}
	notifier := notify.NewFanout(logger, metricsRegistry, channels...)

	limiter := guard.NewRateLimiter(pg, redisStore, guard.RateLimitConfig{
		FingerprintDailyCap: cfg.FingerprintDailyCap,
		IPDailyCap:          cfg.IPDailyCap,
	}, logger, metricsRegistry)

	pipeline := guard.NewPipeline(pg, limiter, registry, classifier, notifier, logger, metricsRegistry, cfg.MaxDistanceMiles)

	srv := api.NewServer(logger, pipeline, pg, classifier, analyticsSvc, geoSvc, metricsRegistry, cfg)

	r := mux.NewRouter()
	r.Use(middleware.WithTraceLogger(logger))

	r.HandleFunc("/api/reports", srv.SubmitReportHandler).Methods("POST")
	r.HandleFunc("/api/reports", srv.LatestActiveReportHandler).Methods("GET")
	r.HandleFunc("/api/reports/verify-photo", srv.VerifyPhotoHandler).Methods("POST")
	r.HandleFunc("/api/reports/active", srv.ActiveReportsHandler).Methods("GET")
	r.HandleFunc("/api/reports/{id}", srv.UpdateStatusHandler).Methods("PATCH")
	r.HandleFunc("/api/admin/reports", srv.AdminReportsHandler).Methods("GET")
	r.HandleFunc("/api/locations", srv.LocationsHandler(registry)).Methods("GET")
	r.HandleFunc("/health", srv.HealthHandler).Methods("GET")

	// metrics endpoint (includes guard pipeline metrics)
	r.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, "http.server"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("cowwatch server running",
		zap.String("addr", addr),
		zap.Int("locations", len(registry.All())),
		zap.Int("notification_channels", len(channels)))

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
