// Command sprintpulsed is the Sprintpulse analytics service.
// It serves the report and batch import API, metrics and a health check.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/sprintpulse/sprintpulse/internal/api"
	"github.com/sprintpulse/sprintpulse/internal/ingestion"
	"github.com/sprintpulse/sprintpulse/internal/logger"
	"github.com/sprintpulse/sprintpulse/internal/platform"
	"github.com/sprintpulse/sprintpulse/internal/report"
	"github.com/sprintpulse/sprintpulse/internal/store"
	"github.com/sprintpulse/sprintpulse/internal/telemetry"
	"github.com/sprintpulse/sprintpulse/pkg/config"
)

type serviceConfig struct {
	Port           string
	DatabaseURL    string
	AppEnv         string
	APIKey         string
	StorageBackend string
	LocalPath      string
	S3             ingestion.S3Config
	GCSBucket      string
	RequestTimeout time.Duration
	ConfigPath     string
	AutoMigrate    bool
}

func loadConfig() (serviceConfig, error) {
	cfg := serviceConfig{
		Port:           envOrDefault("PORT", "8080"),
		DatabaseURL:    envOrDefault("DATABASE_URL", "postgres://localhost:5432/sprintpulse?sslmode=disable"),
		AppEnv:         envOrDefault("APP_ENV", "prod"),
		APIKey:         os.Getenv("API_KEY"),
		StorageBackend: envOrDefault("STORAGE_BACKEND", "local"),
		LocalPath:      envOrDefault("LOCAL_STORAGE_PATH", "/tmp/sprintpulse-data"),
		S3: ingestion.S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    os.Getenv("S3_REGION"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
		GCSBucket:  os.Getenv("GCS_BUCKET"),
		ConfigPath: os.Getenv("CONFIG_PATH"),
	}

	timeout, err := time.ParseDuration(envOrDefault("REQUEST_TIMEOUT", "30s"))
	if err != nil {
		return cfg, fmt.Errorf("REQUEST_TIMEOUT: %w", err)
	}
	cfg.RequestTimeout = timeout

	cfg.AutoMigrate, err = strconv.ParseBool(envOrDefault("AUTO_MIGRATE", "true"))
	if err != nil {
		return cfg, fmt.Errorf("AUTO_MIGRATE: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sprintpulsed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	analyticsCfg, err := loadAnalyticsConfig(cfg.ConfigPath)
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := platform.AutoMigrate(db, log); err != nil {
			return err
		}
	}

	blobs, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}

	st := store.New(db)
	metrics := telemetry.New()
	reports := report.NewService(st, analyticsCfg.Engine(), log, report.WithObserver(metrics))
	batches := ingestion.NewService(st, blobs, log)

	handler := api.NewHandler(reports, batches, log, api.Options{
		APIKey:         cfg.APIKey,
		RequestTimeout: cfg.RequestTimeout,
		Metrics:        metrics,
		Health:         st,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.StorageBackend).Msg("starting sprintpulsed")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	return nil
}

// loadAnalyticsConfig reads CONFIG_PATH, or looks for
// .sprintpulse/config.yaml from the working directory upwards.
func loadAnalyticsConfig(path string) (*config.Config, error) {
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = config.FindConfigFile(wd)
		}
	}
	if path == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load analytics config: %w", err)
	}
	return cfg, nil
}

func newStorage(ctx context.Context, cfg serviceConfig) (ingestion.StorageClient, error) {
	switch cfg.StorageBackend {
	case "local":
		return ingestion.NewLocalStorage(cfg.LocalPath), nil
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, errors.New("S3_BUCKET is required for the s3 storage backend")
		}
		return ingestion.NewS3Storage(ctx, cfg.S3)
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, errors.New("GCS_BUCKET is required for the gcs storage backend")
		}
		return ingestion.NewGCSStorage(ctx, cfg.GCSBucket)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
