// Package app builds the services shared by the API server and the worker.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sghealthtrack/healthtrack-api/internal/config"
	"github.com/sghealthtrack/healthtrack-api/internal/repository/postgres"
	"github.com/sghealthtrack/healthtrack-api/internal/service/archive"
	"github.com/sghealthtrack/healthtrack-api/internal/service/audit"
	"github.com/sghealthtrack/healthtrack-api/pkg/logger"
	"github.com/sghealthtrack/healthtrack-api/pkg/messaging"
	"github.com/sghealthtrack/healthtrack-api/pkg/messaging/redis"
	"github.com/sghealthtrack/healthtrack-api/pkg/metrics"
	"github.com/sghealthtrack/healthtrack-api/pkg/storage"
)

// Core holds the infrastructure every process needs.
type Core struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *sqlx.DB
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Auditor  *audit.Service
}

func NewLogger(cfg config.LogConfig) *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Console,
	})
}

// NewCore connects to Postgres and sets up metrics and the activity trail.
func NewCore(cfg *config.Config, log *logger.Logger) (*Core, error) {
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Core{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Registry: registry,
		Metrics:  metrics.NewMetrics(registry, cfg.Server.MetricsNamespace),
		Auditor:  audit.NewService(postgres.NewActivityRepository(postgres.NewBaseRepository(db)), *log.Zerolog()),
	}, nil
}

func (c *Core) Close() error {
	return c.DB.Close()
}

// NewBroker connects to Redis when configured and falls back to an
// in-process broker otherwise.
func (c *Core) NewBroker() (messaging.Broker, error) {
	rc := c.Config.Redis
	if rc.URL == "" {
		c.Logger.Warn("REDIS_URL not set, change events stay in this process")
		return messaging.NewMemoryBroker(), nil
	}
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          rc.URL,
		MaxRetries:   rc.MaxRetries,
		RetryBackoff: rc.RetryBackoff,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
	}, c.Logger.Zerolog().With().Str("component", "broker").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create redis broker: %w", err)
	}
	return broker, nil
}

// NewObjectStore returns the S3 compatible store, or storage.Disabled when
// no endpoint is configured.
func (c *Core) NewObjectStore(ctx context.Context) (storage.ObjectStore, error) {
	env := c.Config.Supabase
	if !env.StorageEnabled() {
		c.Logger.Warn("storage endpoint not set, x-ray files will not be moved")
		return storage.Disabled{}, nil
	}
	client, err := storage.NewS3Client(ctx, storage.S3Config{
		Endpoint:        env.S3Endpoint,
		Region:          env.S3Region,
		AccessKeyID:     env.S3AccessKeyID,
		SecretAccessKey: env.S3SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewS3Store(client), nil
}

// NewArchiver wires the retention archiver.
func (c *Core) NewArchiver(store storage.ObjectStore) *archive.Service {
	return archive.NewService(
		postgres.NewArchiveRepository(c.DB),
		store,
		archive.Config{
			Bucket:         c.Config.Supabase.XrayBucket,
			Prefix:         c.Config.Supabase.XrayArchivePrefix,
			BatchSize:      c.Config.Archive.BatchSize,
			RetentionYears: c.Config.Archive.RetentionYears,
			IncludeFiles:   c.Config.Archive.IncludeFiles,
		},
		c.Metrics,
		c.Auditor,
		c.Logger,
	)
}
