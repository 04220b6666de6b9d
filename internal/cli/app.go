// Package cli implements the docqa commands: serve, migrate and reconcile.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion/doccache"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion/extractor"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion/journal"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion/storage"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion/store"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/redis"
)

// app holds the components shared by serve and reconcile.
type app struct {
	cfg      *config.Config
	db       *postgres.Client
	redis    *pkgredis.Client
	docs     doccache.Reader
	metrics  *metrics.Metrics
	pipeline *pipeline.Pipeline
	closers  []func() error
}

// loadConfig reads the --config flag, loads the configuration and sets up
// the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// newApp connects to PostgreSQL, optionally applies migrations, and builds
// the upload pipeline over the configured file store and the pdf-upload
// producer. When Redis is enabled uploads are journaled and document reads
// are cached.
func newApp(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, migrateUp bool) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.New(reg)}

	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	slog.Info("connected to postgres")

	if migrateUp {
		if err := db.MigrateUp(); err != nil {
			a.Close()
			return nil, fmt.Errorf("applying migrations: %w", err)
		}
	}

	files, err := newFileStore(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}

	var opts []pipeline.Option
	if cfg.Redis.Enabled {
		rc, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.redis = rc
		a.closers = append(a.closers, rc.Close)
		opts = append(opts, pipeline.WithJournal(journal.NewRedis(rc, cfg.Redis.JournalTTL)))
		slog.Info("ingestion journal enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.JournalTTL)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.PDFUpload)
	a.closers = append(a.closers, producer.Close)
	slog.Info("kafka producer initialized", "topic", producer.Topic())

	docs := store.New(db)
	a.docs = docs
	if a.redis != nil {
		a.docs = doccache.New(docs, a.redis, cfg.Redis.CacheTTL, a.metrics)
	}
	a.pipeline = pipeline.New(files, extractor.New(), producer, docs, a.metrics, opts...)
	return a, nil
}

func newFileStore(ctx context.Context, cfg config.StorageConfig) (storage.FileStore, error) {
	switch cfg.Backend {
	case config.StorageS3:
		s3, err := storage.NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("creating s3 file store: %w", err)
		}
		slog.Info("storing uploads in s3", "bucket", cfg.S3.Bucket, "prefix", cfg.S3.Prefix)
		return s3, nil
	default:
		local, err := storage.NewLocal(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		slog.Info("storing uploads on local disk", "dir", cfg.LocalDir)
		return local, nil
	}
}

// Close releases components in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("failed to close component", "error", err)
		}
	}
	a.closers = nil
}

var errJournalDisabled = errors.New("redis journal is disabled; set redis.enabled to reconcile uploads")
