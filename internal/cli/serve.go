package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/chat/correlator"
	chathandler "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/chat/handler"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/gateway/router"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/metrics"
)

// ServeCmd returns the serve command.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		Long:  "Accept PDF uploads and chatbot questions over HTTP, relaying them through Kafka",
		RunE:  runServe,
	}
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	slog.Info("starting pdf qa gateway",
		"port", cfg.Server.Port,
		"correlation_mode", cfg.Correlation.Mode,
		"storage_backend", cfg.Storage.Backend,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	a, err := newApp(ctx, cfg, prometheus.DefaultRegisterer, !noMigrate)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.redis != nil {
		completed, failed, err := a.pipeline.Reconcile(ctx, cfg.Upload.Timeout)
		if err != nil {
			slog.Error("startup reconcile failed", "error", err)
		} else if completed+failed > 0 {
			slog.Info("startup reconcile finished", "completed", completed, "failed", failed)
		}
	}

	questions := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.UserQuestions)
	defer questions.Close()

	asker, answers := newCorrelator(cfg, questions, a.metrics)

	checker := health.NewChecker(health.DefaultProbeTimeout)
	checker.Require(health.Postgres, a.db.Ping)
	checker.Require(health.Kafka, func(ctx context.Context) error {
		return kafka.Ping(ctx, cfg.Kafka.Brokers)
	})
	if a.redis != nil {
		checker.Optional(health.Redis, a.redis.Ping)
	}

	handler := router.New(router.Handlers{
		Ingestion: ingesthandler.New(a.pipeline, a.docs, cfg.Upload.MaxBytes),
		Chat:      chathandler.New(asker),
		Health:    checker,
	}, router.Options{
		UploadTimeout: cfg.Upload.Timeout,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Metrics:       a.metrics,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	servers := []*http.Server{server}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("gateway listening", "addr", server.Addr)
		return listen(server)
	})
	if answers != nil {
		g.Go(func() error {
			return answers.Start(gctx)
		})
	}
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port)
		servers = append(servers, metricsServer)
		g.Go(func() error {
			slog.Info("metrics server listening", "addr", metricsServer.Addr)
			return listen(metricsServer)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				slog.Error("server shutdown error", "addr", s.Addr, "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("pdf qa gateway stopped")
	return nil
}

// newCorrelator picks the answer-matching strategy. Keyed mode also returns
// the long-lived consumer that feeds it answers.
func newCorrelator(cfg *config.Config, questions *kafka.Producer, m *metrics.Metrics) (chathandler.Asker, *kafka.Consumer) {
	topic := cfg.Kafka.Topics.LLMResponses
	if cfg.Correlation.Mode == config.ModeFirstAnswer {
		subscribe := func() correlator.Subscription {
			return kafka.Subscribe(cfg.Kafka, topic, kafka.ReaderOptions{
				GroupID:     cfg.Kafka.ConsumerGroup + "-" + uuid.NewString(),
				StartOffset: kafka.FirstOffset,
			})
		}
		return correlator.NewFirstAnswer(questions, subscribe, cfg.Correlation.Timeout, m), nil
	}

	keyed := correlator.NewKeyed(questions, cfg.Correlation.Timeout, m)
	answers := kafka.NewConsumer(cfg.Kafka, topic, kafka.ReaderOptions{
		GroupID:     cfg.Kafka.ConsumerGroup + "-" + uuid.NewString(),
		StartOffset: kafka.LastOffset,
	}, keyed.HandleAnswer)
	return keyed, answers
}

func listen(s *http.Server) error {
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s: %w", s.Addr, err)
	}
	return nil
}
