package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// ReconcileCmd returns the reconcile command, which finishes uploads left
// incomplete in the ingestion journal.
func ReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Resume incomplete uploads from the ingestion journal",
		Long: "Replay every journaled upload from its last completed step: store, extract, " +
			"publish the ingestion event, insert the metadata row. Requires redis.enabled.",
		Args: cobra.NoArgs,
		RunE: runReconcile,
	}
	cmd.Flags().Duration("min-age", time.Minute, "Skip uploads younger than this, which may still be in flight")
	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Redis.Enabled {
		return errJournalDisabled
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, prometheus.NewRegistry(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	minAge, _ := cmd.Flags().GetDuration("min-age")
	completed, failed, err := a.pipeline.Reconcile(ctx, minAge)
	if err != nil {
		return fmt.Errorf("reconciling uploads: %w", err)
	}
	slog.Info("reconcile finished", "completed", completed, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d uploads could not be completed", failed)
	}
	return nil
}
