package cmd

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pileus-cloud/agent-oci-to-umbrella/internal/metrics"
	"github.com/pileus-cloud/agent-oci-to-umbrella/internal/server"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/scheduler"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/transfer"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent as a foreground polling daemon",
	Long: `Run the agent in the foreground: one sync pass immediately, then one
per agent.poll_interval, until SIGINT or SIGTERM. An in-flight pass
finishes before the process exits.

When agent.status_addr is set, a read-only HTTP listener serves
/healthz, /status and /metrics.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := buildApp(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer a.Close()

	m := metrics.New()
	var lastStats atomic.Pointer[transfer.Statistics]

	syncFn := func(ctx context.Context) error {
		dates := transfer.DateRange(time.Now().UTC(), cfg.Agent.LookbackDays)
		stats, syncErr := a.orch.Sync(ctx, dates, false)
		if stats != nil {
			lastStats.Store(stats)
		}
		m.ObserveSync(stats, syncErr)

		if cfg.State.RetentionDays > 0 && syncErr == nil {
			if purged := a.store.Purge(time.Duration(cfg.State.RetentionDays) * 24 * time.Hour); purged > 0 {
				log.Info("purged stale ledger entries", zap.Int("purged", purged))
				if err := a.store.Flush(); err != nil {
					log.Warn("could not persist ledger after purge", zap.Error(err))
				}
			}
		}

		if syncErr != nil && !errors.Is(syncErr, context.Canceled) {
			return syncErr
		}
		return nil
	}

	sched, err := scheduler.New(cfg.Agent.PollInterval, syncFn, log)
	if err != nil {
		return exitError(ExitConfig, "Invalid scheduler configuration", err)
	}

	if cfg.Agent.StatusAddr != "" {
		srv := server.New(cfg.Agent.StatusAddr, server.Deps{
			Version:   version,
			Scheduler: sched,
			Store:     a.store,
			LastStats: lastStats.Load,
			Metrics:   m.Handler(),
		}, log)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error("status listener failed", zap.Error(err))
			}
		}()
	}

	log.Info("agent starting",
		zap.String("version", version),
		zap.String("source_bucket", cfg.OCI.Bucket),
		zap.String("destination", cfg.S3.BucketPath),
		zap.Duration("poll_interval", cfg.Agent.PollInterval))

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return exitError(ExitFailure, "Agent stopped unexpectedly", err)
	}

	log.Info("shutdown complete")
	return nil
}
