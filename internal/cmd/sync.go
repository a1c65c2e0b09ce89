package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/transfer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass and exit",
	Long: `Run a single discover-filter-transfer pass over the configured date
window and exit. Individual file failures are reported in the summary but
do not fail the command; only configuration, state, or cancellation
errors do.

Example:
  oracle-focus-agent sync -c config.yaml
  oracle-focus-agent sync -c config.yaml --lookback 7 --force
  oracle-focus-agent sync -c config.yaml --date 2024-11-28 --dry-run`,
	RunE: runSync,
}

var (
	syncForce    bool
	syncDryRun   bool
	syncJSON     bool
	syncLookback int
	syncDate     string
)

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Re-transfer files even when the state ledger says they are up to date")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Discover and filter, but do not transfer or touch state")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "Print the summary as JSON")
	syncCmd.Flags().IntVar(&syncLookback, "lookback", -1, "Override agent.lookback_days for this pass")
	syncCmd.Flags().StringVar(&syncDate, "date", "", "Sync a single date (YYYY-MM-DD) instead of the lookback window")
}

func syncDates(lookbackDays int) ([]time.Time, error) {
	if syncDate != "" {
		day, err := time.Parse("2006-01-02", syncDate)
		if err != nil {
			return nil, exitError(ExitConfig, "Invalid --date value", err)
		}
		return []time.Time{day.UTC()}, nil
	}
	if syncLookback >= 0 {
		lookbackDays = syncLookback
	}
	return transfer.DateRange(time.Now().UTC(), lookbackDays), nil
}

func runSync(cmd *cobra.Command, args []string) error {
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

	dates, err := syncDates(cfg.Agent.LookbackDays)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, log, syncDryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, syncErr := a.orch.Sync(ctx, dates, syncForce)
	printSummary(stats)

	switch {
	case syncErr == nil:
		return nil
	case errors.Is(syncErr, ctx.Err()):
		return exitError(ExitFailure, "Sync cancelled", syncErr)
	default:
		return exitError(ExitFailure, "Sync failed", syncErr)
	}
}

func printSummary(stats *transfer.Statistics) {
	if stats == nil {
		return
	}
	if syncJSON {
		_ = json.NewEncoder(os.Stdout).Encode(stats)
		return
	}
	fmt.Printf("Sync %s finished in %s\n", stats.SyncID, stats.Duration.Round(time.Millisecond))
	fmt.Printf("  discovered:       %d\n", stats.Discovered)
	fmt.Printf("  transferred:      %d (%s)\n", stats.Transferred, humanize.Bytes(uint64(stats.BytesTransferred)))
	fmt.Printf("  skipped:          %d up to date, %d oversize\n", stats.SkippedUpToDate, stats.SkippedOversize)
	fmt.Printf("  failed:           %d\n", stats.Failed)
	if stats.ListErrors > 0 {
		fmt.Printf("  listing errors:   %d\n", stats.ListErrors)
	}
}
