package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and maintain the transfer state ledger",
}

var stateStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show tracked-file counts and totals",
	RunE:  runStateStats,
}

var stateRetentionDays int

var statePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop ledger entries older than the retention window",
	Long: `Drop ledger entries whose transfer finished before the retention
window. Purged files will be re-transferred if they still exist at the
source within the lookback window, so keep retention longer than
lookback.`,
	RunE: runStatePurge,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateStatsCmd)
	stateCmd.AddCommand(statePurgeCmd)

	statePurgeCmd.Flags().IntVar(&stateRetentionDays, "retention-days", -1, "Override state.retention_days")
}

func openStore() (*state.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := state.Open(cfg.State.File)
	if err != nil {
		var corrupt *state.CorruptError
		if errors.As(err, &corrupt) {
			return nil, exitError(ExitFailure, "State file is corrupt", err)
		}
		return nil, exitError(ExitConfig, "Failed to open state file", err)
	}
	return store, nil
}

func runStateStats(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	stats := store.Stats()
	fmt.Printf("State file:    %s\n", store.Path())
	fmt.Printf("Tracked files: %d\n", stats.Files)
	fmt.Printf("Total size:    %s\n", humanize.Bytes(uint64(stats.TotalBytes)))
	if stats.LastSync.IsZero() {
		fmt.Println("Last sync:     never")
	} else {
		fmt.Printf("Last sync:     %s (%s)\n", stats.LastSync.Format(time.RFC3339), humanize.Time(stats.LastSync))
	}
	return nil
}

func runStatePurge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	days := cfg.State.RetentionDays
	if stateRetentionDays >= 0 {
		days = stateRetentionDays
	}
	if days <= 0 {
		return exitError(ExitConfig, "Retention is disabled", fmt.Errorf("retention_days must be > 0 to purge"))
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	purged := store.Purge(time.Duration(days) * 24 * time.Hour)
	if purged == 0 {
		fmt.Println("Nothing to purge.")
		return nil
	}

	if err := store.Flush(); err != nil {
		return exitError(ExitFailure, "Failed to persist purged state", err)
	}
	fmt.Printf("Purged %d entries older than %d days.\n", purged, days)
	return nil
}
