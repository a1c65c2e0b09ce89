package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/preflight"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify configuration and connectivity",
	Long: `Validate the configuration, list the source bucket and read back the
first report object, write, read back, and delete a marker object in the
destination bucket, and open the state file.
Every check runs even if an earlier one fails.

Exits 0 when everything passes, 3 on any connectivity failure.`,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
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

	deps := preflight.Deps{
		SourcePrefix: cfg.OCI.Prefix,
		StatePath:    cfg.State.File,
	}

	// Client construction failures become failed checks, not aborts, so
	// the remaining checks still report.
	source, srcErr := newSource(cfg)
	if srcErr == nil {
		deps.Source = source
		defer func() { _ = source.Close() }()
	}
	dest, dstErr := newDestination(ctx, cfg)
	if dstErr == nil {
		deps.Destination = dest
		defer func() { _ = dest.Close() }()
	}

	results, checkErr := preflight.Run(ctx, deps, log)
	for _, r := range results {
		mark := "ok"
		if !r.OK {
			mark = "FAIL"
		}
		fmt.Printf("%-20s %-4s %s", r.Name, mark, r.Method)
		if r.Detail != "" {
			fmt.Printf("  (%s)", r.Detail)
		}
		fmt.Println()
	}

	if srcErr != nil {
		return exitError(ExitConnectivity, "OCI client initialization failed", srcErr)
	}
	if dstErr != nil {
		return exitError(ExitConnectivity, "S3 client initialization failed", dstErr)
	}
	if checkErr != nil {
		return exitError(ExitConnectivity, "Connectivity check failed", checkErr)
	}

	fmt.Println("All checks passed.")
	return nil
}
