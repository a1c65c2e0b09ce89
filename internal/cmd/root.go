// Package cmd wires the agent's command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pileus-cloud/agent-oci-to-umbrella/internal/config"
)

// Exit codes form the agent's contract with supervisors and scripts.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitConfig       = 2
	ExitConnectivity = 3
)

// version is overridden at build time via -ldflags.
var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "oracle-focus-agent",
	Short: "Replicates OCI cost-report exports to S3",
	Long: `oracle-focus-agent polls an OCI Object Storage bucket for cost-report
exports (*.csv.gz under date-structured prefixes) and replicates new or
changed files to an S3 bucket, tracking completed transfers in a local
state file so every pass is idempotent.

Typical usage:
  oracle-focus-agent test -c config.yaml       # verify connectivity
  oracle-focus-agent sync -c config.yaml       # one pass, then exit
  oracle-focus-agent run -c config.yaml        # poll forever`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "Path to configuration file")
}

// exitCodeError carries a process exit code through cobra's error return.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func exitError(code int, message string, err error) error {
	if err == nil {
		return &exitCodeError{code: code, err: errors.New(message)}
	}
	return &exitCodeError{code: code, err: fmt.Errorf("%s: %w", message, err)}
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var ec *exitCodeError
		if errors.As(err, &ec) {
			return ec.code
		}
		return ExitFailure
	}
	return ExitOK
}

// loadConfig loads and validates the file behind --config. Both failure
// modes are configuration errors.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, exitError(ExitConfig, "Failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, exitError(ExitConfig, "Invalid configuration", err)
	}
	return cfg, nil
}
