package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pileus-cloud/agent-oci-to-umbrella/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print a complete default configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		example, err := config.Example()
		if err != nil {
			return exitError(ExitFailure, "Failed to render example configuration", err)
		}
		fmt.Print(example)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configExampleCmd)
}
