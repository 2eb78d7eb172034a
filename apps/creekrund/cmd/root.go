package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "creekrund",
	Short: "creekrun daemon",
	Long: `creekrund runs the scheduled stream-gauge refresh job and serves the
control API. It triggers the refresh hourly, provisions an isolated
environment per invocation, and exposes invocation history, logs, and
stored readings over HTTP.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
