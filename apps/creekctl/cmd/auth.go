package cmd

import (
	"github.com/spf13/cobra"
)

// authCmd groups the token management subcommands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the service token",
}

func init() {
	rootCmd.AddCommand(authCmd)
}
