package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs [invocation-id]",
	Short: "View captured output of an invocation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSdk(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("📋 Fetching logs for invocation: %s\n", args[0])
		logs, err := s.GetLogs(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Print(logs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
}
