package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Trigger the refresh job now",
	Long: `Manually trigger one invocation of the refresh job and wait for its
terminal status. Fails with a conflict if an invocation is already in
flight.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSdk(cmd)
		if err != nil {
			return err
		}

		fmt.Println("🚀 Triggering refresh job...")
		inv, err := s.TriggerInvocation(cmd.Context())
		if err != nil {
			return err
		}

		printInvocation(inv)
		if inv.Status != "succeeded" {
			return fmt.Errorf("invocation %s: %s", inv.Status, inv.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}
