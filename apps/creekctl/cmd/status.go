package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [invocation-id]",
	Short: "Show daemon health or invocation details",
	Long: `Without arguments, checks the daemon is reachable. With an invocation
ID, shows that invocation's details.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSdk(cmd)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			if err := s.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("✓ daemon is healthy")
			return nil
		}

		inv, err := s.GetInvocation(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printInvocation(inv)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
