package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var readingsCmd = &cobra.Command{
	Use:   "readings [site-code]",
	Short: "Show the latest stored reading for a gauge site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSdk(cmd)
		if err != nil {
			return err
		}

		reading, err := s.GetLatestReading(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("💧 %s (%s)\n", reading.SiteName, reading.SiteCode)
		fmt.Printf("   Discharge:   %.1f cfs\n", reading.DischargeCFS)
		fmt.Printf("   Recorded at: %s\n", reading.RecordedAt)
		fmt.Printf("   Fetched at:  %s\n", reading.FetchedAt)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(readingsCmd)
}
