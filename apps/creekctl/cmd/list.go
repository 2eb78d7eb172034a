package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hollandale/creekrun/pkg/api/schemas"
)

var listStatus string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List invocations",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSdk(cmd)
		if err != nil {
			return err
		}

		invs, err := s.ListInvocations(cmd.Context(), listStatus)
		if err != nil {
			return err
		}

		if len(invs) == 0 {
			fmt.Println("No invocations")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTRIGGER\tSTATUS\tFAILURE\tCREATED")
		for _, inv := range invs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				inv.ID, inv.Trigger, inv.Status, orDash(inv.FailureKind), inv.CreatedAt)
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status")
	rootCmd.AddCommand(listCmd)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printInvocation(inv *schemas.InvocationResponse) {
	fmt.Printf("ID:       %s\n", inv.ID)
	fmt.Printf("Job:      %s\n", inv.Job)
	fmt.Printf("Trigger:  %s\n", inv.Trigger)
	fmt.Printf("Status:   %s\n", inv.Status)
	if inv.Phase != "" {
		fmt.Printf("Phase:    %s\n", inv.Phase)
	}
	if inv.FailureKind != "" {
		fmt.Printf("Failure:  %s\n", inv.FailureKind)
	}
	if inv.Error != "" {
		fmt.Printf("Error:    %s\n", inv.Error)
	}
	if inv.ExitCode != nil {
		fmt.Printf("Exit:     %d\n", *inv.ExitCode)
	}
	fmt.Printf("Created:  %s\n", inv.CreatedAt)
	if inv.FinishedAt != nil {
		fmt.Printf("Finished: %s\n", *inv.FinishedAt)
	}
}
