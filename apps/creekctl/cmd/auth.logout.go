package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hollandale/creekrun/pkg/sdk"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored service token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}

		if err := sdk.DeleteToken(cfg.GetString(sdk.BaseUrlKey)); err != nil {
			return fmt.Errorf("removing token from keyring: %w", err)
		}
		fmt.Println("Service token removed")
		return nil
	},
}

func init() {
	authCmd.AddCommand(logoutCmd)
}
