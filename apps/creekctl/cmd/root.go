package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/hollandale/creekrun/pkg/sdk"
)

type contextKey string

const configContextKey contextKey = "creekrunconfig"

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "creekctl",
		Short: "CLI for the creekrun daemon (trigger, inspect, auth)",
		Long: `creekctl is a command-line tool for interacting with a running
creekrund daemon. It can trigger the refresh job manually, list past
invocations, fetch logs, and show the latest stored readings. Use the
auth subcommands to store the service token the daemon minted for you.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sdk.LoadConfig(cfgFile)
			if err != nil {
				return err
			}

			if err := cfg.Viper().BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configContextKey, cfg)
			cmd.SetContext(ctx)

			return nil
		},
	}
)

// GetConfig retrieves the Config from the command context
func GetConfig(cmd *cobra.Command) (*sdk.Config, error) {
	cfg, ok := cmd.Context().Value(configContextKey).(*sdk.Config)
	if !ok {
		return nil, errors.New("no config in context")
	}
	return cfg, nil
}

// newSdk builds an SDK client from the resolved config.
func newSdk(cmd *cobra.Command) (*sdk.Sdk, error) {
	cfg, err := GetConfig(cmd)
	if err != nil {
		return nil, err
	}
	return sdk.NewSdk(cfg.GetString(sdk.BaseUrlKey)), nil
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML). Searches: creekrun.yaml, .creekrun/config.yaml")
	rootCmd.PersistentFlags().String("base-url", "", "Base URL for the creekrun daemon (overrides config)")
}
