package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hollandale/creekrun/pkg/auth"
	"github.com/hollandale/creekrun/pkg/sdk"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a service token",
	Long: `Store the service token minted by the daemon ('creekrund token') in the
OS keyring for subsequent commands.

Examples:
	# paste the token at a hidden prompt
	creekctl auth login

	# non-interactive
	creekctl auth login --token <TOKEN>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}
		baseURL := cfg.GetString(sdk.BaseUrlKey)

		token := loginToken
		if token == "" {
			fmt.Fprint(os.Stderr, "Service token: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("reading token: %w", err)
			}
			token = strings.TrimSpace(string(raw))
		}
		if token == "" {
			return fmt.Errorf("no token provided")
		}

		if tc, err := auth.FromToken(token); err == nil {
			expStr := "unknown"
			if tc.Exp > 0 {
				expStr = time.Unix(tc.Exp, 0).Format(time.RFC3339)
			}
			fmt.Printf("Logged in as: %s\n", tc.Subject)
			fmt.Printf("Token expires: %s\n", expStr)
		} else {
			log.Printf("warning: failed to parse token claims: %v", err)
		}

		if err := sdk.SaveToken(baseURL, token); err != nil {
			return fmt.Errorf("saving token to keyring: %w", err)
		}
		fmt.Println("Service token saved")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Service token (skips the prompt)")
	authCmd.AddCommand(loginCmd)
}
