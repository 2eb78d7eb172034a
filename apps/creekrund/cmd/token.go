package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/hollandale/creekrun/pkg/api/config"
	"github.com/hollandale/creekrun/pkg/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

// tokenCmd mints a service token for creekctl. It needs the same
// AUTH_SECRET the daemon runs with.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a service token",
	Long: `Mint a service token signed with the daemon's AUTH_SECRET. Hand the
token to creekctl via 'creekctl auth login'.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.ValidateEnv()
		if err != nil {
			log.Fatalf("❌ %v\n", err)
		}

		token, err := auth.Mint([]byte(cfg.AuthSecret), tokenSubject, tokenTTL)
		if err != nil {
			log.Fatalf("failed to mint token: %v", err)
		}

		fmt.Println(token)
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "creekctl", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTTL, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
