package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"moodchat/internal/pkg/auth/jwt"
)

var (
	tokenSecret string
	tokenTTL    time.Duration
)

// Sessions are normally issued by the identity provider; this mints one
// from the shared secret for local use.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an identity token for --user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if userID == "" {
			return errors.New("--user is required")
		}
		envFallback(cmd, "secret", "JWT_SECRET", &tokenSecret)
		if tokenSecret == "" {
			return errors.New("--secret or JWT_SECRET is required")
		}

		signed, err := jwt.GenerateToken(&jwt.Payload{UserID: userID}, tokenSecret, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), signed)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "HS256 signing secret (default JWT_SECRET)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", jwt.IdentityExpiration, "Token lifetime")
}
