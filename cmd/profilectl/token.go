package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"profile-backend/internal/shared/auth"
	"profile-backend/internal/shared/config"
)

var (
	tokenGuest bool
	tokenTTL   time.Duration
	tokenKey   string
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue a bearer token for calling the API",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenGuest, "guest", false, "Mark the caller as a guest")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTTL, "Token lifetime")
	tokenCmd.Flags().StringVar(&tokenKey, "secret", "", "Signing secret (defaults to JWT_SECRET)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	secret := tokenKey
	if secret == "" {
		secret = config.Load().JWTSecret
	}
	verifier, err := auth.NewVerifier(secret)
	if err != nil {
		return err
	}

	token, err := verifier.Sign(args[0], tokenGuest, tokenTTL)
	if err != nil {
		return err
	}

	success(cmd.ErrOrStderr(), "signed token for %s", args[0])
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
