package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-callstate/internal/auth"
	"github.com/vovakirdan/wirechat-callstate/internal/config"
)

func newTokenCmd(flags *rootFlags) *cobra.Command {
	var (
		client string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the control surface",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(flags, config.Config{})
			if err != nil {
				return err
			}
			if !cfg.AuthEnabled() {
				return errors.New("jwt_secret is not configured")
			}
			if ttl == 0 {
				ttl = cfg.JWTTTL
			}

			token, err := auth.GenerateToken(&auth.JWTConfig{
				Secret:   []byte(cfg.JWTSecret),
				Issuer:   cfg.JWTIssuer,
				Audience: cfg.JWTAudience,
				TTL:      ttl,
			}, client)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&client, "client", "cli", "client name stored in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from config)")
	return cmd
}
