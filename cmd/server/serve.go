package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-callstate/internal/app"
	"github.com/vovakirdan/wirechat-callstate/internal/config"
	applog "github.com/vovakirdan/wirechat-callstate/internal/log"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var overrides config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the call store with its HTTP and websocket surface",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags, overrides)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Bool("auth", cfg.AuthEnabled()).Msg("starting callstate server")
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().DurationVar(&overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	cmd.Flags().DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	cmd.Flags().IntVar(&overrides.RateLimitPerMinute, "rate-limit", 0, "websocket actions per minute per connection")
	return cmd
}

// loadConfig applies flags over the loaded config and builds the logger.
func loadConfig(flags *rootFlags, overrides config.Config) (config.Config, *zerolog.Logger, error) {
	bootstrap := applog.New(firstNonEmpty(flags.logLevel, "info"), flags.logFormat)

	cfg, path, err := config.Load(bootstrap, flags.configPath)
	if err != nil {
		return cfg, nil, err
	}
	overrides.LogLevel = flags.logLevel
	overrides.LogFormat = flags.logFormat
	cfg.UpdateFrom(overrides)
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	logger := applog.New(cfg.LogLevel, cfg.LogFormat)
	logger.Debug().Str("path", path).Dur("shutdown_timeout", cfg.ShutdownTimeout).Msg("config loaded")
	return cfg, logger, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

