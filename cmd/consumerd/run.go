package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/next-trace/scg-consumer-bus/config"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Bind consumer endpoints and consume until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			app, cleanup, err := initApp(cfg)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			defer cleanup()

			slog.SetDefault(app.Logger)
			log := app.Logger.With("component", "cmd.run")

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}

			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("consumerd starting", "transport", cfg.Transport, "naming", cfg.Endpoints.Naming, "prefix", cfg.Endpoints.Prefix)

			if err := app.Bus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("consumerd failed", "error", err)
				return err
			}

			log.Info("consumerd stopped")

			return nil
		},
	}
}
