package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/chat"
	"github.com/chatcore-ai/chatcore/pkg/config"
	"github.com/chatcore-ai/chatcore/pkg/server"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svc, err := chat.Build(cfg, logger)
			if err != nil {
				return fmt.Errorf("build service: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := svc.Startup(ctx); err != nil {
				return fmt.Errorf("startup: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := svc.Shutdown(shutdownCtx); err != nil {
					logger.Warn("shutdown incomplete", zap.Error(err))
				}
			}()

			return server.New(svc, cfg.Listen, logger).Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}
