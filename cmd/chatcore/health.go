package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/chat"
	"github.com/chatcore-ai/chatcore/pkg/config"
)

func newHealthCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check storage and provider health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			svc, err := chat.Build(cfg, zap.NewNop())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := svc.Startup(ctx); err != nil {
				return fmt.Errorf("startup: %w", err)
			}
			defer func() { _ = svc.Shutdown(ctx) }()

			status := svc.HealthCheck(ctx)
			fmt.Printf("storage: %s\n", okString(status.Storage))
			fmt.Printf("llm:     %s\n", okString(status.LLM))

			if !status.Storage || !status.LLM {
				return fmt.Errorf("unhealthy")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}

func okString(ok bool) string {
	if ok {
		return "ok"
	}
	return "unavailable"
}
