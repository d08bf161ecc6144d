package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/chat"
	"github.com/chatcore-ai/chatcore/pkg/config"
	"github.com/chatcore-ai/chatcore/pkg/storage"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history <user-id>",
		Short: "Show recent interactions for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			repo, err := chat.BuildRepository(cfg.Storage, zap.NewNop())
			if err != nil {
				return err
			}

			ctx := context.Background()
			if err := repo.Startup(ctx); err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer func() { _ = repo.Shutdown(ctx) }()

			history, err := repo.GetHistory(ctx, args[0], limit)
			if err != nil {
				return err
			}
			if len(history) == 0 {
				fmt.Println("No interactions found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tMODEL\tTOKENS\tCONTENT\tRESPONSE")
			for _, in := range history {
				tokens := "-"
				if in.Usage != nil {
					tokens = fmt.Sprintf("%d", in.Usage.TotalTokens)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					in.CreatedAt.Format("2006-01-02T15:04:05"), in.Model, tokens,
					clip(in.Content, 40), clip(in.Response, 40))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultHistoryLimit, "max interactions to show")
	return cmd
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
