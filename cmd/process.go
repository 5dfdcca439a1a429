package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mailsync/internal/pipeline"
	"github.com/sells-group/mailsync/pkg/anthropic"
	"github.com/sells-group/mailsync/pkg/gmail"
)

var (
	processQuery string
	processLimit int
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Fetch and process a batch of Gmail messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("process"); err != nil {
			return err
		}

		query := processQuery
		if query == "" {
			query = cfg.Batch.Query
		}
		limit := processLimit
		if limit <= 0 {
			limit = cfg.Batch.Limit
		}

		token, err := cfg.Gmail.ResolveToken()
		if err != nil {
			return err
		}

		gmailClient, err := gmail.NewClient(ctx, token)
		if err != nil {
			return err
		}
		anthropicClient := anthropic.NewClient(cfg.Anthropic.Key)

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		p, err := pipeline.New(gmailClient, anthropicClient, st, cfg.Anthropic.Model)
		if err != nil {
			return err
		}

		stats, err := p.ProcessBatch(ctx, query, limit)
		if err != nil {
			return eris.Wrap(err, "process batch")
		}

		zap.L().Info("batch complete",
			zap.Int("processed", stats.Processed),
			zap.Int("failed", stats.Failed),
		)
		fmt.Printf("Processed %d messages, %d failed.\n", stats.Processed, stats.Failed)
		return nil
	},
}

func init() {
	processCmd.Flags().StringVar(&processQuery, "query", "", "Gmail search query (default from config)")
	processCmd.Flags().IntVar(&processLimit, "limit", 0, "max number of messages to process (default from config)")
	rootCmd.AddCommand(processCmd)
}
