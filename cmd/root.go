package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mailsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mailsync",
	Short: "Gmail ingestion and contact reconciliation pipeline",
	Long:  "Fetches unprocessed Gmail messages, extracts contact details via patterns and Claude, reconciles sender entities, and stores summarized mail history.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Optional .env for local development.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
