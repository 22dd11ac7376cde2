// Package main is the entry point for paperctl, a command-line client that
// runs paper analyses and citation lookups in-process, without a server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/paper-analysis-service/internal/config"
	"github.com/helixir/paper-analysis-service/internal/observability"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "paperctl",
	Short: "Analyze arXiv papers from the command line",
	Long: `paperctl runs the paper analysis pipeline locally. It resolves arXiv
metadata, extracts the full text, asks the configured language model for
summaries and a difficulty rating, and formats citations.

Configuration is read the same way as the server: config.yaml, then
PAPERASSIST_* environment variables, then a .env file in the working
directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		if mock, _ := cmd.Flags().GetBool("mock"); mock {
			// Environment overrides config files, so this wins over config.yaml.
			_ = os.Setenv(config.EnvPrefix+"_LLM_PROVIDER", config.ProviderMock)
			_ = os.Setenv(config.EnvPrefix+"_PAPER_SOURCES_USE_MOCK", "true")
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		level, _ := cmd.Flags().GetString("log-level")
		logger = observability.NewLogger(observability.LoggingConfig{
			Level:  level,
			Format: "console",
			Output: "stderr",
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("mock", false, "use mock metadata and a mock language model (no network)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level written to stderr")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
