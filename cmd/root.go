package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/healthtrace/internal/config"
	"github.com/ziadkadry99/healthtrace/internal/logging"
)

var (
	cfgFile string
	userID  string
	verbose bool
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "healthtrace",
	Short: "Health journal with semantic recall and pattern detection",
	Long: `healthtrace stores health check-ins and medical documents, indexes them
for semantic search, and surfaces recurring symptom patterns. It can answer
questions grounded in your own history over a CLI, an HTTP API, or MCP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; keys may come from the environment.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading .env: %w", err)
		}
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger = logging.Init(level, "text")
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", envOr("HEALTHTRACE_USER", "default"), "user whose journal to use")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
