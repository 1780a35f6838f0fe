// Package cmd implements the spreadscan CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spreadscan/spreadscan/pkg/logging"
)

var (
	verbose bool
	quiet   bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "spreadscan",
	Short: "Cross-marketplace price arbitrage scanner",
	Long: `Spreadscan searches multiple marketplaces for the same physical item,
matches listings across platforms, resolves an independent reference
value for each item, and reports the cost spread.

Source credentials are read from the environment (or a .env.local file):
EBAY_OAUTH, RAPIDAPI_KEY, WATCHINDEX_API_KEY, GEMINI_API_KEY.`,
}

// Execute runs the root command with signal-aware context.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
}

// initConfig loads .env files and environment variables before any
// command runs.
func initConfig() {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	configureLogging()
}

// loadEnvFiles loads credential files into the environment. .env.local
// wins over .env; neither is required.
func loadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err == nil && verbose {
			fmt.Fprintln(os.Stderr, "Loaded environment from", name)
		}
	}
}

// configureLogging sets the default log level from flags and environment.
func configureLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if quiet {
		level = zerolog.WarnLevel
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if parsed, err := zerolog.ParseLevel(envLevel); err == nil {
			level = parsed
		}
	}
	logging.SetDefault(logging.Default().Level(level))
}
