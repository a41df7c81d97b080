// Package main provides the esport CLI entry point.
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
	"github.com/spf13/viper"

	"github.com/helmuth/esport/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// cfgFile overrides the default config file location
	cfgFile string
	// hostFlag overrides the configured host
	hostFlag string
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	// verbose enables debug logging on stderr
	verbose bool
)

var (
	cfg    *config.Config
	logger = slog.Default()
)

// skipConfig marks commands that must run without a valid configuration.
const skipConfig = "skip-config"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the command tree and reports a failure in the selected output format.
func execute(ctx context.Context, args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	reportError(err)
	return exitCodeFor(err)
}

var rootCmd = &cobra.Command{
	Use:   "esport",
	Short: "Bulk export and import for search indices",
	Long: `esport moves records between a search index and local files.

Core features:
  - Scroll exports to the console, CSV/TSV or a JSON array
  - Imports from CSV, TSV and JSON files with typed cell coercion
  - Index administration, single-document access and one-shot search
  - Sample data generation for testing

The host is an Elasticsearch URL (http:// or https://) or a local
SQLite index (sqlite:///path/to/file.db).
All commands output JSON by default; use --human for text.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/esport/config.yml)")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Index store URL (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and progress to stderr")
	rootCmd.Version = Version
}

// loadConfig sets up logging and loads the effective configuration.
func loadConfig(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	v := viper.New()
	if cmd.Flags().Changed("host") {
		v.Set("host", hostFlag)
	}
	loaded, err := config.Load(v, cfgFile)
	if err != nil {
		if errors.Is(err, config.ErrInvalid) {
			return err
		}
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	cfg = loaded
	logger.Debug("configuration loaded", "host", cfg.Host, "file", v.ConfigFileUsed())
	return nil
}
