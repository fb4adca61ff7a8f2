package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jfdurocher/qdmboxsearch/internal/config"
	"github.com/jfdurocher/qdmboxsearch/internal/loader"
)

var (
	cfgFile string
	homeDir string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "qdmboxsearch",
	Short: "Search tool for mbox email archives",
	Long: `qdmboxsearch scans mbox email archives and searches them by subject
or body text, entirely in memory.

A scan indexes message boundaries and headers without keeping bodies
around; searches that need body text read it back from the archive on
demand. Use 'browse' for an interactive terminal UI.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" {
			return nil
		}

		// Set up logging
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		// Load config (--home is passed through so it influences
		// where config.toml is loaded from, like QDMBOXSEARCH_HOME).
		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Ensure home directory exists on first use
		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create data directory %s: %w", cfg.HomeDir, err)
		}

		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loaderOptions maps the loaded config onto loader options. Commands
// that take flag overrides mutate the result before use.
func loaderOptions() loader.Options {
	return loader.Options{
		MaxHeaderBytes:   cfg.Load.MaxHeaderBytes,
		ProgressInterval: cfg.Load.ProgressInterval.Duration,
		StrictSeparators: cfg.Load.StrictSeparators,
		KeepFromEscapes:  cfg.Load.KeepFromEscapes,
		Logger:           logger,
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.qdmboxsearch/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides QDMBOXSEARCH_HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
