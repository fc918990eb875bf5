// Package main provides the overbar command-line client.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/overbar/internal/config"
	"github.com/jmylchreest/overbar/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		timeout    time.Duration
	}
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "overbar",
	Short: "Post progress messages to the overbar status strip",
	Long: `overbar controls the overbard status strip over D-Bus.

Post activity, finish and error messages, hide or shrink the bar, and
inspect what it has shown. overbard must be running.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, dbus.ErrNotRunning) {
			fmt.Fprintln(os.Stderr, "overbar: overbard is not running")
		} else {
			fmt.Fprintln(os.Stderr, "overbar:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/overbar/config.toml)")
	rootCmd.PersistentFlags().DurationVar(&globalOpts.timeout, "timeout", 5*time.Second,
		"Timeout for each request to overbard")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// getConfig returns the loaded config, or defaults outside a command run.
func getConfig() *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

// withClient connects to the daemon and runs fn with a request deadline.
func withClient(fn func(ctx context.Context, c *dbus.Client) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), globalOpts.timeout)
	defer cancel()

	client, err := dbus.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	logger.Debug("connected to overbard", "interface", dbus.DBusInterface)
	return fn(ctx, client)
}
