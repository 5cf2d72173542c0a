package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string

	// pipeline is opened before any subcommand runs.
	pipeline *core.Pipeline

	openPipeline = func(ctx context.Context, cfg config.Config) (*core.Pipeline, error) {
		return core.Open(ctx, cfg)
	}
)

var rootCmd = &cobra.Command{
	Use:   "beacon",
	Short: "Health news and clinical trial notifications",
	Long: `Beacon searches health news and clinical trials for a set of approved
concepts, scores what it finds and posts the most relevant events to Slack.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if pipeline == nil {
			return nil
		}
		return pipeline.Close(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (default $CONFIG_PATH or config/config.toml)")
}

func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if pipeline != nil {
		return nil
	}
	_ = godotenv.Load()

	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.toml"
	}
	cfg, err := config.Load(path)
	switch {
	case err == nil:
	case configPath == "" && errors.Is(err, os.ErrNotExist):
		slog.Warn("config file not found, using defaults", "path", path)
		cfg = config.Default()
	default:
		return err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	pipeline, err = openPipeline(cmd.Context(), *cfg)
	return err
}
