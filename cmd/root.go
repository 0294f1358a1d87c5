package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/clockface-studio/photoclock/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photoclock",
		Short: "Circular photo collage editor and print renderer",
		Long: `photoclock composes twelve ring photos and a center photo into a
clock-style circular collage.

It serves a local editor with a live preview, and renders print-ready
JPEG and PDF files at 4096px or more.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return setupLogging(logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newPreviewCmd())

	return cmd
}

func setupLogging(level string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info", "":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
	return nil
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
