// Package cli wires the windrose commands.
package cli

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tomatolover555/windrose-ai/internal/config"
)

const version = "1.0.0"

type rootFlags struct {
	ConfigPath string
	LogLevel   string
}

var rf rootFlags

func Execute() error {
	rootCmd := &cobra.Command{
		Use:           "windrose",
		Short:         "Agent-discovery directory: verification runs, query API and submission intake",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&rf.ConfigPath, "config", os.Getenv("WINDROSE_CONFIG"), "Path to config.json (defaults to WINDROSE_CONFIG, built-in defaults if empty)")
	rootCmd.PersistentFlags().StringVar(&rf.LogLevel, "log-level", "", "Override logging.level from the config")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(queryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

// loadConfig reads the configured file, or the defaults when none is given,
// and applies the logging section.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if rf.ConfigPath != "" {
		loaded, err := config.Load(rf.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if rf.LogLevel != "" {
		cfg.Logging.Level = rf.LogLevel
	}
	setupLogging(cfg.Logging)
	return cfg, nil
}

func setupLogging(cfg config.LoggingConfig) {
	if cfg.Format == "text" {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
