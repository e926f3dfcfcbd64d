// Package cli implements the gapscan command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gapscan/internal/app"
	"gapscan/internal/config"
	"gapscan/internal/logger"
	"gapscan/internal/metrics"
)

var version = "dev"

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "gapscan",
	Short: "Find under-researched domains in a corpus of abstracts",
	Long: `gapscan clusters research abstracts by semantic similarity and flags
clusters that are small relative to the rest as potential research gaps.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("gapscan version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./config.yaml, then ~/.config/gapscan/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level from config")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command, writing command output to stdout.
func Execute() error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.Execute()
}

func loadConfig() (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// buildApp loads config and wires the application. m may be nil.
func buildApp(ctx context.Context, m *metrics.Metrics) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	a, err := app.New(ctx, cfg, log, m)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		a.Logger.Warn("close failed", "error", err)
	}
	a.Logger.Sync()
}
