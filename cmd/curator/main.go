// Command curator collects engineering articles, filters duplicates,
// ranks them and drafts GitHub issues for the best ones.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deusflow/curator/internal/config"
	"github.com/deusflow/curator/internal/logger"
	"github.com/deusflow/curator/internal/metrics"
)

var (
	version = "dev"
	cfgFile string

	v   = viper.New()
	cfg *config.Config
	logr *slog.Logger
	// shared by the workflow and the monitoring endpoint
	stats = metrics.New()

	rootCmd = &cobra.Command{
		Use:               "curator",
		Short:             "Curate engineering news into prioritized GitHub issues",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./curator.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("sources", "config/sources.yaml", "sources YAML file")
	flags.String("backend", "ollama", "AI backend (ollama, gemini, none)")
	flags.Bool("dry-run", false, "log issues instead of creating them")
	flags.String("monitor-addr", "", "serve /health and /metrics on this address, e.g. :8080")

	for key, name := range map[string]string{
		"log.level":      "log-level",
		"log.format":     "log-format",
		"paths.sources":  "sources",
		"ai.backend":     "backend",
		"github.dry_run": "dry-run",
		"monitor.addr":   "monitor-addr",
	} {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}

	rootCmd.AddCommand(runCmd(), analyzeCmd(), issuesCmd(), versionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("curator")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = c
	logr = logger.Init(cfg.LogLevel, cfg.LogFormat)
	return nil
}
