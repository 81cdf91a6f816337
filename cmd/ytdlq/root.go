// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/ytdlq/internal/config"
	xlog "github.com/ManuGH/ytdlq/internal/log"
	"github.com/ManuGH/ytdlq/internal/version"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ytdlq",
		Short:         "Quality ladders and a bounded download queue for yt-dlp",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Version}} (commit: " + version.Commit + ", built: " + version.Date + ")\n")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(
		newFetchCmd(opts),
		newGetCmd(opts),
		newServeCmd(opts),
		newHistoryCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// resolveConfigPath returns the explicit --config path or, when absent, an
// existing config.yaml in the data directory.
func (o *rootOptions) resolveConfigPath() string {
	if p := strings.TrimSpace(o.configPath); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(config.ParseString(config.EnvDataDir, config.DefaultDataDir))
	if dataDir == "" {
		dataDir = config.DefaultDataDir
	}
	auto := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(auto); err == nil {
		return auto
	}
	return ""
}

// load resolves configuration and re-applies logging from it.
func (o *rootOptions) load() (config.AppConfig, error) {
	path := o.resolveConfigPath()
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		return cfg, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	xlog.Reconfigure(xlog.Config{
		Level:   cfg.Log.Level,
		Output:  os.Stderr,
		Service: cfg.Log.Service,
		Version: cfg.Version,
	})

	logger := xlog.WithComponent("cli")
	if path != "" {
		logger.Debug().Str(xlog.FieldEvent, "config.loaded").Str("source", "file").Str(xlog.FieldPath, path).Msg("loaded configuration from file")
	} else {
		logger.Debug().Str(xlog.FieldEvent, "config.loaded").Str("source", "env+defaults").Msg("loaded configuration from environment and defaults")
	}
	return cfg, nil
}
