// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	xlog "github.com/ManuGH/ytdlq/internal/log"
)

// Manager handles configuration persistence.
type Manager struct {
	configPath string
}

// NewManager creates a new configuration manager.
func NewManager(configPath string) *Manager {
	return &Manager{configPath: configPath}
}

// Path returns the file the manager writes.
func (m *Manager) Path() string { return m.configPath }

// Save writes cfg as YAML. The file is replaced atomically and durably, so a
// crash never leaves a partial config behind.
func (m *Manager) Save(cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o750); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	data, err := yaml.Marshal(ToFileConfig(cfg))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	pending, err := renameio.NewPendingFile(m.configPath, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger := xlog.WithComponent("config")
			logger.Debug().Err(err).Msg("cleanup pending config file")
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write config data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace config file: %w", err)
	}
	return nil
}

// ToFileConfig maps a resolved config back to its YAML shape. Derived values
// (MuxerLocation, Version) are not written.
func ToFileConfig(cfg AppConfig) FileConfig {
	maxConcurrent := cfg.MaxConcurrent
	rateLimit := cfg.API.RateLimit
	return FileConfig{
		DataDir:          cfg.DataDir,
		DownloadDir:      cfg.DownloadDir,
		MaxConcurrent:    &maxConcurrent,
		YtdlpBin:         cfg.YtdlpBin,
		FFmpegLocation:   cfg.FFmpegLocation,
		MergeFormat:      cfg.MergeFormat,
		OutputProbeGrace: cfg.OutputProbeGrace.String(),
		StopGrace:        cfg.StopGrace.String(),
		HistoryDB:        cfg.HistoryDB,
		API: APIFileConfig{
			Listen:    cfg.API.Listen,
			RateLimit: &rateLimit,
		},
		Log: LogFileConfig{
			Level:   cfg.Log.Level,
			Service: cfg.Log.Service,
		},
		Telemetry: cfg.Telemetry,
	}
}
