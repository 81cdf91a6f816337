// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader. An empty configPath skips
// the file layer.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load loads configuration with precedence: ENV > File > Defaults, then
// resolves derived paths and validates.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := resolvePaths(&cfg); err != nil {
		return cfg, err
	}
	cfg.MuxerLocation = ResolveMuxerLocation(cfg.FFmpegLocation, cfg.YtdlpBin)

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration before any file or
// environment layer is applied.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:          DefaultDataDir,
		MaxConcurrent:    DefaultMaxConcurrent,
		YtdlpBin:         DefaultYtdlpBin,
		MergeFormat:      DefaultMergeFormat,
		OutputProbeGrace: DefaultOutputProbeGrace,
		StopGrace:        DefaultStopGrace,
		API: APIConfig{
			Listen:    DefaultListen,
			RateLimit: DefaultRateLimit,
		},
		Log: LogConfig{
			Level:   DefaultLogLevel,
			Service: DefaultLogService,
		},
		Telemetry: TelemetryConfig{
			Exporter:     DefaultExporter,
			SamplingRate: DefaultSamplingRate,
		},
	}
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parseFile(data)
}

func parseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	setString(&dst.DataDir, src.DataDir)
	setString(&dst.DownloadDir, src.DownloadDir)
	setString(&dst.HistoryDB, src.HistoryDB)
	setString(&dst.YtdlpBin, src.YtdlpBin)
	setString(&dst.FFmpegLocation, src.FFmpegLocation)
	setString(&dst.MergeFormat, src.MergeFormat)
	if src.MaxConcurrent != nil {
		dst.MaxConcurrent = *src.MaxConcurrent
	}

	if err := setDuration(&dst.OutputProbeGrace, "outputProbeGrace", src.OutputProbeGrace); err != nil {
		return err
	}
	if err := setDuration(&dst.StopGrace, "stopGrace", src.StopGrace); err != nil {
		return err
	}

	setString(&dst.API.Listen, src.API.Listen)
	if src.API.RateLimit != nil {
		dst.API.RateLimit = *src.API.RateLimit
	}

	setString(&dst.Log.Level, src.Log.Level)
	setString(&dst.Log.Service, src.Log.Service)

	if src.Telemetry.Enabled {
		dst.Telemetry.Enabled = true
	}
	setString(&dst.Telemetry.Exporter, src.Telemetry.Exporter)
	setString(&dst.Telemetry.Endpoint, src.Telemetry.Endpoint)
	if src.Telemetry.SamplingRate != 0 {
		dst.Telemetry.SamplingRate = src.Telemetry.SamplingRate
	}
	return nil
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = ParseString(EnvDataDir, cfg.DataDir)
	cfg.DownloadDir = ParseString(EnvDownloadDir, cfg.DownloadDir)
	cfg.HistoryDB = ParseString(EnvHistoryDB, cfg.HistoryDB)
	cfg.MaxConcurrent = ParseInt(EnvMaxConcurrent, cfg.MaxConcurrent)
	cfg.YtdlpBin = ParseString(EnvYtdlpBin, cfg.YtdlpBin)
	cfg.FFmpegLocation = ParseString(EnvFFmpegLocation, cfg.FFmpegLocation)
	cfg.MergeFormat = ParseString(EnvMergeFormat, cfg.MergeFormat)
	cfg.OutputProbeGrace = ParseDuration(EnvOutputProbeGrace, cfg.OutputProbeGrace)
	cfg.StopGrace = ParseDuration(EnvStopGrace, cfg.StopGrace)

	cfg.API.Listen = ParseString(EnvListen, cfg.API.Listen)
	cfg.API.RateLimit = ParseInt(EnvRateLimit, cfg.API.RateLimit)

	cfg.Log.Level = ParseString(EnvLogLevelShort, cfg.Log.Level)
	cfg.Log.Level = ParseString(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Service = ParseString(EnvLogService, cfg.Log.Service)

	cfg.Telemetry.Enabled = ParseBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(EnvOTLPExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(EnvOTLPEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(EnvTraceSampling, cfg.Telemetry.SamplingRate)
}

// resolvePaths makes DataDir absolute and derives the download directory and
// history database from it when they are unset.
func resolvePaths(cfg *AppConfig) error {
	abs, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = abs

	if cfg.DownloadDir == "" {
		cfg.DownloadDir = filepath.Join(cfg.DataDir, "downloads")
	} else if abs, err := filepath.Abs(cfg.DownloadDir); err == nil {
		cfg.DownloadDir = abs
	}

	if cfg.HistoryDB == "" {
		cfg.HistoryDB = filepath.Join(cfg.DataDir, "history.db")
	} else if !filepath.IsAbs(cfg.HistoryDB) {
		cfg.HistoryDB = filepath.Join(cfg.DataDir, cfg.HistoryDB)
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, field, v string) error {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, v, err)
	}
	*dst = d
	return nil
}
