// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Defaults
const (
	DefaultDataDir          = "data"
	DefaultMaxConcurrent    = 3
	DefaultYtdlpBin         = "yt-dlp"
	DefaultMergeFormat      = "mp4"
	DefaultOutputProbeGrace = 100 * time.Millisecond
	DefaultStopGrace        = 2 * time.Second
	DefaultListen           = ":8089"
	DefaultRateLimit        = 120 // requests per minute per client IP
	DefaultLogLevel         = "info"
	DefaultLogService       = "ytdlq"
	DefaultExporter         = "grpc"
	DefaultSamplingRate     = 1.0
)

// MergeFormats are the containers the muxer can produce.
var MergeFormats = []string{"mp4", "mkv", "webm"}

// FileConfig represents the YAML configuration structure. Durations are
// strings in Go duration syntax ("100ms", "2s").
type FileConfig struct {
	DataDir          string          `yaml:"dataDir,omitempty"`
	DownloadDir      string          `yaml:"downloadDir,omitempty"`
	MaxConcurrent    *int            `yaml:"maxConcurrent,omitempty"`
	YtdlpBin         string          `yaml:"ytdlpBin,omitempty"`
	FFmpegLocation   string          `yaml:"ffmpegLocation,omitempty"`
	MergeFormat      string          `yaml:"mergeFormat,omitempty"`
	OutputProbeGrace string          `yaml:"outputProbeGrace,omitempty"`
	StopGrace        string          `yaml:"stopGrace,omitempty"`
	HistoryDB        string          `yaml:"historyDB,omitempty"`
	API              APIFileConfig   `yaml:"api,omitempty"`
	Log              LogFileConfig   `yaml:"log,omitempty"`
	Telemetry        TelemetryConfig `yaml:"telemetry,omitempty"`
}

// APIFileConfig holds HTTP API settings as written in YAML.
type APIFileConfig struct {
	Listen    string `yaml:"listen,omitempty"`
	RateLimit *int   `yaml:"rateLimit,omitempty"`
}

// LogFileConfig holds logging settings as written in YAML.
type LogFileConfig struct {
	Level   string `yaml:"level,omitempty"`
	Service string `yaml:"service,omitempty"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled,omitempty"`
	Exporter     string  `yaml:"exporter,omitempty"` // "grpc" or "http"
	Endpoint     string  `yaml:"endpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty"`
}

// APIConfig holds resolved HTTP API settings.
type APIConfig struct {
	Listen string
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int
}

// LogConfig holds resolved logging settings.
type LogConfig struct {
	Level   string
	Service string
}

// AppConfig is the fully resolved configuration.
type AppConfig struct {
	Version string

	DataDir     string
	DownloadDir string
	HistoryDB   string

	MaxConcurrent  int
	YtdlpBin       string
	FFmpegLocation string
	// MuxerLocation is FFmpegLocation after resolution; empty means PATH.
	MuxerLocation    string
	MergeFormat      string
	OutputProbeGrace time.Duration
	StopGrace        time.Duration

	API       APIConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}
