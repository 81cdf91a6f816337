// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/ManuGH/ytdlq/internal/log"
)

// Environment keys
const (
	EnvDataDir          = "YTDLQ_DATA_DIR"
	EnvDownloadDir      = "YTDLQ_DOWNLOAD_DIR"
	EnvMaxConcurrent    = "YTDLQ_MAX_CONCURRENT"
	EnvYtdlpBin         = "YTDLQ_YTDLP_BIN"
	EnvFFmpegLocation   = "YTDLQ_FFMPEG_LOCATION"
	EnvMergeFormat      = "YTDLQ_MERGE_FORMAT"
	EnvOutputProbeGrace = "YTDLQ_OUTPUT_PROBE_GRACE"
	EnvStopGrace        = "YTDLQ_STOP_GRACE"
	EnvHistoryDB        = "YTDLQ_HISTORY_DB"
	EnvListen           = "YTDLQ_LISTEN"
	EnvRateLimit        = "YTDLQ_RATE_LIMIT"
	EnvLogLevel         = "YTDLQ_LOG_LEVEL"
	EnvLogService       = "YTDLQ_LOG_SERVICE"
	EnvTelemetryEnabled = "YTDLQ_TELEMETRY_ENABLED"
	EnvOTLPExporter     = "YTDLQ_OTLP_EXPORTER"
	EnvOTLPEndpoint     = "YTDLQ_OTLP_ENDPOINT"
	EnvTraceSampling    = "YTDLQ_TRACE_SAMPLING"

	// EnvLogLevelShort is honoured when YTDLQ_LOG_LEVEL is unset.
	EnvLogLevelShort = "LOG_LEVEL"
)

func envLogger() zerolog.Logger { return xlog.WithComponent("config") }

// ParseString reads a string from environment variable or returns default value.
// An empty variable counts as unset.
func ParseString(key, defaultValue string) string {
	logger := envLogger()
	if value, ok := os.LookupEnv(key); ok && value != "" {
		logger.Debug().Str("key", key).Str("value", value).Str("source", "environment").Msg("using environment variable")
		return value
	}
	return defaultValue
}

// ParseInt reads an integer from environment variable or returns default value.
// It falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger := envLogger()
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	return i
}

// ParseBool reads a boolean (strconv syntax) from environment variable or returns default value.
func ParseBool(key string, defaultValue bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		logger := envLogger()
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
	return b
}

// ParseFloat reads a float from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logger := envLogger()
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	return f
}

// ParseDuration reads a duration from environment variable in Go duration format (e.g. "5s").
// It falls back to default on parse errors or empty variables.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logger := envLogger()
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	return d
}
