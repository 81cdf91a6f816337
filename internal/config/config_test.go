// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ytdlq/internal/validate"
)

func TestMain(m *testing.M) {
	// Unset all YTDLQ vars to ensure clean test environment
	for _, e := range os.Environ() {
		key, _, _ := strings.Cut(e, "=")
		if strings.HasPrefix(key, "YTDLQ_") || key == EnvLogLevelShort {
			if err := os.Unsetenv(key); err != nil {
				panic("failed to unset env: " + err.Error())
			}
		}
	}
	os.Exit(m.Run())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv(EnvDataDir, dataDir)

	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "downloads"), cfg.DownloadDir)
	assert.Equal(t, filepath.Join(dataDir, "history.db"), cfg.HistoryDB)
	assert.Equal(t, 3, cfg.MaxConcurrent)
	assert.Equal(t, "yt-dlp", cfg.YtdlpBin)
	assert.Equal(t, "mp4", cfg.MergeFormat)
	assert.Equal(t, 100*time.Millisecond, cfg.OutputProbeGrace)
	assert.Equal(t, 2*time.Second, cfg.StopGrace)
	assert.Equal(t, ":8089", cfg.API.Listen)
	assert.Empty(t, cfg.MuxerLocation, "bare yt-dlp name must not guess a muxer")
	assert.False(t, cfg.Telemetry.Enabled)

	info, err := os.Stat(cfg.DownloadDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoad_Precedence(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
dataDir: `+dataDir+`
maxConcurrent: 5
mergeFormat: mkv
outputProbeGrace: 250ms
historyDB: jobs.db
api:
  listen: 127.0.0.1:9000
  rateLimit: 0
log:
  level: debug
`)
	t.Setenv(EnvMaxConcurrent, "7")
	t.Setenv(EnvFFmpegLocation, "/opt/ffmpeg/bin/ffmpeg")

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.MaxConcurrent, "env beats file")
	assert.Equal(t, "mkv", cfg.MergeFormat, "file beats default")
	assert.Equal(t, 250*time.Millisecond, cfg.OutputProbeGrace)
	assert.Equal(t, filepath.Join(dataDir, "jobs.db"), cfg.HistoryDB)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.Listen)
	assert.Zero(t, cfg.API.RateLimit)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.MuxerLocation)
}

func TestLoad_LogLevelEnv(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvLogLevelShort, "warn")

	cfg, err := NewLoader("", "").Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)

	t.Setenv(EnvLogLevel, "error")
	cfg, err = NewLoader("", "").Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_StrictFile(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())

	t.Run("unknown field", func(t *testing.T) {
		_, err := NewLoader(writeConfig(t, "maxConcurrnet: 2\n"), "").Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownConfigField)
	})

	t.Run("multiple documents", func(t *testing.T) {
		_, err := NewLoader(writeConfig(t, "maxConcurrent: 2\n---\nmaxConcurrent: 3\n"), "").Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "multiple documents")
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := NewLoader(writeConfig(t, ""), "").Load()
		require.NoError(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := NewLoader(writeConfig(t, "stopGrace: soon\n"), "").Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stopGrace")
	})

	t.Run("not yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
		_, err := NewLoader(path, "").Load()
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"), "").Load()
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvMaxConcurrent, "0")
	t.Setenv(EnvMergeFormat, "avi")

	_, err := NewLoader("", "").Load()
	require.Error(t, err)

	var verr validate.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Errors()))
	for _, e := range verr.Errors() {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"maxConcurrent", "mergeFormat"}, fields)
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvMaxConcurrent, "many")
	t.Setenv(EnvStopGrace, "later")

	cfg, err := NewLoader("", "").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxConcurrent, cfg.MaxConcurrent)
	assert.Equal(t, DefaultStopGrace, cfg.StopGrace)
}

func TestValidate_Telemetry(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = t.TempDir()
	cfg.DownloadDir = cfg.DataDir
	cfg.HistoryDB = filepath.Join(cfg.DataDir, "h.db")
	require.NoError(t, Validate(cfg))

	cfg.Telemetry = TelemetryConfig{Enabled: true, Exporter: "zipkin", SamplingRate: 2}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telemetry.exporter")
	assert.Contains(t, err.Error(), "telemetry.endpoint")
	assert.Contains(t, err.Error(), "telemetry.samplingRate")
}

func TestManager_SaveThenLoad(t *testing.T) {
	dataDir := t.TempDir()
	cfg := Defaults()
	cfg.DataDir = dataDir
	cfg.MaxConcurrent = 4
	cfg.FFmpegLocation = "/usr/local/bin/ffmpeg"
	cfg.StopGrace = 5 * time.Second

	path := filepath.Join(t.TempDir(), "nested", "ytdlq.yaml")
	m := NewManager(path)
	require.NoError(t, m.Save(cfg))
	assert.Equal(t, path, m.Path())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.MaxConcurrent)
	assert.Equal(t, 5*time.Second, loaded.StopGrace)
	assert.Equal(t, "/usr/local/bin/ffmpeg", loaded.MuxerLocation)
	assert.Equal(t, dataDir, loaded.DataDir)

	// overwrite in place
	cfg.MaxConcurrent = 1
	require.NoError(t, m.Save(cfg))
	loaded, err = NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.MaxConcurrent)
}
