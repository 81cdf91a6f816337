// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ytdlq/internal/config"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

func TestManager_Health_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
	assert.Nil(t, resp.Checks)
}

func TestManager_Health_WithCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusDegraded, resp.Checks["degraded"].Status)
}

func TestManager_Ready(t *testing.T) {
	m := NewManager("v1.0.0")
	assert.True(t, m.Ready(context.Background()).Ready)

	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})
	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusDegraded, resp.Status)

	m.RegisterChecker(&mockChecker{name: "unhealthy", status: StatusUnhealthy})
	m.RegisterChecker(&mockChecker{name: "degraded-again", status: StatusDegraded})
	resp = m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("v1.0.0")
	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	m.RegisterChecker(NewPingChecker("history", func(context.Context) error { return errors.New("database is locked") }))
	rec = httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "database is locked", resp.Checks["history"].Error)
}

func TestServeHealth_AlwaysOK(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "unhealthy", status: StatusUnhealthy})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestToolChecker(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-tool")

	assert.Equal(t, StatusUnhealthy, NewToolChecker("ytdlp", missing, true).Check(context.Background()).Status)
	assert.Equal(t, StatusDegraded, NewToolChecker("muxer", missing, false).Check(context.Background()).Status)

	tool := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755))
	res := NewToolChecker("ytdlp", tool, true).Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, tool, res.Message)
}

func TestDirChecker(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, StatusHealthy, NewDirChecker("downloads", dir).Check(context.Background()).Status)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	assert.Equal(t, StatusUnhealthy, NewDirChecker("downloads", file).Check(context.Background()).Status)
	assert.Equal(t, StatusUnhealthy, NewDirChecker("downloads", filepath.Join(dir, "missing")).Check(context.Background()).Status)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "write probe must be removed")
}

func TestPerformStartupChecks(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "yt-dlp")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755))

	cfg := config.AppConfig{DataDir: dir, DownloadDir: dir, YtdlpBin: tool}
	assert.NoError(t, PerformStartupChecks(cfg))

	cfg.YtdlpBin = filepath.Join(dir, "missing")
	assert.ErrorContains(t, PerformStartupChecks(cfg), "not found")

	cfg.YtdlpBin = tool
	cfg.DownloadDir = filepath.Join(dir, "nope")
	assert.ErrorContains(t, PerformStartupChecks(cfg), "download directory")
}

func TestMuxerBinary(t *testing.T) {
	assert.Equal(t, "ffmpeg", MuxerBinary(config.AppConfig{}))
	assert.Equal(t, "/opt/ffmpeg", MuxerBinary(config.AppConfig{MuxerLocation: "/opt/ffmpeg"}))
}
