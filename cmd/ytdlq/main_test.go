// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ytdlq/internal/download"
	"github.com/ManuGH/ytdlq/internal/history"
	"github.com/ManuGH/ytdlq/internal/ladder"
	"github.com/ManuGH/ytdlq/internal/media"
)

// run executes the root command with args against an isolated data dir.
func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("YTDLQ_DATA_DIR", dataDir)
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigInitThenShow(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "config", "init")
	require.NoError(t, err)
	path := filepath.Join(dir, "config.yaml")
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "maxConcurrent: 3")

	_, err = run(t, dir, "config", "init")
	assert.ErrorContains(t, err, "already exists")
	_, err = run(t, dir, "config", "init", "--force")
	assert.NoError(t, err)

	out, err = run(t, dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "ytdlpBin: yt-dlp")
	assert.Contains(t, out, "downloadDir: "+filepath.Join(dir, "downloads"))
}

func TestConfigShow_RejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("maxConcurrent: 0\n"), 0o600))

	_, err := run(t, dir, "config", "show")
	assert.ErrorContains(t, err, "maxConcurrent")
}

func TestHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := history.Open(ctx, filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	src := media.NewFetchedSource("https://example.com/watch?v=1", media.Metadata{Title: "First Clip"})
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.MarkQueued(ctx, download.Job{
		ID:        "0123456789abcdef",
		Source:    src,
		Quality:   ladder.Quality{Height: 720, FormatID: "22", NativeCombined: true},
		CreatedAt: old,
	}))
	require.NoError(t, store.MarkCompleted(ctx, "0123456789abcdef", "/tmp/First Clip.mp4", old))
	require.NoError(t, store.Close())

	out, err := run(t, dir, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "01234567")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "720p")
	assert.Contains(t, out, "First Clip")

	_, err = run(t, dir, "history", "list", "--status", "bogus")
	assert.ErrorContains(t, err, "unknown status")

	out, err = run(t, dir, "history", "verify")
	require.NoError(t, err)
	assert.Contains(t, out, ": ok")

	out, err = run(t, dir, "history", "prune", "--older-than", "24h")
	require.NoError(t, err)
	assert.Equal(t, "pruned 1 jobs\n", out)

	out, err = run(t, dir, "history", "list")
	require.NoError(t, err)
	assert.Equal(t, "no jobs recorded\n", out)
}

func TestWriteLadder(t *testing.T) {
	src := media.NewFetchedSource("https://example.com/watch?v=bbb", media.Metadata{
		Title:    "Big Buck Bunny",
		Duration: 596.5,
		Ladder: ladder.Ladder{
			{Height: 1080, FormatID: "137", Ext: "mp4", FPS: 30, Filesize: 328 << 20, NeedsMerging: true, BestAudioFormatID: "140"},
			{Height: 360, FormatID: "18", Ext: "mp4", NativeCombined: true},
		},
	})
	var buf bytes.Buffer
	writeLadder(&buf, src)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Big Buck Bunny", lines[0])
	assert.Equal(t, "https://example.com/watch?v=bbb (9:56)", lines[1])
	assert.Equal(t, []string{"1080p", "137+140", "mp4", "30", "328", "MiB", "merge"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"360p", "18", "mp4", "-", "-", "native"}, strings.Fields(lines[4]))
}

func TestWriteLadder_Empty(t *testing.T) {
	var buf bytes.Buffer
	writeLadder(&buf, media.NewFetchedSource("https://example.com/a", media.Metadata{Title: "Audio"}))
	assert.Equal(t, "Audio\nhttps://example.com/a\n  no downloadable video qualities\n", buf.String())
}

func TestProgressPrinter_PrintsEveryTenPercent(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)
	for _, pct := range []float64{0.5, 3, 9.9, 10, 12, 55, 56, 100} {
		p.update("job-1", pct)
	}
	assert.Equal(t, 4, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "job-1  55.0%")
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0:59", formatSeconds(59.9))
	assert.Equal(t, "9:56", formatSeconds(596.5))
	assert.Equal(t, "1:01:01", formatSeconds(3661))
}

func TestGet_FlagConflict(t *testing.T) {
	_, err := run(t, t.TempDir(), "get", "--height", "720", "--max-height", "480", "https://example.com/a")
	assert.ErrorContains(t, err, "mutually exclusive")
}
