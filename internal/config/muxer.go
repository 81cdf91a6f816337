// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveMuxerLocation returns the ffmpeg location handed to yt-dlp.
//
// Resolution order:
// 1) Explicit location (ffmpegLocation / YTDLQ_FFMPEG_LOCATION)
// 2) An ffmpeg binary next to a concrete yt-dlp path (.../yt-dlp -> .../ffmpeg)
// 3) Empty string (yt-dlp searches PATH)
func ResolveMuxerLocation(explicit, ytdlpBin string) string {
	return resolveMuxerLocationWithStat(explicit, ytdlpBin, os.Stat)
}

func resolveMuxerLocationWithStat(explicit, ytdlpBin string, stat func(string) (os.FileInfo, error)) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}

	ytdlpBin = strings.TrimSpace(ytdlpBin)
	// A bare name is looked up on PATH; do not guess a sibling.
	if ytdlpBin == "" || !strings.ContainsRune(ytdlpBin, filepath.Separator) {
		return ""
	}

	candidate := filepath.Join(filepath.Dir(ytdlpBin), "ffmpeg")
	if fi, err := stat(candidate); err == nil && !fi.IsDir() {
		return candidate
	}
	return ""
}
