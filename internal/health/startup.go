// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/ManuGH/ytdlq/internal/config"
	"github.com/ManuGH/ytdlq/internal/log"
)

var errNotDir = errors.New("not a directory")

// PerformStartupChecks fails fast when the download tool or the writable
// directories are missing. A missing muxer is only logged: native qualities
// still work without it.
func PerformStartupChecks(cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	for _, dir := range []struct{ name, path string }{
		{"data directory", cfg.DataDir},
		{"download directory", cfg.DownloadDir},
	} {
		if err := checkWritableDir(dir.path); err != nil {
			return fmt.Errorf("%s %s is not usable: %w", dir.name, dir.path, err)
		}
	}

	ytdlp, err := exec.LookPath(cfg.YtdlpBin)
	if err != nil {
		return fmt.Errorf("download tool %q not found: %w", cfg.YtdlpBin, err)
	}
	logger.Info().Str("ytdlp", ytdlp).Msg("download tool available")

	muxer := MuxerBinary(cfg)
	if _, err := exec.LookPath(muxer); err != nil {
		logger.Warn().Str("muxer", muxer).Err(err).Msg("muxer not found; qualities that need merging will fail")
	}
	return nil
}

// MuxerBinary is the ffmpeg executable the download tool will use.
func MuxerBinary(cfg config.AppConfig) string {
	if cfg.MuxerLocation != "" {
		return cfg.MuxerLocation
	}
	return "ffmpeg"
}
