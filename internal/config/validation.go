// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"

	"github.com/ManuGH/ytdlq/internal/validate"
)

// Validate validates an AppConfig. Missing data and download directories are
// created.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Directory("dataDir", cfg.DataDir, false)
	v.Directory("downloadDir", cfg.DownloadDir, false)
	v.NotEmpty("historyDB", cfg.HistoryDB)

	// The scheduler needs at least one slot.
	v.Positive("maxConcurrent", cfg.MaxConcurrent)
	v.NotEmpty("ytdlpBin", cfg.YtdlpBin)
	v.OneOf("mergeFormat", cfg.MergeFormat, MergeFormats)
	v.PositiveDuration("outputProbeGrace", cfg.OutputProbeGrace)
	v.PositiveDuration("stopGrace", cfg.StopGrace)

	v.ListenAddr("api.listen", cfg.API.Listen)
	v.NonNegative("api.rateLimit", cfg.API.RateLimit)

	v.OneOf("log.level", strings.ToLower(cfg.Log.Level), validate.LogLevels)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if r := cfg.Telemetry.SamplingRate; r < 0 || r > 1 {
			v.AddError("telemetry.samplingRate", fmt.Sprintf("must be between 0 and 1, got %g", r), r)
		}
	}

	return v.Err()
}
