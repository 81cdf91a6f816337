// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"

	"github.com/ManuGH/ytdlq/internal/config"
	"github.com/ManuGH/ytdlq/internal/download"
	"github.com/ManuGH/ytdlq/internal/history"
	"github.com/ManuGH/ytdlq/internal/infra/ytdlp"
	"github.com/ManuGH/ytdlq/internal/media"
	"github.com/ManuGH/ytdlq/internal/queue"
	"github.com/ManuGH/ytdlq/internal/telemetry"
)

func newFetcher(cfg config.AppConfig) *media.Fetcher {
	return media.NewFetcher(ytdlp.NewExec(cfg.YtdlpBin), cfg.YtdlpBin)
}

func newScheduler(cfg config.AppConfig, fetcher queue.Fetcher) (*queue.Scheduler, error) {
	return queue.New(queue.Config{
		MaxConcurrent: cfg.MaxConcurrent,
		TargetDir:     cfg.DownloadDir,
		Fetcher:       fetcher,
		Runner:        ytdlp.NewRunner(cfg.YtdlpBin),
		Options: download.InvocationOptions{
			MergeFormat:   cfg.MergeFormat,
			MuxerLocation: cfg.MuxerLocation,
		},
		ProbeGrace: cfg.OutputProbeGrace,
		StopGrace:  cfg.StopGrace,
	})
}

func newTelemetry(ctx context.Context, cfg config.AppConfig) (*telemetry.Provider, error) {
	p, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	return p, nil
}

// startRecorder opens the history database and records sched's events into
// it until the subscription ends. The returned wait blocks until the
// recorder drained.
func startRecorder(ctx context.Context, path string, sched *queue.Scheduler) (*history.Store, func(), error) {
	store, err := history.Open(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("open history: %w", err)
	}
	sub := sched.Subscribe(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = history.NewRecorder(store).Run(context.WithoutCancel(ctx), sub)
	}()
	return store, func() { <-done }, nil
}
