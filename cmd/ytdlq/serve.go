// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/ytdlq/internal/api"
	"github.com/ManuGH/ytdlq/internal/config"
	"github.com/ManuGH/ytdlq/internal/health"
	"github.com/ManuGH/ytdlq/internal/history"
	xlog "github.com/ManuGH/ytdlq/internal/log"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the download queue behind the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.API.Listen = listen
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}

func runServe(ctx context.Context, cfg config.AppConfig) error {
	logger := xlog.WithComponent("cli")

	if err := health.PerformStartupChecks(cfg); err != nil {
		return fmt.Errorf("startup checks: %w", err)
	}

	tp, err := newTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	fetcher := newFetcher(cfg)
	sched, err := newScheduler(cfg, fetcher)
	if err != nil {
		return err
	}

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewToolChecker("ytdlp", cfg.YtdlpBin, true))
	hm.RegisterChecker(health.NewToolChecker("muxer", health.MuxerBinary(cfg), false))
	hm.RegisterChecker(health.NewDirChecker("download_dir", cfg.DownloadDir))
	hm.RegisterChecker(health.NewCheckFunc("queue", func(context.Context) health.CheckResult {
		st := sched.Status()
		if st.Paused {
			return health.CheckResult{Status: health.StatusDegraded, Message: "paused"}
		}
		return health.CheckResult{Status: health.StatusHealthy, Message: fmt.Sprintf("%d active, %d pending", st.Active, st.Pending)}
	}))

	deps := api.Deps{Scheduler: sched, Fetcher: fetcher, Health: hm}
	var (
		store        *history.Store
		waitRecorder func()
	)
	if cfg.HistoryDB != "" {
		store, waitRecorder, err = startRecorder(ctx, cfg.HistoryDB, sched)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		deps.History = store
		hm.RegisterChecker(health.NewPingChecker("history", store.Ping))
	}

	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = cfg.Log.Service
	}
	srv := &http.Server{
		Addr: cfg.API.Listen,
		Handler: api.NewServer(api.Config{
			RateLimit:      cfg.API.RateLimit,
			TracingService: tracing,
			Version:        cfg.Version,
		}, deps).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.Info().
		Str(xlog.FieldEvent, "startup").
		Str("listen", cfg.API.Listen).
		Str("download_dir", cfg.DownloadDir).
		Str("history_db", cfg.HistoryDB).
		Int(xlog.FieldCapacity, cfg.MaxConcurrent).
		Str("ytdlp", cfg.YtdlpBin).
		Str("muxer", cfg.MuxerLocation).
		Msg("ytdlq serving")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Str(xlog.FieldEvent, "shutdown").Msg("shutting down")

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		// closing the queue first ends open event streams
		if err := sched.Close(sctx); err != nil {
			logger.Warn().Err(err).Msg("queue did not shut down cleanly")
		}
		if waitRecorder != nil {
			waitRecorder()
		}
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
