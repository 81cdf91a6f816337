// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the download queue over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ytdlq/internal/api/middleware"
	"github.com/ManuGH/ytdlq/internal/download"
	"github.com/ManuGH/ytdlq/internal/health"
	"github.com/ManuGH/ytdlq/internal/history"
	xlog "github.com/ManuGH/ytdlq/internal/log"
	"github.com/ManuGH/ytdlq/internal/media"
	"github.com/ManuGH/ytdlq/internal/queue"
)

const rateWindow = time.Minute

// Scheduler is the queue surface the API drives.
type Scheduler interface {
	Add(ctx context.Context, src *media.Source, sel queue.Selector) (string, error)
	Remove(id string) bool
	Pause()
	Resume()
	Clear()
	SetMaxConcurrent(n int) error
	Status() queue.Status
	Jobs() []download.Job
	Job(id string) (download.Job, bool)
	Diagnostics(id string) ([]string, bool)
	Subscribe(ctx context.Context) *queue.Subscription
}

// Fetcher resolves source metadata for the sources endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, src *media.Source) error
}

// HistoryStore reads persisted jobs.
type HistoryStore interface {
	List(ctx context.Context, opts history.ListOptions) ([]history.Record, error)
	Get(ctx context.Context, id string) (history.Record, error)
}

// Config configures the HTTP surface.
type Config struct {
	// RateLimit is requests per minute per client IP; zero disables it.
	RateLimit int
	// TracingService names the otelhttp server spans; empty disables them.
	TracingService string
	Version        string
}

// Deps are the collaborators behind the handlers. History may be nil; a nil
// Health serves liveness without component checks.
type Deps struct {
	Scheduler Scheduler
	Fetcher   Fetcher
	History   HistoryStore
	Health    *health.Manager
}

// Server holds the API handlers.
type Server struct {
	cfg    Config
	sched  Scheduler
	fetch  Fetcher
	hist   HistoryStore
	health *health.Manager
	logger zerolog.Logger
}

// NewServer creates a Server.
func NewServer(cfg Config, deps Deps) *Server {
	hm := deps.Health
	if hm == nil {
		hm = health.NewManager(cfg.Version)
	}
	return &Server{
		cfg:    cfg,
		sched:  deps.Scheduler,
		fetch:  deps.Fetcher,
		hist:   deps.History,
		health: hm,
		logger: xlog.WithComponent("api"),
	}
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestLimit: s.cfg.RateLimit,
				WindowSize:   rateWindow,
			}))
		}

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.handleAddJob)
			r.Get("/", s.handleListJobs)
			r.Get("/{id}", s.handleGetJob)
			r.Delete("/{id}", s.handleRemoveJob)
		})

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", s.handleQueueStatus)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Post("/clear", s.handleClear)
			r.Put("/concurrency", s.handleSetConcurrency)
		})

		r.Get("/sources", s.handleSource)
		r.Get("/history", s.handleListHistory)
		r.Get("/history/{id}", s.handleGetHistory)
		r.Get("/events", s.handleEvents)
	})

	return r
}
