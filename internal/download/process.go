// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package download drives a single download job: it spawns the download
// tool, follows its output, and resolves the job to Completed, Failed or
// Cancelled.
package download

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	xlog "github.com/ManuGH/ytdlq/internal/log"
	"github.com/ManuGH/ytdlq/internal/media"
	"github.com/ManuGH/ytdlq/internal/metrics"
	"github.com/ManuGH/ytdlq/internal/telemetry"
)

// DefaultStopGrace is the SIGTERM to SIGKILL delay used when cancelling.
const DefaultStopGrace = 2 * time.Second

const eventBuffer = 64

// ProcessConfig configures a Process.
type ProcessConfig struct {
	// Job must carry ID, a fetched Source, Quality and TargetDir.
	Job        Job
	Runner     Runner
	Options    InvocationOptions
	Clock      Clock
	ProbeGrace time.Duration
	StopGrace  time.Duration
}

// Process supervises one download job. Its state only moves forward:
// Created, Running, then one terminal state.
type Process struct {
	id        string
	runner    Runner
	inv       Invocation
	clock     Clock
	resolver  outputResolver
	stopGrace time.Duration
	logger    zerolog.Logger
	diag      *ringBuffer

	progressLog rate.Sometimes

	mu      sync.Mutex
	job     Job
	started bool
	handle  Handle

	events     chan Event
	cancelled  chan struct{}
	cancelOnce sync.Once
	stopOnce   sync.Once
}

// NewProcess creates a Process in the Created state.
func NewProcess(cfg ProcessConfig) *Process {
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}
	probeGrace := cfg.ProbeGrace
	if probeGrace <= 0 {
		probeGrace = DefaultProbeGrace
	}
	stopGrace := cfg.StopGrace
	if stopGrace <= 0 {
		stopGrace = DefaultStopGrace
	}

	job := cfg.Job
	job.State = StateCreated
	if job.CreatedAt.IsZero() {
		job.CreatedAt = clock.Now()
	}

	logger := xlog.WithComponent("download").With().
		Str(xlog.FieldJobID, job.ID).
		Logger()

	inv := BuildInvocation(job.Source.URL(), job.Source.Title(), job.Quality, job.TargetDir, cfg.Options)

	return &Process{
		id:          job.ID,
		runner:      cfg.Runner,
		inv:         inv,
		clock:       clock,
		resolver:    newOutputResolver(clock, probeGrace, inv.Container, logger),
		stopGrace:   stopGrace,
		logger:      logger,
		diag:        newRingBuffer(DiagnosticsCapacity),
		progressLog: rate.Sometimes{First: 1, Interval: 2 * time.Second},
		job:         job,
		events:      make(chan Event, eventBuffer),
		cancelled:   make(chan struct{}),
	}
}

func (p *Process) ID() string { return p.id }

// Invocation returns the command line this process runs.
func (p *Process) Invocation() Invocation { return p.inv }

// Events delivers progress, completion and failure in emission order. It is
// closed once the tool has been reaped. Nothing is delivered after Cancel.
func (p *Process) Events() <-chan Event { return p.events }

// State returns the current state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.job.State
}

// Snapshot returns a copy of the job.
func (p *Process) Snapshot() Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.job
}

// Diagnostics returns the retained stderr tail, oldest first.
func (p *Process) Diagnostics() []string { return p.diag.Snapshot() }

// Start spawns the download tool. It returns ErrAlreadyStarted on any call
// after the first and never spawns twice. Spawn failures are not returned:
// they move the job to Failed and are delivered as an EventFailed.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	if p.job.State != StateCreated {
		// cancelled before it ever ran
		p.mu.Unlock()
		close(p.events)
		return nil
	}
	p.job.State = StateRunning
	p.job.StartedAt = p.clock.Now()
	job := p.job
	p.mu.Unlock()

	p.logger.Info().
		Str(xlog.FieldURL, p.inv.URL).
		Int(xlog.FieldHeight, job.Quality.Height).
		Str(xlog.FieldFormat, p.inv.Format).
		Bool(xlog.FieldMerge, job.Quality.NeedsMerging).
		Str(xlog.FieldPath, p.inv.OutputBase).
		Msg("download starting")

	ctx, span := telemetry.Tracer("ytdlq/download").Start(ctx, "download.process",
		trace.WithAttributes(telemetry.JobAttributes(job.ID, job.Quality.Height, p.inv.Format, job.Quality.NeedsMerging)...))

	h, err := p.runner.Start(ctx, p.inv)
	if err != nil {
		go p.spawnFailed(err, span)
		return nil
	}
	metrics.IncProcSpawn("ok")

	p.mu.Lock()
	p.handle = h
	cancelled := p.job.State == StateCancelled
	p.mu.Unlock()
	if cancelled {
		p.requestStop(h)
	}

	go p.monitor(h, span)
	return nil
}

// Cancel marks the job Cancelled and asks the tool to stop without waiting
// for it. It is idempotent and a no-op once the job is terminal.
func (p *Process) Cancel() {
	p.mu.Lock()
	if p.job.State.IsTerminal() {
		p.mu.Unlock()
		return
	}
	old := p.job.State
	p.job.State = StateCancelled
	p.job.FinishedAt = p.clock.Now()
	h := p.handle
	p.mu.Unlock()

	p.cancelOnce.Do(func() { close(p.cancelled) })
	p.logger.Info().
		Str(xlog.FieldOldState, old.String()).
		Str(xlog.FieldNewState, StateCancelled.String()).
		Msg("download cancelled")

	if h != nil {
		p.requestStop(h)
	}
}

func (p *Process) spawnFailed(err error, span trace.Span) {
	defer close(p.events)
	defer span.End()

	result := "error"
	failure := err
	if media.IsToolNotFound(err) {
		result = "not_found"
	} else {
		failure = &DownloadFailedError{
			JobID:    p.id,
			ExitCode: -1,
			Detail:   err.Error(),
			Err:      err,
		}
	}
	metrics.IncProcSpawn(result)

	if p.transition(StateFailed, func(j *Job) { j.Err = failure }) {
		p.logger.Error().Err(failure).Msg("download tool could not be started")
		p.emit(Event{Kind: EventFailed, JobID: p.id, Err: failure})
	}
	p.endSpan(span, -1)
}

func (p *Process) monitor(h Handle, span trace.Span) {
	defer close(p.events)
	defer span.End()

	for line := range h.Lines() {
		if line.Stream == Stderr {
			p.onStderr(line.Text, h)
			continue
		}
		p.onStdout(line.Text)
	}

	waitErr := h.Wait()
	exitCode := 0
	if waitErr != nil {
		exitCode = exitCodeOf(waitErr)
	}
	p.onExit(waitErr, exitCode)
	p.endSpan(span, exitCode)
}

func (p *Process) onStdout(text string) {
	pct, ok := ParseProgress(text)
	if !ok {
		return
	}

	p.mu.Lock()
	if p.job.State != StateRunning {
		p.mu.Unlock()
		return
	}
	p.job.Percent = pct
	p.mu.Unlock()

	metrics.ProgressEventsTotal.Inc()
	p.progressLog.Do(func() {
		p.logger.Debug().Float64(xlog.FieldPercent, pct).Msg("download progress")
	})
	p.emit(Event{Kind: EventProgress, JobID: p.id, Percent: pct})
}

func (p *Process) onStderr(text string, h Handle) {
	p.diag.Add(text)
	class := ClassifyDiagnostic(text)
	metrics.IncDiagnostic(class.String())

	switch class {
	case DiagnosticWarning:
		p.logger.Warn().Str("line", text).Msg("download tool warning")
	case DiagnosticInfo:
		p.logger.Debug().Str("line", text).Msg("download tool output")
	case DiagnosticFatal:
		failure := &DownloadFailedError{
			JobID:       p.id,
			ExitCode:    -1,
			Detail:      text,
			Diagnostics: p.diag.Snapshot(),
		}
		if !p.transition(StateFailed, func(j *Job) { j.Err = failure }) {
			return
		}
		p.logger.Error().Str("line", text).Msg("download tool reported a fatal error")
		p.emit(Event{Kind: EventFailed, JobID: p.id, Err: failure})
		p.requestStop(h)
	}
}

func (p *Process) onExit(waitErr error, exitCode int) {
	if p.State() != StateRunning {
		return
	}

	if waitErr != nil {
		diag := p.diag.Snapshot()
		detail := fmt.Sprintf("exited with code %d", exitCode)
		if n := len(diag); n > 0 {
			detail += ": " + diag[n-1]
		}
		failure := &DownloadFailedError{
			JobID:       p.id,
			ExitCode:    exitCode,
			Detail:      detail,
			Diagnostics: diag,
			Err:         waitErr,
		}
		if p.transition(StateFailed, func(j *Job) { j.Err = failure }) {
			p.logger.Error().Int(xlog.FieldExitCode, exitCode).Strs("diagnostics", diag).Msg("download failed")
			p.emit(Event{Kind: EventFailed, JobID: p.id, Err: failure})
		}
		return
	}

	path := p.resolver.Resolve(p.inv.OutputBase)
	if p.transition(StateCompleted, func(j *Job) {
		j.FilePath = path
		j.Percent = 100
	}) {
		p.logger.Info().Str(xlog.FieldPath, path).Msg("download completed")
		p.emit(Event{Kind: EventCompleted, JobID: p.id, FilePath: path, Percent: 100})
	}
}

// transition moves a Running job to a terminal state. It reports false when
// the job already left Running, in which case the signal is suppressed.
func (p *Process) transition(to State, mutate func(*Job)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.job.State != StateRunning {
		return false
	}
	p.job.State = to
	p.job.FinishedAt = p.clock.Now()
	if mutate != nil {
		mutate(&p.job)
	}
	return true
}

// emit delivers ev unless the job was cancelled.
func (p *Process) emit(ev Event) {
	select {
	case <-p.cancelled:
		return
	default:
	}
	select {
	case p.events <- ev:
	case <-p.cancelled:
	}
}

func (p *Process) requestStop(h Handle) {
	p.stopOnce.Do(func() {
		p.logger.Debug().Dur("grace", p.stopGrace).Msg("stopping download tool")
		h.Stop(p.stopGrace)
	})
}

func (p *Process) endSpan(span trace.Span, exitCode int) {
	job := p.Snapshot()
	var durMS int64
	if !job.StartedAt.IsZero() && !job.FinishedAt.IsZero() {
		durMS = job.FinishedAt.Sub(job.StartedAt).Milliseconds()
	}
	span.SetAttributes(telemetry.OutcomeAttributes(job.State.String(), exitCode, durMS)...)
	if job.State == StateFailed && job.Err != nil {
		span.RecordError(job.Err)
		span.SetStatus(codes.Error, job.Err.Error())
	}
}
