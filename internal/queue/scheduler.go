// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package queue admits download jobs and runs at most MaxConcurrent of them
// at a time, in FIFO order.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ytdlq/internal/download"
	"github.com/ManuGH/ytdlq/internal/ladder"
	xlog "github.com/ManuGH/ytdlq/internal/log"
	"github.com/ManuGH/ytdlq/internal/media"
	"github.com/ManuGH/ytdlq/internal/metrics"
)

// DefaultMaxConcurrent is the number of simultaneous downloads when unset.
const DefaultMaxConcurrent = 3

var (
	// ErrNoQuality is returned by Add when the Source has no downloadable quality.
	ErrNoQuality = errors.New("no downloadable quality")
	// ErrClosed is returned by operations on a closed Scheduler.
	ErrClosed = errors.New("scheduler closed")
	// ErrInvalidConcurrency rejects a limit below one.
	ErrInvalidConcurrency = errors.New("max concurrent must be at least 1")
)

// Fetcher ensures a Source has metadata.
type Fetcher interface {
	Fetch(ctx context.Context, src *media.Source) error
}

// Config configures a Scheduler.
type Config struct {
	MaxConcurrent int
	TargetDir     string
	Fetcher       Fetcher
	Runner        download.Runner
	Options       download.InvocationOptions
	Clock         download.Clock
	ProbeGrace    time.Duration
	StopGrace     time.Duration
}

// Status is a point-in-time view of the queue.
type Status struct {
	Pending       int  `json:"pending"`
	Active        int  `json:"active"`
	Completed     int  `json:"completed"`
	Failed        int  `json:"failed"`
	Removed       int  `json:"removed"`
	Paused        bool `json:"paused"`
	MaxConcurrent int  `json:"max_concurrent"`
}

type entry struct {
	proc *download.Process
	// ready is closed once JobAddedEvent went out; every later event for
	// the job waits on it.
	ready   chan struct{}
	removed bool // guarded by Scheduler.mu
}

func (e *entry) id() string { return e.proc.ID() }

// Scheduler owns the pending queue and the set of running downloads. All
// queue state is guarded by mu; events are published outside it.
type Scheduler struct {
	cfg    Config
	clock  download.Clock
	bus    *bus
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
	wg     sync.WaitGroup

	mu            sync.Mutex
	maxConcurrent int
	paused        bool
	closed        bool
	pending       []*entry
	active        map[string]*entry
	completed     []*entry
	failed        []*entry
	removed       []*entry
	byID          map[string]*entry
	order         []*entry
}

// New creates a Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Runner == nil {
		return nil, errors.New("queue: runner is required")
	}
	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.MaxConcurrent < 1 {
		return nil, ErrInvalidConcurrency
	}
	clock := cfg.Clock
	if clock == nil {
		clock = download.RealClock{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:           cfg,
		clock:         clock,
		bus:           newBus(),
		ctx:           ctx,
		cancel:        cancel,
		logger:        xlog.WithComponent("queue"),
		maxConcurrent: cfg.MaxConcurrent,
		active:        make(map[string]*entry),
		byID:          make(map[string]*entry),
	}, nil
}

// Add ensures src has metadata, picks a Quality with sel (falling back to the
// top of the ladder), and queues a job for it. It returns the job id without
// waiting for the job to run. Metadata failures are returned as is.
func (s *Scheduler) Add(ctx context.Context, src *media.Source, sel Selector) (string, error) {
	if s.isClosed() {
		return "", ErrClosed
	}

	if !src.Fetched() {
		if s.cfg.Fetcher == nil {
			return "", media.ErrNotFetched
		}
		if err := s.cfg.Fetcher.Fetch(ctx, src); err != nil {
			return "", fmt.Errorf("fetch metadata: %w", err)
		}
	}

	var (
		q  ladder.Quality
		ok bool
	)
	if sel != nil {
		q, ok = sel(src)
	}
	if !ok {
		q, ok = src.Ladder().Best()
	}
	if !ok {
		return "", fmt.Errorf("%w for %s", ErrNoQuality, src.URL())
	}

	id := uuid.NewString()
	proc := download.NewProcess(download.ProcessConfig{
		Job: download.Job{
			ID:        id,
			Source:    src,
			Quality:   q,
			TargetDir: s.cfg.TargetDir,
			CreatedAt: s.clock.Now(),
		},
		Runner:     s.cfg.Runner,
		Options:    s.cfg.Options,
		Clock:      s.clock,
		ProbeGrace: s.cfg.ProbeGrace,
		StopGrace:  s.cfg.StopGrace,
	})
	e := &entry{proc: proc, ready: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	s.pending = append(s.pending, e)
	s.byID[id] = e
	s.order = append(s.order, e)
	toStart := s.advanceLocked()
	s.updateGaugesLocked()
	s.mu.Unlock()

	metrics.QueueAdmittedTotal.Inc()
	s.logger.Info().
		Str(xlog.FieldJobID, id).
		Str(xlog.FieldURL, src.URL()).
		Str(xlog.FieldTitle, src.Title()).
		Int(xlog.FieldHeight, q.Height).
		Msg("job queued")

	s.bus.publish(JobAddedEvent{Job: proc.Snapshot()})
	close(e.ready)

	s.startAll(toStart)
	return id, nil
}

// advanceLocked moves pending jobs to active while capacity allows and
// returns the ones the caller must start after unlocking.
func (s *Scheduler) advanceLocked() []*entry {
	var out []*entry
	for !s.paused && !s.closed && len(s.active) < s.maxConcurrent && len(s.pending) > 0 {
		e := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		s.active[e.id()] = e
		out = append(out, e)
	}
	s.wg.Add(len(out))
	return out
}

func (s *Scheduler) startAll(entries []*entry) {
	for _, e := range entries {
		if err := e.proc.Start(s.ctx); err != nil {
			s.logger.Error().Err(err).Str(xlog.FieldJobID, e.id()).Msg("job start rejected")
		}
		go s.forward(e)
	}
}

// forward relays one job's process events in order.
func (s *Scheduler) forward(e *entry) {
	defer s.wg.Done()
	<-e.ready

	if job := e.proc.Snapshot(); !job.StartedAt.IsZero() {
		s.bus.publish(JobStartedEvent{Job: job})
	}

	src := e.proc.Snapshot().Source
	for ev := range e.proc.Events() {
		switch ev.Kind {
		case download.EventProgress:
			s.bus.publish(ProgressEvent{JobID: ev.JobID, Source: src, Percent: ev.Percent})
		case download.EventCompleted:
			s.retire(e, metrics.OutcomeCompleted, nil)
		case download.EventFailed:
			s.retire(e, metrics.OutcomeFailed, ev.Err)
		}
	}

	s.mu.Lock()
	removed := e.removed
	s.mu.Unlock()
	if removed {
		s.bus.publish(JobRemovedEvent{Job: e.proc.Snapshot(), WasActive: true})
	}
}

// retire moves a finished job out of active. A job that was removed in the
// meantime is ignored.
func (s *Scheduler) retire(e *entry, outcome string, cause error) {
	s.mu.Lock()
	if e.removed || s.active[e.id()] != e {
		s.mu.Unlock()
		return
	}
	delete(s.active, e.id())
	if outcome == metrics.OutcomeCompleted {
		s.completed = append(s.completed, e)
	} else {
		s.failed = append(s.failed, e)
	}
	toStart := s.advanceLocked()
	drained := len(s.pending) == 0 && len(s.active) == 0
	summary := QueueCompletedEvent{Completed: len(s.completed), Failed: len(s.failed)}
	s.updateGaugesLocked()
	s.mu.Unlock()

	job := e.proc.Snapshot()
	metrics.IncJobOutcome(outcome)
	if !job.StartedAt.IsZero() && !job.FinishedAt.IsZero() {
		metrics.JobDuration.WithLabelValues(outcome).Observe(job.FinishedAt.Sub(job.StartedAt).Seconds())
	}

	s.startAll(toStart)

	if cause != nil {
		s.logger.Warn().Err(cause).Str(xlog.FieldJobID, job.ID).Msg("job failed")
		s.bus.publish(JobFailedEvent{Job: job, Err: cause})
	} else {
		s.logger.Info().Str(xlog.FieldJobID, job.ID).Str(xlog.FieldPath, job.FilePath).Msg("job completed")
		s.bus.publish(JobCompletedEvent{Job: job})
	}

	if drained {
		metrics.QueueDrainsTotal.Inc()
		s.logger.Info().
			Int(xlog.FieldCompleted, summary.Completed).
			Int(xlog.FieldFailed, summary.Failed).
			Msg("queue drained")
		s.bus.publish(summary)
	}
}

// Remove drops a pending job without ever starting it, or cancels an active
// one. It reports false for unknown or already finished jobs.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	e, ok := s.byID[id]
	if !ok || e.removed {
		s.mu.Unlock()
		return false
	}

	if idx := indexOf(s.pending, e); idx >= 0 {
		s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
		e.removed = true
		s.removed = append(s.removed, e)
		s.updateGaugesLocked()
		s.mu.Unlock()

		e.proc.Cancel()
		metrics.IncJobOutcome(metrics.OutcomeRemoved)
		s.logger.Info().Str(xlog.FieldJobID, id).Msg("pending job removed")
		<-e.ready
		s.bus.publish(JobRemovedEvent{Job: e.proc.Snapshot()})
		return true
	}

	if s.active[id] != e {
		s.mu.Unlock()
		return false
	}
	delete(s.active, id)
	e.removed = true
	s.removed = append(s.removed, e)
	toStart := s.advanceLocked()
	s.updateGaugesLocked()
	s.mu.Unlock()

	e.proc.Cancel()
	metrics.IncJobOutcome(metrics.OutcomeCancelled)
	s.logger.Info().Str(xlog.FieldJobID, id).Msg("active job cancelled")
	s.startAll(toStart)
	return true
}

// Pause stops new jobs from starting. Running jobs are not touched.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	s.logger.Info().Msg("queue paused")
}

// Resume clears the pause flag and starts jobs up to capacity.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.paused = false
	toStart := s.advanceLocked()
	s.updateGaugesLocked()
	s.mu.Unlock()

	s.logger.Info().Int(xlog.FieldActive, len(toStart)).Msg("queue resumed")
	s.startAll(toStart)
}

// Clear drops every pending job and cancels every active one.
func (s *Scheduler) Clear() {
	pending, active := s.takeAll()
	s.cancelTaken(pending, active)
	s.logger.Info().
		Int(xlog.FieldPending, len(pending)).
		Int(xlog.FieldActive, len(active)).
		Msg("queue cleared")
}

func (s *Scheduler) takeAll() (pending, active []*entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending = s.pending
	s.pending = nil
	for _, e := range s.active {
		active = append(active, e)
	}
	s.active = make(map[string]*entry)

	for _, e := range pending {
		e.removed = true
	}
	for _, e := range active {
		e.removed = true
	}
	s.removed = append(s.removed, pending...)
	s.removed = append(s.removed, active...)
	s.updateGaugesLocked()
	return pending, active
}

func (s *Scheduler) cancelTaken(pending, active []*entry) {
	for _, e := range active {
		e.proc.Cancel()
		metrics.IncJobOutcome(metrics.OutcomeCancelled)
	}
	for _, e := range pending {
		e.proc.Cancel()
		metrics.IncJobOutcome(metrics.OutcomeRemoved)
		<-e.ready
		s.bus.publish(JobRemovedEvent{Job: e.proc.Snapshot()})
	}
}

// SetMaxConcurrent changes the concurrency limit. Raising it starts queued
// jobs immediately; lowering it lets running jobs finish.
func (s *Scheduler) SetMaxConcurrent(n int) error {
	if n < 1 {
		return ErrInvalidConcurrency
	}
	s.mu.Lock()
	s.maxConcurrent = n
	toStart := s.advanceLocked()
	s.updateGaugesLocked()
	s.mu.Unlock()

	s.logger.Info().Int(xlog.FieldCapacity, n).Msg("concurrency changed")
	s.startAll(toStart)
	return nil
}

// Status returns queue counts.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Pending:       len(s.pending),
		Active:        len(s.active),
		Completed:     len(s.completed),
		Failed:        len(s.failed),
		Removed:       len(s.removed),
		Paused:        s.paused,
		MaxConcurrent: s.maxConcurrent,
	}
}

// Jobs returns a snapshot of every job known to the scheduler, oldest first.
func (s *Scheduler) Jobs() []download.Job {
	s.mu.Lock()
	entries := append([]*entry(nil), s.order...)
	s.mu.Unlock()

	jobs := make([]download.Job, 0, len(entries))
	for _, e := range entries {
		jobs = append(jobs, e.proc.Snapshot())
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs
}

// Job returns a snapshot of one job.
func (s *Scheduler) Job(id string) (download.Job, bool) {
	s.mu.Lock()
	e, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return download.Job{}, false
	}
	return e.proc.Snapshot(), true
}

// Diagnostics returns the retained stderr tail of a job.
func (s *Scheduler) Diagnostics(id string) ([]string, bool) {
	s.mu.Lock()
	e, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return e.proc.Diagnostics(), true
}

// Subscribe returns a subscription that ends when ctx is done, Close is
// called on it, or the scheduler closes.
func (s *Scheduler) Subscribe(ctx context.Context) *Subscription {
	return s.bus.subscribe(ctx)
}

// Close cancels all work and waits until every job's events have been
// relayed or ctx ends. Subscriptions are closed afterwards.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	pending, active := s.takeAll()
	s.cancelTaken(pending, active)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	s.cancel()
	s.bus.close()
	s.logger.Info().Msg("scheduler closed")
	return err
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Scheduler) updateGaugesLocked() {
	metrics.SetQueueDepth(len(s.pending), len(s.active))
}

func indexOf(list []*entry, e *entry) int {
	for i, x := range list {
		if x == e {
			return i
		}
	}
	return -1
}
