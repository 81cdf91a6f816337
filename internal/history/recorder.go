// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package history

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/ManuGH/ytdlq/internal/log"
	"github.com/ManuGH/ytdlq/internal/queue"
)

// minProgressStep is the smallest percentage change worth a write.
const minProgressStep = 1.0

// Recorder writes scheduler events to a Store. It is not safe for
// concurrent use; Run drives it from a single goroutine.
type Recorder struct {
	store  *Store
	now    func() time.Time
	logger zerolog.Logger

	lastPercent map[string]float64
}

// NewRecorder creates a Recorder for store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{
		store:       store,
		now:         time.Now,
		logger:      xlog.WithComponent("history"),
		lastPercent: make(map[string]float64),
	}
}

// Run applies events from sub until the subscription closes or ctx ends.
// Write failures are logged and do not stop the loop.
func (r *Recorder) Run(ctx context.Context, sub *queue.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := r.Apply(ctx, ev); err != nil {
				r.logger.Warn().Err(err).Str(xlog.FieldEvent, ev.Kind()).Msg("history write failed")
			}
		}
	}
}

// Apply persists one event.
func (r *Recorder) Apply(ctx context.Context, ev queue.Event) error {
	switch e := ev.(type) {
	case queue.JobAddedEvent:
		return r.store.MarkQueued(ctx, e.Job)

	case queue.JobStartedEvent:
		r.lastPercent[e.Job.ID] = 0
		return r.store.MarkRunning(ctx, e.Job.ID, r.orNow(e.Job.StartedAt))

	case queue.ProgressEvent:
		last, tracked := r.lastPercent[e.JobID]
		if tracked && e.Percent-last < minProgressStep {
			return nil
		}
		r.lastPercent[e.JobID] = e.Percent
		return r.store.MarkProgress(ctx, e.JobID, e.Percent)

	case queue.JobCompletedEvent:
		delete(r.lastPercent, e.Job.ID)
		return r.store.MarkCompleted(ctx, e.Job.ID, e.Job.FilePath, r.orNow(e.Job.FinishedAt))

	case queue.JobFailedEvent:
		delete(r.lastPercent, e.Job.ID)
		detail := ""
		if e.Err != nil {
			detail = e.Err.Error()
		}
		return r.store.MarkFailed(ctx, e.Job.ID, detail, r.orNow(e.Job.FinishedAt))

	case queue.JobRemovedEvent:
		delete(r.lastPercent, e.Job.ID)
		return r.store.MarkCancelled(ctx, e.Job.ID, r.orNow(e.Job.FinishedAt))

	case queue.QueueCompletedEvent:
		r.logger.Info().
			Int(xlog.FieldCompleted, e.Completed).
			Int(xlog.FieldFailed, e.Failed).
			Msg("queue drained")
	}
	return nil
}

func (r *Recorder) orNow(t time.Time) time.Time {
	if t.IsZero() {
		return r.now()
	}
	return t
}
