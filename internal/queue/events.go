// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue

import (
	"github.com/ManuGH/ytdlq/internal/download"
	"github.com/ManuGH/ytdlq/internal/media"
)

// Event is published by the Scheduler to its subscribers.
type Event interface {
	// Kind is a stable name used in logs and metrics.
	Kind() string
}

// JobAddedEvent is published when Add accepts a job.
type JobAddedEvent struct {
	Job download.Job
}

// JobStartedEvent is published when a job leaves pending and starts running.
type JobStartedEvent struct {
	Job download.Job
}

// ProgressEvent carries a download percentage for a running job. Progress may
// be dropped for a subscriber that is not keeping up.
type ProgressEvent struct {
	JobID   string
	Source  *media.Source
	Percent float64
}

// JobCompletedEvent is published when a job finished and its file is known.
type JobCompletedEvent struct {
	Job download.Job
}

// JobFailedEvent is published when a job failed. Err keeps the raw tool text.
type JobFailedEvent struct {
	Job download.Job
	Err error
}

// JobRemovedEvent is published when Remove or Clear dropped a job. WasActive
// tells whether a running process was cancelled.
type JobRemovedEvent struct {
	Job       download.Job
	WasActive bool
}

// QueueCompletedEvent is published once each time the queue drains. Counts
// are totals over the Scheduler's lifetime.
type QueueCompletedEvent struct {
	Completed int
	Failed    int
}

func (JobAddedEvent) Kind() string       { return "job_added" }
func (JobStartedEvent) Kind() string     { return "job_started" }
func (ProgressEvent) Kind() string       { return "progress" }
func (JobCompletedEvent) Kind() string   { return "job_completed" }
func (JobFailedEvent) Kind() string      { return "job_failed" }
func (JobRemovedEvent) Kind() string     { return "job_removed" }
func (QueueCompletedEvent) Kind() string { return "queue_completed" }
