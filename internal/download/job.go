// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package download

import (
	"time"

	"github.com/ManuGH/ytdlq/internal/ladder"
	"github.com/ManuGH/ytdlq/internal/media"
)

// Job is one requested download of a specific Quality for a specific Source.
// Values returned by Process.Snapshot are copies.
type Job struct {
	ID         string
	Source     *media.Source
	Quality    ladder.Quality
	TargetDir  string
	State      State
	Percent    float64
	FilePath   string
	Err        error
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// EventKind classifies process events.
type EventKind int

const (
	EventProgress EventKind = iota
	EventCompleted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is emitted by a Process on its Events channel.
type Event struct {
	Kind     EventKind
	JobID    string
	Percent  float64
	FilePath string
	Err      error
}
