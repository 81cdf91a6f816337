// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"time"

	"github.com/ManuGH/ytdlq/internal/download"
	"github.com/ManuGH/ytdlq/internal/media"
	"github.com/ManuGH/ytdlq/internal/queue"
)

type addJobRequest struct {
	URL string `json:"url"`
	// Height selects an exact rung; without it the best rung is used.
	Height int `json:"height,omitempty"`
	// MaxHeight selects the best rung not taller than it.
	MaxHeight int `json:"max_height,omitempty"`
	// NativeOnly prefers rungs that need no merge step.
	NativeOnly bool `json:"native_only,omitempty"`
}

func (req addJobRequest) selector() queue.Selector {
	switch {
	case req.Height > 0:
		return queue.ByHeight(req.Height)
	case req.MaxHeight > 0:
		return queue.AtMost(req.MaxHeight)
	case req.NativeOnly:
		return queue.BestNative()
	default:
		return queue.Best()
	}
}

type jobView struct {
	ID          string         `json:"id"`
	URL         string         `json:"url"`
	Title       string         `json:"title"`
	Quality     string         `json:"quality"`
	Height      int            `json:"height"`
	NeedsMerge  bool           `json:"needs_merge"`
	State       download.State `json:"state"`
	Percent     float64        `json:"percent"`
	FilePath    string         `json:"file_path,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
	Diagnostics []string       `json:"diagnostics,omitempty"`
}

func newJobView(j download.Job) jobView {
	v := jobView{
		ID:         j.ID,
		Quality:    j.Quality.Label(),
		Height:     j.Quality.Height,
		NeedsMerge: j.Quality.NeedsMerging,
		State:      j.State,
		Percent:    j.Percent,
		FilePath:   j.FilePath,
		CreatedAt:  j.CreatedAt,
		StartedAt:  optionalTime(j.StartedAt),
		FinishedAt: optionalTime(j.FinishedAt),
	}
	if j.Source != nil {
		v.URL = j.Source.URL()
		v.Title = j.Source.Title()
	}
	if j.Err != nil {
		v.Error = j.Err.Error()
	}
	return v
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

type sourceView struct {
	URL string `json:"url"`
	media.Metadata
}

type concurrencyRequest struct {
	MaxConcurrent int `json:"max_concurrent"`
}

// eventView is the SSE payload for a queue event.
type eventView struct {
	Kind      string   `json:"kind"`
	Job       *jobView `json:"job,omitempty"`
	JobID     string   `json:"job_id,omitempty"`
	Percent   float64  `json:"percent,omitempty"`
	WasActive bool     `json:"was_active,omitempty"`
	Completed int      `json:"completed,omitempty"`
	Failed    int      `json:"failed,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func newEventView(ev queue.Event) eventView {
	v := eventView{Kind: ev.Kind()}
	withJob := func(j download.Job) {
		jv := newJobView(j)
		v.Job = &jv
		v.JobID = j.ID
	}
	switch e := ev.(type) {
	case queue.JobAddedEvent:
		withJob(e.Job)
	case queue.JobStartedEvent:
		withJob(e.Job)
	case queue.ProgressEvent:
		v.JobID = e.JobID
		v.Percent = e.Percent
	case queue.JobCompletedEvent:
		withJob(e.Job)
	case queue.JobFailedEvent:
		withJob(e.Job)
		if e.Err != nil {
			v.Error = e.Err.Error()
		}
	case queue.JobRemovedEvent:
		withJob(e.Job)
		v.WasActive = e.WasActive
	case queue.QueueCompletedEvent:
		v.Completed = e.Completed
		v.Failed = e.Failed
	}
	return v
}
