// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package history

import "time"

// Status is the persisted lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further updates are accepted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Record is one job as stored in the history database.
type Record struct {
	JobID      string     `json:"job_id"`
	URL        string     `json:"url"`
	Title      string     `json:"title"`
	Height     int        `json:"height"`
	Format     string     `json:"format"`
	Status     Status     `json:"status"`
	Percent    float64    `json:"percent"`
	FilePath   string     `json:"file_path,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ListOptions filters List.
type ListOptions struct {
	// Status limits results to one status; empty means all.
	Status Status
	// Limit caps the number of rows; zero means DefaultListLimit.
	Limit int
}

// DefaultListLimit is used when ListOptions.Limit is zero.
const DefaultListLimit = 50
