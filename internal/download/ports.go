// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package download

import (
	"context"
	"time"
)

// Stream identifies which output stream of the tool a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Line is one line of tool output.
type Line struct {
	Stream Stream
	Text   string
}

// Runner defines the contract for starting the external download tool.
// This interface MUST be implemented by the infrastructure layer.
type Runner interface {
	// Start launches the invocation. A spawn failure caused by a missing
	// executable must be reported as *media.ToolNotFoundError.
	Start(ctx context.Context, inv Invocation) (Handle, error)
}

// Handle controls a running tool process.
type Handle interface {
	// Lines delivers stdout and stderr lines; order is preserved within each
	// stream. The channel is closed once both streams are drained.
	Lines() <-chan Line

	// Wait blocks until the process exits and returns nil on exit code 0.
	// It must only be called after Lines has been closed.
	Wait() error

	// Stop requests termination (SIGTERM, then SIGKILL after grace) and
	// returns immediately. Exit is still observed through Wait.
	Stop(grace time.Duration)
}
