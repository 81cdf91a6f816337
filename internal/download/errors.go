// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package download

import (
	"errors"
	"fmt"
)

// ErrAlreadyStarted is returned when Start is called on a process more than once.
var ErrAlreadyStarted = errors.New("download already started")

// DownloadFailedError reports a download that ended unsuccessfully, either by
// a non-zero exit or by a fatal line on the diagnostic stream. Detail keeps the
// tool's raw text.
type DownloadFailedError struct {
	JobID       string
	ExitCode    int
	Detail      string
	Diagnostics []string
	Err         error
}

func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("download %s failed: %s", e.JobID, e.Detail)
}

func (e *DownloadFailedError) Unwrap() error { return e.Err }

// exitCoder is satisfied by *exec.ExitError.
type exitCoder interface {
	ExitCode() int
}

func exitCodeOf(err error) int {
	var ec exitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}
