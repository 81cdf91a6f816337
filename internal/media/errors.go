// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"errors"
	"fmt"
)

// ToolNotFoundError reports that the external tool could not be spawned.
type ToolNotFoundError struct {
	Tool string
	Err  error
}

func (e *ToolNotFoundError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s not found", e.Tool)
	}
	return fmt.Sprintf("%s not found: %v", e.Tool, e.Err)
}

func (e *ToolNotFoundError) Unwrap() error { return e.Err }

// ExtractionError reports a failed or unparsable metadata extraction. Detail
// carries the tool's raw diagnostic output or the parse message.
type ExtractionError struct {
	URL    string
	Detail string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := "metadata extraction failed for " + e.URL
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ErrNotFetched is returned by operations that need metadata on a Source that
// has not been fetched.
var ErrNotFetched = errors.New("source metadata not fetched")

// IsToolNotFound reports whether err is or wraps a *ToolNotFoundError.
func IsToolNotFound(err error) bool {
	var tnf *ToolNotFoundError
	return errors.As(err, &tnf)
}
