// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup spawns external tools as process-group leaders so that a
// stop request reaches the tool and every helper it forked (yt-dlp forks
// ffmpeg for merging).
package procgroup

import (
	"errors"
	"syscall"
)

func isGone(err error) bool {
	return errors.Is(err, syscall.ESRCH)
}

func result(err error) string {
	switch {
	case err == nil:
		return "sent"
	case isGone(err):
		return "esrch"
	default:
		return "error"
	}
}
