// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/ytdlq/internal/metrics"
)

// Terminate asks a process group to stop without blocking the caller.
// It sends SIGTERM immediately and, unless exited is closed within grace,
// follows up with SIGKILL. exited must be closed by whoever reaps the process.
// It is safe to call on nil commands.
func Terminate(cmd *exec.Cmd, exited <-chan struct{}, grace time.Duration) {
	if cmd == nil || cmd.Process == nil {
		return
	}

	err := Kill(cmd, syscall.SIGTERM)
	metrics.IncProcTerminate("SIGTERM", result(err))
	if err != nil && isGone(err) {
		return
	}

	go func() {
		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-exited:
		case <-timer.C:
			err := Kill(cmd, syscall.SIGKILL)
			metrics.IncProcTerminate("SIGKILL", result(err))
		}
	}()
}
