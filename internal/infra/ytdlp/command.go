// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ytdlp

import (
	"context"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/ytdlq/internal/procgroup"
)

// waitDelay bounds how long Wait keeps draining pipes after the process died
// while a forked helper still holds them open.
const waitDelay = 5 * time.Second

// command builds a process-group-leading command whose context
// cancellation kills the whole group.
func command(ctx context.Context, binary string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, binary, args...)
	procgroup.Set(cmd)
	cmd.Cancel = func() error {
		return procgroup.Kill(cmd, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay
	return cmd
}
