// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"github.com/ManuGH/ytdlq/internal/media"
)

var _ media.Exec = (*Exec)(nil)

// Exec runs yt-dlp to completion and buffers its output. It backs metadata
// retrieval.
type Exec struct {
	binary string
}

// NewExec creates an Exec for the given binary (DefaultBinary if empty).
func NewExec(binary string) *Exec {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Exec{binary: binary}
}

func (e *Exec) Run(ctx context.Context, args ...string) (media.Result, error) {
	cmd := command(ctx, e.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return media.Result{}, spawnError(e.binary, err)
	}

	err := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return media.Result{}, ctxErr
	}

	res := media.Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return media.Result{}, err
		}
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}
