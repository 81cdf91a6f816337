// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ytdlp runs the yt-dlp executable on behalf of the media and
// download packages.
package ytdlp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/ytdlq/internal/download"
	xlog "github.com/ManuGH/ytdlq/internal/log"
	"github.com/ManuGH/ytdlq/internal/procgroup"
)

// Ensure Runner implements download.Runner
var _ download.Runner = (*Runner)(nil)

const maxLineBytes = 1 << 20

// Runner starts yt-dlp download invocations.
type Runner struct {
	binary string
	logger zerolog.Logger
}

// NewRunner creates a Runner for the given binary (DefaultBinary if empty).
func NewRunner(binary string) *Runner {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Runner{
		binary: binary,
		logger: xlog.WithComponent("ytdlp"),
	}
}

func (r *Runner) Start(ctx context.Context, inv download.Invocation) (download.Handle, error) {
	cmd := command(ctx, r.binary, inv.Args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, spawnError(r.binary, err)
	}
	r.logger.Debug().Int(xlog.FieldPID, cmd.Process.Pid).Str(xlog.FieldURL, inv.URL).Msg("yt-dlp started")

	h := &handle{
		cmd:    cmd,
		lines:  make(chan download.Line, 64),
		exited: make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go h.scan(&wg, stdout, download.Stdout)
	go h.scan(&wg, stderr, download.Stderr)
	go func() {
		wg.Wait()
		close(h.lines)
	}()

	return h, nil
}

type handle struct {
	cmd    *exec.Cmd
	lines  chan download.Line
	exited chan struct{}

	waitOnce sync.Once
	waitErr  error
}

func (h *handle) Lines() <-chan download.Line { return h.lines }

func (h *handle) Wait() error {
	h.waitOnce.Do(func() {
		h.waitErr = h.cmd.Wait()
		close(h.exited)
	})
	return h.waitErr
}

func (h *handle) Stop(grace time.Duration) {
	procgroup.Terminate(h.cmd, h.exited, grace)
}

func (h *handle) scan(wg *sync.WaitGroup, r io.Reader, stream download.Stream) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		h.lines <- download.Line{Stream: stream, Text: scanner.Text()}
	}
	// keep the pipe drained so the tool never blocks on a full buffer
	_, _ = io.Copy(io.Discard, r)
}
