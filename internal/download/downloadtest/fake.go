// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package downloadtest provides a scriptable download.Runner for tests.
package downloadtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/ytdlq/internal/download"
)

// ExitError mimics *exec.ExitError's exit code reporting.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

func (e *ExitError) ExitCode() int { return e.Code }

// ErrTerminated is what a Handle exits with when Stop kills it.
var ErrTerminated = &ExitError{Code: -1}

// Runner records Start calls and hands out scriptable Handles.
type Runner struct {
	mu       sync.Mutex
	startErr error
	handles  []*Handle
	started  chan *Handle

	// KeepAliveOnStop makes new handles ignore Stop.
	KeepAliveOnStop bool
}

// NewRunner returns a Runner whose Start always succeeds.
func NewRunner() *Runner {
	return &Runner{started: make(chan *Handle, 1024)}
}

// FailWith makes subsequent Start calls fail with err.
func (r *Runner) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startErr = err
}

func (r *Runner) Start(_ context.Context, inv download.Invocation) (download.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return nil, r.startErr
	}
	h := newHandle(inv, r.KeepAliveOnStop)
	r.handles = append(r.handles, h)
	r.started <- h
	return h, nil
}

// Starts returns how many handles were spawned.
func (r *Runner) Starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Handles returns the spawned handles in start order.
func (r *Runner) Handles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Handle(nil), r.handles...)
}

// Next waits for the next spawned handle, returning nil on timeout.
func (r *Runner) Next(timeout time.Duration) *Handle {
	select {
	case h := <-r.started:
		return h
	case <-time.After(timeout):
		return nil
	}
}

// Handle is a fake running process driven by the test.
type Handle struct {
	Inv download.Invocation

	keepAlive bool
	lines     chan download.Line
	exit      chan error

	mu        sync.Mutex
	exited    bool
	stopCalls []time.Duration
}

func newHandle(inv download.Invocation, keepAlive bool) *Handle {
	return &Handle{
		Inv:       inv,
		keepAlive: keepAlive,
		lines:     make(chan download.Line, 256),
		exit:      make(chan error, 1),
	}
}

func (h *Handle) Lines() <-chan download.Line { return h.lines }

func (h *Handle) Wait() error { return <-h.exit }

// Stop records the call and, unless the handle ignores stops, exits with
// ErrTerminated.
func (h *Handle) Stop(grace time.Duration) {
	h.mu.Lock()
	h.stopCalls = append(h.stopCalls, grace)
	keepAlive := h.keepAlive
	h.mu.Unlock()
	if !keepAlive {
		h.Exit(ErrTerminated)
	}
}

// Stdout writes a stdout line. Lines after exit are dropped.
func (h *Handle) Stdout(text string) { h.write(download.Stdout, text) }

// Stderr writes a stderr line. Lines after exit are dropped.
func (h *Handle) Stderr(text string) { h.write(download.Stderr, text) }

func (h *Handle) write(s download.Stream, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exited {
		return
	}
	h.lines <- download.Line{Stream: s, Text: text}
}

// Exit closes the output streams and makes Wait return err. Only the first
// call has an effect.
func (h *Handle) Exit(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exited {
		return
	}
	h.exited = true
	close(h.lines)
	h.exit <- err
}

// Succeed is Exit(nil).
func (h *Handle) Succeed() { h.Exit(nil) }

// Fail exits with the given exit code.
func (h *Handle) Fail(code int) { h.Exit(&ExitError{Code: code}) }

// StopCalls returns the grace values Stop was called with.
func (h *Handle) StopCalls() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Duration(nil), h.stopCalls...)
}

// Exited reports whether Exit has been called.
func (h *Handle) Exited() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exited
}
