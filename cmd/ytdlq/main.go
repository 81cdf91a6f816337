// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command ytdlq fetches quality ladders and runs a bounded download queue
// on top of yt-dlp.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/ytdlq/internal/config"
	xlog "github.com/ManuGH/ytdlq/internal/log"
	"github.com/ManuGH/ytdlq/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	xlog.Configure(xlog.Config{
		Level:   config.ParseString(config.EnvLogLevel, config.ParseString(config.EnvLogLevelShort, config.DefaultLogLevel)),
		Output:  os.Stderr,
		Service: config.DefaultLogService,
		Version: version.Version,
	})

	err := newRootCmd().ExecuteContext(ctx)
	if err == nil {
		return
	}
	var ee *exitError
	if errors.As(err, &ee) {
		os.Exit(ee.code)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

// exitError carries a specific exit status out of a command without the
// generic error print.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
