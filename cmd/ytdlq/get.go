// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/ytdlq/internal/config"
	xlog "github.com/ManuGH/ytdlq/internal/log"
	"github.com/ManuGH/ytdlq/internal/media"
	"github.com/ManuGH/ytdlq/internal/queue"
)

const closeTimeout = 10 * time.Second

type getOptions struct {
	height        int
	maxHeight     int
	native        bool
	maxConcurrent int
	dir           string
	noHistory     bool
}

func (o *getOptions) selector() queue.Selector {
	switch {
	case o.height > 0:
		return queue.ByHeight(o.height)
	case o.maxHeight > 0:
		return queue.AtMost(o.maxHeight)
	case o.native:
		return queue.BestNative()
	default:
		return queue.Best()
	}
}

func newGetCmd(root *rootOptions) *cobra.Command {
	opts := &getOptions{}
	cmd := &cobra.Command{
		Use:   "get URL...",
		Short: "Download one or more videos through the queue and wait for them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.height > 0 && opts.maxHeight > 0 {
				return fmt.Errorf("--height and --max-height are mutually exclusive")
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if opts.maxConcurrent > 0 {
				cfg.MaxConcurrent = opts.maxConcurrent
			}
			if opts.dir != "" {
				cfg.DownloadDir = opts.dir
			}
			if opts.noHistory {
				cfg.HistoryDB = ""
			}
			return runGet(cmd.Context(), cmd.OutOrStdout(), cfg, opts.selector(), args)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.height, "height", 0, "download exactly this height, falling back to the best")
	f.IntVar(&opts.maxHeight, "max-height", 0, "download the best quality not taller than this")
	f.BoolVar(&opts.native, "native", false, "prefer qualities that need no merge step")
	f.IntVarP(&opts.maxConcurrent, "jobs", "j", 0, "concurrent downloads (default from config)")
	f.StringVarP(&opts.dir, "dir", "o", "", "download directory (default from config)")
	f.BoolVar(&opts.noHistory, "no-history", false, "do not record jobs in the history database")
	return cmd
}

// runGet queues every URL and blocks until each queued job reached a
// terminal state. It fails when any URL could not be queued or downloaded.
func runGet(ctx context.Context, out io.Writer, cfg config.AppConfig, sel queue.Selector, urls []string) error {
	logger := xlog.WithComponent("cli")

	sched, err := newScheduler(cfg, newFetcher(cfg))
	if err != nil {
		return err
	}
	var waitRecorder func()
	if cfg.HistoryDB != "" {
		store, wait, err := startRecorder(ctx, cfg.HistoryDB, sched)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		waitRecorder = wait
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if err := sched.Close(closeCtx); err != nil {
			logger.Warn().Err(err).Msg("queue did not shut down cleanly")
		}
		if waitRecorder != nil {
			waitRecorder()
		}
	}()

	sub := sched.Subscribe(ctx)
	defer sub.Close()

	var (
		mu      sync.Mutex
		queued  int
		addErrs int
	)
	addsDone := make(chan struct{})
	go func() {
		defer close(addsDone)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(fetchParallelism)
		for _, u := range urls {
			g.Go(func() error {
				_, err := sched.Add(gctx, media.NewSource(u), sel)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					addErrs++
					fmt.Fprintf(out, "skip   %s: %v\n", u, err)
					return nil
				}
				queued++
				return nil
			})
		}
		_ = g.Wait()
	}()

	progress := newProgressPrinter(out)
	var terminal, failed int
	adding := addsDone
	for {
		if adding == nil && terminal >= queued {
			break
		}
		select {
		case <-adding:
			adding = nil
		case ev, ok := <-sub.C():
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return fmt.Errorf("event stream ended with %d of %d jobs finished", terminal, queued)
			}
			switch e := ev.(type) {
			case queue.JobStartedEvent:
				fmt.Fprintf(out, "start  %s [%s] %s\n", shortID(e.Job.ID), e.Job.Quality.Label(), e.Job.Source.Title())
			case queue.ProgressEvent:
				progress.update(e.JobID, e.Percent)
			case queue.JobCompletedEvent:
				terminal++
				fmt.Fprintf(out, "done   %s %s\n", shortID(e.Job.ID), e.Job.FilePath)
			case queue.JobFailedEvent:
				terminal++
				failed++
				fmt.Fprintf(out, "failed %s %s: %v\n", shortID(e.Job.ID), e.Job.Source.URL(), e.Err)
			case queue.JobRemovedEvent:
				terminal++
			}
		}
	}

	if failed > 0 || addErrs > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed+addErrs, len(urls))
	}
	return nil
}

// progressPrinter prints a job's progress each time it crosses another 10%.
type progressPrinter struct {
	out  io.Writer
	last map[string]int
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, last: make(map[string]int)}
}

func (p *progressPrinter) update(id string, pct float64) {
	step := int(pct) / 10
	if prev, ok := p.last[id]; ok && step <= prev {
		return
	}
	p.last[id] = step
	fmt.Fprintf(p.out, "       %s %5.1f%%\n", shortID(id), pct)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
