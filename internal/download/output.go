// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package download

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ytdlq/internal/metrics"
)

// DefaultProbeGrace is how long a finished download may take to surface its
// output file before the fallback path is reported.
const DefaultProbeGrace = 100 * time.Millisecond

// probeOrder lists the containers yt-dlp may leave behind, in probe order.
var probeOrder = []string{".mp4", ".webm", ".mkv"}

// outputResolver discovers which file a successful download produced.
type outputResolver struct {
	clock  Clock
	grace  time.Duration
	logger zerolog.Logger

	// exts starts with the pinned container, which is also the fallback.
	exts []string
}

func newOutputResolver(clock Clock, grace time.Duration, container string, logger zerolog.Logger) outputResolver {
	if container == "" {
		container = DefaultMergeFormat
	}
	canonical := "." + strings.TrimPrefix(container, ".")
	exts := []string{canonical}
	for _, ext := range probeOrder {
		if ext != canonical {
			exts = append(exts, ext)
		}
	}
	return outputResolver{clock: clock, grace: grace, logger: logger, exts: exts}
}

// Resolve returns the first existing candidate for base. If none exists it
// watches the directory until one appears or the grace window expires, then
// falls back to the canonical extension.
func (r outputResolver) Resolve(base string) string {
	if p, ok := r.probe(base); ok {
		metrics.IncOutputResolve("probe")
		return p
	}

	deadline := r.clock.After(r.grace)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.logger.Debug().Err(err).Msg("output watcher unavailable, waiting for grace window")
		return r.waitThenProbe(deadline, base)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(base)); err != nil {
		r.logger.Debug().Err(err).Msg("output watch failed, waiting for grace window")
		return r.waitThenProbe(deadline, base)
	}

	// The file may have landed between the first probe and Add.
	if p, ok := r.probe(base); ok {
		metrics.IncOutputResolve("probe")
		return p
	}

	wanted := make(map[string]bool, len(r.exts))
	for _, ext := range r.exts {
		wanted[filepath.Clean(base+ext)] = true
	}

	events, errs := watcher.Events, watcher.Errors
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if wanted[filepath.Clean(ev.Name)] && exists(ev.Name) {
				metrics.IncOutputResolve("watch")
				return filepath.Clean(ev.Name)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.logger.Debug().Err(err).Msg("output watcher error")
		case <-deadline:
			return r.expire(base)
		}
	}
}

func (r outputResolver) waitThenProbe(deadline <-chan time.Time, base string) string {
	<-deadline
	return r.expire(base)
}

// expire is called when the grace window ends.
func (r outputResolver) expire(base string) string {
	if p, ok := r.probe(base); ok {
		metrics.IncOutputResolve("probe")
		return p
	}
	metrics.IncOutputResolve("fallback")
	return base + r.exts[0]
}

func (r outputResolver) probe(base string) (string, bool) {
	for _, ext := range r.exts {
		p := base + ext
		if exists(p) {
			return p, true
		}
	}
	return "", false
}

func exists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
