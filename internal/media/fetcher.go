// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/ytdlq/internal/ladder"
	xlog "github.com/ManuGH/ytdlq/internal/log"
	"github.com/ManuGH/ytdlq/internal/metrics"
	"github.com/ManuGH/ytdlq/internal/telemetry"
)

// Result is the outcome of one completed tool invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Exec runs the extraction tool to completion. A non-nil error means the tool
// could not be spawned at all; a non-zero exit is reported through Result.
type Exec interface {
	Run(ctx context.Context, args ...string) (Result, error)
}

// Fetcher retrieves Source metadata via the extraction tool.
type Fetcher struct {
	exec   Exec
	tool   string
	group  singleflight.Group
	logger zerolog.Logger
}

// NewFetcher creates a Fetcher. tool names the executable in errors and logs.
func NewFetcher(exec Exec, tool string) *Fetcher {
	if tool == "" {
		tool = "yt-dlp"
	}
	return &Fetcher{
		exec:   exec,
		tool:   tool,
		logger: xlog.WithComponent("media"),
	}
}

// Fetch populates src unless it has already been fetched. Concurrent fetches
// for the same URL share a single tool invocation.
func (f *Fetcher) Fetch(ctx context.Context, src *Source) error {
	if src.Fetched() {
		return nil
	}

	src.fetchMu.Lock()
	defer src.fetchMu.Unlock()
	if src.Fetched() {
		return nil
	}

	// The shared dump outlives any single caller; each caller stops waiting
	// when its own ctx ends.
	runCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(src.URL(), func() (any, error) {
		return f.dump(runCtx, src.URL())
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}
	if res.Err != nil {
		return res.Err
	}

	md := res.Val.(Metadata)
	src.populate(md)

	f.logger.Info().
		Str(xlog.FieldURL, src.URL()).
		Str(xlog.FieldTitle, md.Title).
		Int(xlog.FieldLadder, len(md.Ladder)).
		Bool("shared", res.Shared).
		Msg("metadata fetched")
	return nil
}

// ListFormats returns the tool's human-readable format table for src.
func (f *Fetcher) ListFormats(ctx context.Context, src *Source) (string, error) {
	if err := f.Fetch(ctx, src); err != nil {
		return "", err
	}

	res, err := f.run(ctx, "--list-formats", "--no-playlist", "--", src.URL())
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", &ExtractionError{
			URL:    src.URL(),
			Detail: "failed to list formats: " + strings.TrimSpace(string(res.Stderr)),
		}
	}
	return string(res.Stdout), nil
}

func (f *Fetcher) dump(ctx context.Context, url string) (Metadata, error) {
	ctx, span := telemetry.Tracer("ytdlq/media").Start(ctx, "media.fetch")
	defer span.End()
	span.SetAttributes(telemetry.SourceAttributes(url, "", 0)...)

	start := time.Now()
	md, result, err := f.dumpOnce(ctx, url)
	metrics.ObserveMetadataFetch(result, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		span.SetAttributes(telemetry.ErrorAttributes(err, result)...)
		f.logger.Warn().Err(err).Str(xlog.FieldURL, url).Str("result", result).Msg("metadata fetch failed")
		return Metadata{}, err
	}
	span.SetAttributes(telemetry.SourceAttributes(url, md.Title, len(md.Ladder))...)
	return md, nil
}

func (f *Fetcher) dumpOnce(ctx context.Context, url string) (Metadata, string, error) {
	res, err := f.run(ctx, "--dump-json", "--no-playlist", "--", url)
	if err != nil {
		return Metadata{}, "tool_not_found", err
	}
	if res.ExitCode != 0 {
		return Metadata{}, "extraction_error", &ExtractionError{
			URL:    url,
			Detail: strings.TrimSpace(string(res.Stderr)),
		}
	}

	md, err := parseDump(res.Stdout)
	if err != nil {
		return Metadata{}, "parse_error", &ExtractionError{
			URL:    url,
			Detail: "failed to parse metadata: " + err.Error(),
			Err:    err,
		}
	}
	return md, "ok", nil
}

func (f *Fetcher) run(ctx context.Context, args ...string) (Result, error) {
	res, err := f.exec.Run(ctx, args...)
	if err == nil {
		return res, nil
	}
	var tnf *ToolNotFoundError
	if errors.As(err, &tnf) {
		return Result{}, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, fmt.Errorf("run %s: %w", f.tool, ctxErr)
	}
	return Result{}, &ToolNotFoundError{Tool: f.tool, Err: err}
}

type dumpPayload struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Duration    float64      `json:"duration"`
	Thumbnail   string       `json:"thumbnail"`
	Uploader    string       `json:"uploader"`
	Formats     []dumpFormat `json:"formats"`
}

type dumpFormat struct {
	ID             string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Height         float64 `json:"height"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	VBR            float64 `json:"vbr"`
	ABR            float64 `json:"abr"`
	Filesize       float64 `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
	FPS            float64 `json:"fps"`
}

func parseDump(raw []byte) (Metadata, error) {
	var p dumpPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Metadata{}, err
	}

	formats := make([]ladder.Format, 0, len(p.Formats))
	for _, df := range p.Formats {
		size := df.Filesize
		if size <= 0 {
			size = df.FilesizeApprox
		}
		formats = append(formats, ladder.Format{
			ID:       df.ID,
			Ext:      df.Ext,
			Height:   int(df.Height),
			VCodec:   df.VCodec,
			ACodec:   df.ACodec,
			VBR:      df.VBR,
			ABR:      df.ABR,
			Filesize: int64(size),
			FPS:      df.FPS,
		})
	}

	title := p.Title
	if title == "" {
		title = DefaultTitle
	}
	return Metadata{
		Title:       title,
		Description: p.Description,
		Duration:    p.Duration,
		Thumbnail:   p.Thumbnail,
		Uploader:    p.Uploader,
		Ladder:      ladder.Resolve(formats),
	}, nil
}
