// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package download

import (
	"fmt"
	"path/filepath"

	"github.com/ManuGH/ytdlq/internal/ladder"
)

// DefaultMergeFormat pins the merged container so the final extension is
// predictable.
const DefaultMergeFormat = "mp4"

// InvocationOptions carries settings that do not depend on the job.
type InvocationOptions struct {
	MergeFormat   string
	MuxerLocation string
}

// Invocation is a fully built download command line.
type Invocation struct {
	URL        string
	Format     string
	OutputBase string // target path without extension
	Container  string // pinned merge container, e.g. "mp4"
	Args       []string
}

// FormatSelector returns the format expression for q.
func FormatSelector(q ladder.Quality) string {
	switch {
	case q.NativeCombined:
		return q.FormatID
	case q.NeedsMerging:
		return fmt.Sprintf("%s+%s/bestvideo[height<=%d]+bestaudio/best[height<=%d]",
			q.FormatID, q.BestAudioFormatID, q.Height, q.Height)
	default:
		return fmt.Sprintf("best[height<=%d]", q.Height)
	}
}

// BuildInvocation assembles the tool arguments for downloading q of the
// source at url into targetDir.
func BuildInvocation(url, title string, q ladder.Quality, targetDir string, opts InvocationOptions) Invocation {
	mergeFormat := opts.MergeFormat
	if mergeFormat == "" {
		mergeFormat = DefaultMergeFormat
	}

	base := filepath.Join(targetDir, SanitizeFilename(title))
	format := FormatSelector(q)

	args := []string{
		"--format", format,
		"--output", base + ".%(ext)s",
		"--merge-output-format", mergeFormat,
	}
	if opts.MuxerLocation != "" {
		args = append(args, "--ffmpeg-location", opts.MuxerLocation)
	}
	args = append(args, "--newline", "--", url)

	return Invocation{
		URL:        url,
		Format:     format,
		OutputBase: base,
		Container:  mergeFormat,
		Args:       args,
	}
}
