// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/ytdlq/internal/ladder"
	"github.com/ManuGH/ytdlq/internal/media"
)

const fetchParallelism = 4

type fetchOptions struct {
	json    bool
	formats bool
}

func newFetchCmd(root *rootOptions) *cobra.Command {
	opts := &fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch URL...",
		Short: "Show the quality ladder of one or more videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			fetcher := newFetcher(cfg)
			out := cmd.OutOrStdout()

			if opts.formats {
				for _, u := range args {
					table, err := fetcher.ListFormats(cmd.Context(), media.NewSource(u))
					if err != nil {
						return err
					}
					fmt.Fprint(out, table)
				}
				return nil
			}

			sources := make([]*media.Source, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(fetchParallelism)
			for i, u := range args {
				sources[i] = media.NewSource(u)
				src := sources[i]
				g.Go(func() error { return fetcher.Fetch(ctx, src) })
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if opts.json {
				return writeSourcesJSON(out, sources)
			}
			for i, src := range sources {
				if i > 0 {
					fmt.Fprintln(out)
				}
				writeLadder(out, src)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "print metadata and ladder as JSON")
	cmd.Flags().BoolVar(&opts.formats, "formats", false, "print yt-dlp's raw format table instead")
	return cmd
}

func writeSourcesJSON(w io.Writer, sources []*media.Source) error {
	type view struct {
		URL string `json:"url"`
		media.Metadata
	}
	out := make([]view, 0, len(sources))
	for _, src := range sources {
		out = append(out, view{URL: src.URL(), Metadata: src.Metadata()})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeLadder(w io.Writer, src *media.Source) {
	md := src.Metadata()
	fmt.Fprintf(w, "%s\n%s", md.Title, src.URL())
	if md.Duration > 0 {
		fmt.Fprintf(w, " (%s)", formatSeconds(md.Duration))
	}
	fmt.Fprintln(w)

	if len(md.Ladder) == 0 {
		fmt.Fprintln(w, "  no downloadable video qualities")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  QUALITY\tFORMAT\tEXT\tFPS\tSIZE\tMERGE")
	for _, q := range md.Ladder {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			q.Label(), formatOf(q), q.Ext, fps(q.FPS), size(q.Filesize), merge(q))
	}
	_ = tw.Flush()
}

func formatOf(q ladder.Quality) string {
	if q.NeedsMerging && q.BestAudioFormatID != "" {
		return q.FormatID + "+" + q.BestAudioFormatID
	}
	return q.FormatID
}

func fps(v float64) string {
	if v <= 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func size(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

func merge(q ladder.Quality) string {
	switch {
	case q.NativeCombined:
		return "native"
	case q.NeedsMerging:
		return "merge"
	default:
		return "video only"
	}
}

func formatSeconds(s float64) string {
	total := int(s)
	h, m, sec := total/3600, total%3600/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
