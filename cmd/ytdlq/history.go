// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ManuGH/ytdlq/internal/history"
	"github.com/ManuGH/ytdlq/internal/persistence/sqlite"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and maintain the job history database",
	}
	cmd.AddCommand(
		newHistoryListCmd(root),
		newHistoryPruneCmd(root),
		newHistoryVerifyCmd(root),
	)
	return cmd
}

func newHistoryListCmd(root *rootOptions) *cobra.Command {
	var (
		status string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := history.Status(status)
			if st != "" && !st.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			store, err := history.Open(cmd.Context(), cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			recs, err := store.List(cmd.Context(), history.ListOptions{Status: st, Limit: limit})
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			writeHistory(cmd.OutOrStdout(), recs, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only show jobs in this status")
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "maximum number of jobs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func writeHistory(w io.Writer, recs []history.Record, now time.Time) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "no jobs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tQUALITY\tCREATED\tTITLE\tDETAIL")
	for _, r := range recs {
		detail := r.FilePath
		if r.Status == history.StatusFailed {
			detail = r.Error
		} else if r.Status == history.StatusRunning {
			detail = fmt.Sprintf("%.1f%%", r.Percent)
		}
		fmt.Fprintf(tw, "%s\t%s\t%dp\t%s\t%s\t%s\n",
			shortID(r.JobID), r.Status, r.Height, humanize.RelTime(r.CreatedAt, now, "ago", "from now"), r.Title, detail)
	}
	_ = tw.Flush()
}

func newHistoryPruneCmd(root *rootOptions) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished jobs older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			store, err := history.Open(cmd.Context(), cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d jobs\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age of the oldest job to keep")
	return cmd
}

func newHistoryVerifyCmd(root *rootOptions) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the history database for corruption",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			mode := sqlite.VerifyQuick
			if full {
				mode = sqlite.VerifyFull
			}
			problems, err := sqlite.VerifyIntegrity(cmd.Context(), cfg.HistoryDB, mode)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(problems) == 0 {
				fmt.Fprintf(out, "%s: ok\n", cfg.HistoryDB)
				return nil
			}
			for _, p := range problems {
				fmt.Fprintln(out, p)
			}
			return &exitError{code: 2}
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "run integrity_check instead of quick_check")
	return cmd
}
