// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metadataFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytdlq_metadata_fetch_total",
		Help: "Metadata fetches by result",
	}, []string{"result"})

	metadataFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ytdlq_metadata_fetch_duration_seconds",
		Help:    "Duration of metadata dump invocations",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
	})
)

// ObserveMetadataFetch records one metadata fetch outcome
// ("ok", "tool_not_found", "extraction_error", "parse_error").
func ObserveMetadataFetch(result string, d time.Duration) {
	metadataFetchTotal.WithLabelValues(result).Inc()
	if d > 0 {
		metadataFetchDuration.Observe(d.Seconds())
	}
}
