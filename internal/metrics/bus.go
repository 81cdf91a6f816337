// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytdlq_bus_dropped_total",
		Help: "Total number of queue event drops by kind and reason",
	}, []string{"kind", "reason"})
)

// IncBusDrop records a dropped event with a concrete reason.
func IncBusDrop(kind, reason string) {
	if kind == "" {
		kind = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(kind, reason).Inc()
}
