// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	procTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytdlq_proc_terminate_total",
		Help: "Signals sent to download process groups, by signal and result",
	}, []string{"signal", "result"})

	procSpawnTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytdlq_proc_spawn_total",
		Help: "Download tool spawn attempts, by result",
	}, []string{"result"})

	// ProgressEventsTotal counts parsed progress lines.
	ProgressEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytdlq_progress_events_total",
		Help: "Progress percentages parsed from download tool output",
	})

	// DiagnosticsTotal counts classified diagnostic lines.
	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytdlq_diagnostics_total",
		Help: "Diagnostic stream lines by classification",
	}, []string{"class"})

	// OutputResolveTotal counts how completed downloads resolved their path.
	OutputResolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytdlq_output_resolve_total",
		Help: "Completed download output path resolution, by method",
	}, []string{"method"})
)

// IncProcTerminate records a signal delivery attempt.
func IncProcTerminate(signal, result string) {
	procTerminateTotal.WithLabelValues(signal, result).Inc()
}

// IncProcSpawn records a spawn attempt ("ok", "not_found", "error").
func IncProcSpawn(result string) {
	procSpawnTotal.WithLabelValues(result).Inc()
}

// IncDiagnostic records a classified stderr line ("warning", "fatal", "info").
func IncDiagnostic(class string) {
	DiagnosticsTotal.WithLabelValues(class).Inc()
}

// IncOutputResolve records the output resolution method ("probe", "watch", "fallback").
func IncOutputResolve(method string) {
	OutputResolveTotal.WithLabelValues(method).Inc()
}
