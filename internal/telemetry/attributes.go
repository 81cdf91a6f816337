// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Source attributes
	SourceURLKey    = "source.url"
	SourceTitleKey  = "source.title"
	SourceLadderKey = "source.ladder_size"

	// Download attributes
	JobIDKey       = "job.id"
	JobHeightKey   = "job.height"
	JobFormatKey   = "job.format"
	JobMergeKey    = "job.needs_merging"
	JobStateKey    = "job.state"
	JobExitCodeKey = "job.exit_code"
	JobDurationKey = "job.duration_ms"
	ToolKey        = "tool.name"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// SourceAttributes creates metadata-fetch span attributes. Empty title and a
// zero ladder size are omitted.
func SourceAttributes(url, title string, ladderSize int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(SourceURLKey, url)}
	if title != "" {
		attrs = append(attrs, attribute.String(SourceTitleKey, title))
	}
	if ladderSize > 0 {
		attrs = append(attrs, attribute.Int(SourceLadderKey, ladderSize))
	}
	return attrs
}

// JobAttributes creates download-job span attributes.
func JobAttributes(jobID string, height int, format string, needsMerging bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobIDKey, jobID),
		attribute.Int(JobHeightKey, height),
		attribute.String(JobFormatKey, format),
		attribute.Bool(JobMergeKey, needsMerging),
	}
}

// OutcomeAttributes describes how a job ended.
func OutcomeAttributes(state string, exitCode int, durationMS int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobStateKey, state),
		attribute.Int(JobExitCodeKey, exitCode),
		attribute.Int64(JobDurationKey, durationMS),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
