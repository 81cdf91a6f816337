// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldJobID     = "job_id"
	FieldRequestID = "request_id"
	FieldTraceID   = "trace_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldExitCode  = "exit_code"
	FieldTool      = "tool"

	// Media fields
	FieldURL      = "url"
	FieldTitle    = "title"
	FieldHeight   = "height"
	FieldFormat   = "format"
	FieldPercent  = "percent"
	FieldMerge    = "needs_merging"
	FieldNative   = "native_combined"
	FieldLadder   = "ladder_size"
	FieldDuration = "duration_s"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Queue fields
	FieldPending   = "pending"
	FieldActive    = "active"
	FieldCompleted = "completed"
	FieldFailed    = "failed"
	FieldCapacity  = "max_concurrent"

	// Path fields
	FieldPath      = "path"
	FieldTargetDir = "target_dir"
)
