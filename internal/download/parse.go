// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package download

import (
	"regexp"
	"strconv"
	"strings"
)

var progressPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// ParseProgress extracts the first percentage token from a stdout line.
func ParseProgress(line string) (float64, bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// DiagnosticClass is the classification of one stderr line.
type DiagnosticClass int

const (
	DiagnosticInfo DiagnosticClass = iota
	DiagnosticWarning
	DiagnosticFatal
)

func (c DiagnosticClass) String() string {
	switch c {
	case DiagnosticWarning:
		return "warning"
	case DiagnosticFatal:
		return "fatal"
	default:
		return "info"
	}
}

// ClassifyDiagnostic classifies a stderr line. Warning markers take
// precedence over fatal markers.
func ClassifyDiagnostic(line string) DiagnosticClass {
	if strings.Contains(line, "WARNING") {
		return DiagnosticWarning
	}
	if strings.Contains(line, "ERROR") ||
		strings.Contains(line, "error:") ||
		strings.Contains(line, "HTTP Error") ||
		strings.Contains(strings.ToLower(line), "unable to download") {
		return DiagnosticFatal
	}
	return DiagnosticInfo
}
