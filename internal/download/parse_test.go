// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package download

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProgress(t *testing.T) {
	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"[download]  42.7% of 10.00MiB at 2.00MiB/s ETA 00:03", 42.7, true},
		{"[download] 100% of 10.00MiB in 00:05", 100, true},
		{"[download]   0.0% of ~ 3.51GiB", 0, true},
		{"[download] Destination: out.mp4", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseProgress(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.InDelta(t, tt.want, got, 0.0001, tt.line)
	}
}

func TestClassifyDiagnostic(t *testing.T) {
	tests := map[string]DiagnosticClass{
		"WARNING: [youtube] unable to download thumbnail": DiagnosticWarning,
		"ERROR: [youtube] abc: Private video":             DiagnosticFatal,
		"yt-dlp: error: no such option: --bogus":          DiagnosticFatal,
		"HTTP Error 429: Too Many Requests":               DiagnosticFatal,
		"Unable to download webpage":                      DiagnosticFatal,
		"[youtube] abc: Downloading m3u8 information":     DiagnosticInfo,
		"":                                                DiagnosticInfo,
	}
	for line, want := range tests {
		assert.Equal(t, want, ClassifyDiagnostic(line), "line %q", line)
	}
	assert.Equal(t, "fatal", DiagnosticFatal.String())
}

func TestRingBuffer(t *testing.T) {
	r := newRingBuffer(3)
	assert.Empty(t, r.Snapshot())

	r.Add("a")
	r.Add("b")
	assert.Equal(t, []string{"a", "b"}, r.Snapshot())

	r.Add("c")
	r.Add("d")
	r.Add("e")
	assert.Equal(t, []string{"c", "d", "e"}, r.Snapshot())
}

func TestStateRoundTrip(t *testing.T) {
	for s := StateCreated; s <= StateCancelled; s++ {
		b, err := s.MarshalText()
		assert.NoError(t, err)
		var got State
		assert.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, s, got)
	}
	_, err := ParseState("exploded")
	assert.Error(t, err)
	assert.False(t, StateRunning.IsTerminal())
	assert.True(t, StateCancelled.IsTerminal())
}

type codeErr int

func (c codeErr) Error() string { return fmt.Sprintf("code %d", int(c)) }
func (c codeErr) ExitCode() int { return int(c) }

func TestExitCodeOf(t *testing.T) {
	assert.Equal(t, 3, exitCodeOf(fmt.Errorf("wait: %w", codeErr(3))))
	assert.Equal(t, -1, exitCodeOf(errors.New("plain")))
}
