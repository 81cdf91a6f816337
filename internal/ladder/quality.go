// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ladder

import "strconv"

// Quality is one rung of the ladder: a single addressable height together with
// the information needed to decide whether a mux step is required.
type Quality struct {
	Height            int     `json:"height"`
	FormatID          string  `json:"format_id"`
	Ext               string  `json:"ext"`
	Filesize          int64   `json:"filesize,omitempty"`
	FPS               float64 `json:"fps,omitempty"`
	VCodec            string  `json:"vcodec,omitempty"`
	ACodec            string  `json:"acodec,omitempty"`
	NativeCombined    bool    `json:"native_combined"`
	NeedsMerging      bool    `json:"needs_merging"`
	BestAudioFormatID string  `json:"best_audio_format_id,omitempty"`
}

// Label returns the conventional "<height>p" name.
func (q Quality) Label() string {
	return strconv.Itoa(q.Height) + "p"
}

// RequiresMuxer reports whether downloading q needs an external muxer.
func (q Quality) RequiresMuxer() bool {
	return !q.NativeCombined
}
