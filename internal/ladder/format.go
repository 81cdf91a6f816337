// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ladder

import "strings"

// DefaultContainer is used when a format does not report its own extension.
const DefaultContainer = "mp4"

// codecNone is the placeholder the extraction tool uses for a missing stream.
const codecNone = "none"

// Format is one raw stream descriptor as reported by the extraction tool.
// Zero values mean "unknown": Height 0 is an unknown height, an empty or
// "none" codec is an absent stream.
type Format struct {
	ID       string  `json:"format_id"`
	Ext      string  `json:"ext,omitempty"`
	Height   int     `json:"height,omitempty"`
	VCodec   string  `json:"vcodec,omitempty"`
	ACodec   string  `json:"acodec,omitempty"`
	VBR      float64 `json:"vbr,omitempty"`
	ABR      float64 `json:"abr,omitempty"`
	Filesize int64   `json:"filesize,omitempty"`
	FPS      float64 `json:"fps,omitempty"`
}

// HasVideo reports whether the format carries a video stream.
func (f Format) HasVideo() bool {
	return codecPresent(f.VCodec)
}

// HasAudio reports whether the format carries an audio stream.
func (f Format) HasAudio() bool {
	return codecPresent(f.ACodec)
}

// IsVideoCapable reports whether the format can anchor a ladder rung.
func (f Format) IsVideoCapable() bool {
	return f.HasVideo() && f.Height > 0
}

// IsAudioOnly reports whether the format is a pure audio stream.
func (f Format) IsAudioOnly() bool {
	return f.HasAudio() && !f.HasVideo()
}

func codecPresent(codec string) bool {
	c := strings.TrimSpace(codec)
	return c != "" && !strings.EqualFold(c, codecNone)
}
