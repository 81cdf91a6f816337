// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/ytdlq/internal/ladder"
	"github.com/ManuGH/ytdlq/internal/media"
)

func TestSelectors(t *testing.T) {
	src := media.NewFetchedSource("https://example.com/v", media.Metadata{
		Ladder: ladder.Ladder{
			{Height: 1080, FormatID: "137", NeedsMerging: true},
			{Height: 720, FormatID: "22", NativeCombined: true},
			{Height: 360, FormatID: "18", NativeCombined: true},
		},
	})

	tests := []struct {
		name   string
		sel    Selector
		height int
		ok     bool
	}{
		{"best", Best(), 1080, true},
		{"best native", BestNative(), 720, true},
		{"exact height", ByHeight(360), 360, true},
		{"missing height", ByHeight(480), 0, false},
		{"at most between rungs", AtMost(800), 720, true},
		{"at most exact", AtMost(1080), 1080, true},
		{"at most below all", AtMost(144), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := tt.sel(src)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.height, q.Height)
		})
	}
}
