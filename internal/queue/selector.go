// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue

import (
	"github.com/ManuGH/ytdlq/internal/ladder"
	"github.com/ManuGH/ytdlq/internal/media"
)

// Selector picks the Quality to download from a fetched Source. Returning
// false defers to the top of the ladder.
type Selector func(src *media.Source) (ladder.Quality, bool)

// Best selects the top of the ladder.
func Best() Selector {
	return func(src *media.Source) (ladder.Quality, bool) {
		return src.Ladder().Best()
	}
}

// BestNative selects the highest quality that needs no merge step.
func BestNative() Selector {
	return func(src *media.Source) (ladder.Quality, bool) {
		return src.Ladder().BestNative()
	}
}

// ByHeight selects the rung with exactly the given height.
func ByHeight(height int) Selector {
	return func(src *media.Source) (ladder.Quality, bool) {
		return src.Ladder().ByHeight(height)
	}
}

// AtMost selects the highest rung not taller than height.
func AtMost(height int) Selector {
	return func(src *media.Source) (ladder.Quality, bool) {
		for _, q := range src.Ladder() {
			if q.Height <= height {
				return q, true
			}
		}
		return ladder.Quality{}, false
	}
}
