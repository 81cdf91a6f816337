// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ladder turns the raw stream descriptors of a video into an ordered
// quality ladder: one rung per height, highest first, each rung carrying
// whether it is natively combined or must be merged with a separate audio
// stream.
package ladder

import "sort"

// Ladder is ordered strictly descending by height with one entry per height.
type Ladder []Quality

// bucket collects the candidate formats for a single height.
type bucket struct {
	native    *Format
	videoOnly *Format
}

// Resolve builds the ladder for a set of raw formats. It is pure: the input
// slice is not modified and equal inputs give equal ladders.
func Resolve(formats []Format) Ladder {
	bestAudio := selectBestAudio(formats)

	buckets := make(map[int]*bucket)
	for i := range formats {
		f := formats[i]
		if !f.IsVideoCapable() {
			continue
		}
		b, ok := buckets[f.Height]
		if !ok {
			b = &bucket{}
			buckets[f.Height] = b
		}
		if f.HasAudio() {
			// last native format seen wins
			b.native = &f
			continue
		}
		if b.videoOnly == nil || f.VBR > b.videoOnly.VBR {
			b.videoOnly = &f
		}
	}

	heights := make([]int, 0, len(buckets))
	for h := range buckets {
		heights = append(heights, h)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(heights)))

	out := make(Ladder, 0, len(heights))
	for _, h := range heights {
		out = append(out, buildQuality(h, buckets[h], bestAudio))
	}
	return out
}

func buildQuality(height int, b *bucket, bestAudio *Format) Quality {
	preferred := b.videoOnly
	native := b.native != nil
	if native {
		preferred = b.native
	}

	q := Quality{
		Height:         height,
		FormatID:       preferred.ID,
		Ext:            preferred.Ext,
		Filesize:       preferred.Filesize,
		FPS:            preferred.FPS,
		VCodec:         preferred.VCodec,
		ACodec:         preferred.ACodec,
		NativeCombined: native,
	}
	if q.Ext == "" {
		q.Ext = DefaultContainer
	}
	if !native && bestAudio != nil {
		q.NeedsMerging = true
		q.BestAudioFormatID = bestAudio.ID
	}
	return q
}

// selectBestAudio returns the audio-only format with the highest audio bitrate,
// or nil when there is none. The first of equal bitrates wins.
func selectBestAudio(formats []Format) *Format {
	var best *Format
	for i := range formats {
		f := formats[i]
		if !f.IsAudioOnly() {
			continue
		}
		if best == nil || f.ABR > best.ABR {
			best = &f
		}
	}
	return best
}

// Best returns the highest rung.
func (l Ladder) Best() (Quality, bool) {
	if len(l) == 0 {
		return Quality{}, false
	}
	return l[0], true
}

// BestNative returns the highest rung that needs no merge step.
func (l Ladder) BestNative() (Quality, bool) {
	for _, q := range l {
		if q.NativeCombined {
			return q, true
		}
	}
	return Quality{}, false
}

// ByHeight returns the rung with exactly the given height.
func (l Ladder) ByHeight(height int) (Quality, bool) {
	for _, q := range l {
		if q.Height == height {
			return q, true
		}
	}
	return Quality{}, false
}

// All returns a copy of the full ladder.
func (l Ladder) All() []Quality {
	return append([]Quality(nil), l...)
}

// Native returns the natively combined rungs, preserving order.
func (l Ladder) Native() []Quality {
	return l.filter(func(q Quality) bool { return q.NativeCombined })
}

// NeedingMerge returns the rungs that require a merge step, preserving order.
func (l Ladder) NeedingMerge() []Quality {
	return l.filter(func(q Quality) bool { return q.NeedsMerging })
}

// VideoOnly returns every rung that is not natively combined, whether or not
// an audio stream is available to merge with it.
func (l Ladder) VideoOnly() []Quality {
	return l.filter(func(q Quality) bool { return !q.NativeCombined })
}

func (l Ladder) filter(keep func(Quality) bool) []Quality {
	var out []Quality
	for _, q := range l {
		if keep(q) {
			out = append(out, q)
		}
	}
	return out
}
