// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media models a remote video and retrieves its metadata through the
// extraction tool.
package media

import (
	"sync"

	"github.com/ManuGH/ytdlq/internal/ladder"
)

// DefaultTitle is used when the extraction tool reports no title.
const DefaultTitle = "Unknown Title"

// Metadata is the descriptive part of a Source, populated once by Fetch.
type Metadata struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Duration    float64       `json:"duration_seconds"`
	Thumbnail   string        `json:"thumbnail,omitempty"`
	Uploader    string        `json:"uploader,omitempty"`
	Ladder      ladder.Ladder `json:"ladder"`
}

// Source is a remote video identified by URL. Its metadata is written at most
// once and is read-only afterwards.
type Source struct {
	url string

	// fetchMu serializes fetch attempts so a Source spawns at most one
	// metadata process at a time.
	fetchMu sync.Mutex

	mu      sync.RWMutex
	fetched bool
	meta    Metadata
}

// NewSource creates an unfetched Source.
func NewSource(url string) *Source {
	return &Source{url: url}
}

// NewFetchedSource creates a Source whose metadata is already known.
func NewFetchedSource(url string, md Metadata) *Source {
	s := &Source{url: url}
	s.populate(md)
	return s
}

func (s *Source) URL() string { return s.url }

// Fetched reports whether metadata has been populated.
func (s *Source) Fetched() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetched
}

// Metadata returns a copy of the populated metadata, zero before Fetch.
func (s *Source) Metadata() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md := s.meta
	md.Ladder = s.meta.Ladder.All()
	return md
}

func (s *Source) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta.Title
}

// Ladder returns a copy of the quality ladder.
func (s *Source) Ladder() ladder.Ladder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta.Ladder.All()
}

func (s *Source) populate(md Metadata) {
	if md.Title == "" {
		md.Title = DefaultTitle
	}
	md.Ladder = md.Ladder.All()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetched {
		return
	}
	s.meta = md
	s.fetched = true
}
