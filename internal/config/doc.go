// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads ytdlq settings with precedence
// environment > YAML file > defaults, and validates the result.
//
// Files:
//   - types.go: FileConfig (YAML shape) and AppConfig (resolved values)
//   - loader.go: Loader and the merge steps
//   - env.go: YTDLQ_* environment parsing
//   - validation.go: Validate
//   - muxer.go: muxer (ffmpeg) location resolution
//   - manager.go: atomic persistence for `ytdlq config init`
package config
