// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package download

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const fallbackFilename = "download"

var illegalFilenameChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_",
	"/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeFilename turns a video title into a portable file base name.
func SanitizeFilename(title string) string {
	name := norm.NFC.String(title)
	name = illegalFilenameChars.Replace(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimRight(strings.TrimSpace(name), ". ")
	if name == "" {
		return fallbackFilename
	}
	return name
}
