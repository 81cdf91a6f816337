// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ytdlp

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"

	"github.com/ManuGH/ytdlq/internal/media"
)

// DefaultBinary is looked up on PATH when no explicit binary is configured.
const DefaultBinary = "yt-dlp"

// spawnError maps a failed cmd.Start to the error taxonomy.
func spawnError(binary string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return &media.ToolNotFoundError{Tool: binary, Err: err}
	}
	return fmt.Errorf("start %s: %w", binary, err)
}
