// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
)

// CheckFunc adapts a function to a Checker.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewCheckFunc creates a named Checker from fn.
func NewCheckFunc(name string, fn func(ctx context.Context) CheckResult) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

func (c *CheckFunc) Name() string                          { return c.name }
func (c *CheckFunc) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// ToolChecker checks that an executable can be resolved.
type ToolChecker struct {
	name     string
	binary   string
	required bool
}

// NewToolChecker creates a checker for binary. A missing optional tool only
// degrades the service.
func NewToolChecker(name, binary string, required bool) *ToolChecker {
	return &ToolChecker{name: name, binary: binary, required: required}
}

func (c *ToolChecker) Name() string { return c.name }

func (c *ToolChecker) Check(_ context.Context) CheckResult {
	path, err := exec.LookPath(c.binary)
	if err != nil {
		status := StatusDegraded
		if c.required {
			status = StatusUnhealthy
		}
		return CheckResult{Status: status, Message: c.binary, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: path}
}

// DirChecker checks that a directory exists and is writable.
type DirChecker struct {
	name string
	path string
}

// NewDirChecker creates a checker for the directory at path.
func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(_ context.Context) CheckResult {
	if err := checkWritableDir(c.path); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: c.path, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: c.path}
}

// PingChecker reports unhealthy when ping fails.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker creates a checker that calls ping.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

func checkWritableDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "stat", Path: path, Err: errNotDir}
	}
	f, err := os.CreateTemp(path, ".write_test")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}
