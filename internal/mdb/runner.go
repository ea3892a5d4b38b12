// Package mdb converts a Microsoft Access database into a disposable SQLite
// store using the mdbtools command line utilities.
package mdb

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tphakala/lcbimport/internal/errors"
)

// maxStderrLen bounds how much tool stderr is kept on a ToolError.
const maxStderrLen = 4096

// ToolRunner runs an external tool to completion and returns its stdout.
type ToolRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ToolError describes a failed tool invocation.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int // -1 when the process did not start or was killed
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s failed (exit code %d): %v", e.Tool, strings.Join(e.Args, " "), e.ExitCode, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// ErrorCategory implements errors.CategorizedError.
func (e *ToolError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryCommandExecution
}

// ExecRunner runs tools as child processes.
type ExecRunner struct{}

// Run implements ToolRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // G204: tool names come from configuration, args are built here

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		toolErr := &ToolError{
			Tool:     name,
			Args:     args,
			ExitCode: -1,
			Stderr:   truncate(strings.TrimSpace(stderr.String()), maxStderrLen),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			toolErr.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			toolErr.Err = ctx.Err()
		}
		return nil, toolErr
	}

	return stdout.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
