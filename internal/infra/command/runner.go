// Package command runs the external typesetting and print-queue tools.
package command

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"labelprint/internal/domain"
	"labelprint/internal/infra/logging"
)

const (
	maxOutputBytes = 4096
	waitDelay      = 2 * time.Second
)

// run executes bin with args under a timeout and maps every failure to a
// *domain.StageError for stage. An empty dir keeps the caller's working directory.
func run(ctx context.Context, stage domain.Stage, dir string, timeout time.Duration, bin string, args ...string) error {
	tool := filepath.Base(bin)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	// Children that inherit the pipes must not keep Wait blocked after a kill.
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debug("Running external tool", "stage", string(stage), "bin", bin, "args", args, "dir", dir)

	start := time.Now()
	err := cmd.Run()
	if err == nil {
		logging.Debug("External tool finished", "stage", string(stage), "tool", tool, "duration", time.Since(start).String())
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.StageError{Stage: stage, Tool: tool, Timeout: true, Limit: timeout, Err: err}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		return &domain.StageError{
			Stage:    stage,
			Tool:     tool,
			Exited:   true,
			ExitCode: exitErr.ExitCode(),
			Output:   diagnostics(stderr.Bytes(), stdout.Bytes()),
			Err:      err,
		}
	}

	return &domain.StageError{Stage: stage, Tool: tool, Output: diagnostics(stderr.Bytes(), stdout.Bytes()), Err: err}
}

// diagnostics prefers stderr, falls back to stdout, and caps the length
// without splitting a UTF-8 sequence.
func diagnostics(stderr, stdout []byte) string {
	out := strings.TrimSpace(string(stderr))
	if out == "" {
		out = strings.TrimSpace(string(stdout))
	}
	if len(out) > maxOutputBytes {
		cut := maxOutputBytes
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut] + "..."
	}
	return out
}
