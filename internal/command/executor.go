// Package command executes the shell command bound to a recognized gesture.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"
)

// DefaultTimeout bounds a single command execution.
const DefaultTimeout = 5 * time.Second

// ErrEmptyCommand is returned when there is nothing to execute.
var ErrEmptyCommand = errors.New("empty command")

// Executor runs host commands with a timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor with the given timeout. Non-positive
// timeouts fall back to the default.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Execute runs the command through the platform shell and returns its
// stdout. Stderr is folded into the error on failure.
func (e *Executor) Execute(ctx context.Context, command string) (string, error) {
	if command == "" {
		return "", ErrEmptyCommand
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("command timeout after %v", e.timeout)
	}

	if err != nil {
		if s := stderr.String(); s != "" {
			return "", fmt.Errorf("command failed: %w, stderr: %s", err, s)
		}
		return "", fmt.Errorf("command failed: %w", err)
	}

	return stdout.String(), nil
}
