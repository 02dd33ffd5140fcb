// internal/executor/executor.go
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const defaultTimeout = 30 * time.Second // Upper bound for commands run without a deadline

// ErrTimeout is returned when the command was killed because its context deadline passed.
var ErrTimeout = errors.New("command timed out")

// Runner executes a short-lived command and returns its captured output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, name string, args ...string) (string, string, error)

func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	return f(ctx, name, args...)
}

// OSRunner runs commands with os/exec.
type OSRunner struct{}

// Default is the Runner used when callers do not inject one.
var Default Runner = OSRunner{}

// Run executes name with args and returns stdout, stderr and an error that
// wraps *exec.ExitError for non-zero exits or ErrTimeout on deadline.
func (OSRunner) Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error) {
	// Add timeout to context if not already present
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	commandString := strings.TrimSpace(fmt.Sprintf("%s %s", name, strings.Join(args, " ")))
	cmd := exec.CommandContext(ctx, name, args...)
	// Grandchildren holding the pipes open must not outlive the deadline.
	cmd.WaitDelay = time.Second

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	log.Debug("Executing command", "command", commandString)

	startTime := time.Now()
	err = cmd.Run()
	duration := time.Since(startTime)

	stdout = outBuf.String()
	stderr = errBuf.String()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Debug("Command timed out", "duration", duration, "command", commandString)
		return stdout, stderr, fmt.Errorf("%s: %w after %s", name, ErrTimeout, duration)
	}

	if err != nil {
		log.Debug("Command failed",
			"command", commandString,
			"duration", duration,
			"error", err,
			"stderr", stderr,
		)
		return stdout, stderr, fmt.Errorf("%s failed (duration: %s): %w", name, duration, err)
	}

	log.Debug("Command successful",
		"command", commandString,
		"duration", duration,
		"stdout_len", len(stdout),
		"stderr_len", len(stderr),
	)
	return stdout, stderr, nil
}
