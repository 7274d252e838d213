// Package remedy selects and invokes remediation strategies for
// classified check failures.
package remedy

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mendloop/mendloop/internal/checks"
)

// Strategy is a remediation action bound to a failure category. Apply
// performs one attempt; it never retries internally.
type Strategy interface {
	Name() string
	Apply(ctx context.Context, failure checks.ClassifiedFailure) error
}

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// CommandStrategy runs a configured shell command as the remediation for a
// category. The same command is invoked for every failure in its category;
// it is expected to fix whatever the category's checks are complaining
// about (rerun a formatter, bump lockfiles, etc.).
type CommandStrategy struct {
	name    string
	command string
	workdir string
	timeout time.Duration
	cmd     CommandRunner
}

// NewCommandStrategy creates a CommandStrategy. A zero timeout defaults to
// 10 minutes.
func NewCommandStrategy(name, command, workdir string, timeout time.Duration, cmd CommandRunner) *CommandStrategy {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &CommandStrategy{
		name:    name,
		command: command,
		workdir: workdir,
		timeout: timeout,
		cmd:     cmd,
	}
}

func (s *CommandStrategy) Name() string {
	return s.name
}

// Apply runs the strategy command once. A non-zero exit is an error whose
// message carries the tail of stderr for the remediation record.
func (s *CommandStrategy) Apply(ctx context.Context, failure checks.ClassifiedFailure) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, stderr, exitCode, err := s.cmd.Run(ctx, s.workdir, s.command)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("strategy %q timed out after %s", s.name, s.timeout)
		}
		return fmt.Errorf("strategy %q: %w", s.name, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("strategy %q exited %d: %s", s.name, exitCode, tail(stderr, 300))
	}
	return nil
}

// tail returns the last n bytes of s, trimmed.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n:]
}
