package util

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// SafeCmdExecution executes the given executable after verifying its file
// permissions, killing it when the timeout is exceeded.
func SafeCmdExecution(executable string, args []string, timeout time.Duration) (string, error) {
	if _, err := CheckFilePermissionsForExecution(executable); err != nil {
		return "", fmt.Errorf("cannot execute %s: %s", executable, err)
	}
	return execWithTimeout(timeout, executable, args...)
}

// ExecShellCommand runs the given command through a shell, so the command
// may use globs and pipes. Used for operator supplied commands (report,
// trigger actions, hddtemp and command sensors).
func ExecShellCommand(shellCommand string, timeout time.Duration) (string, error) {
	return execWithTimeout(timeout, "sh", "-c", shellCommand)
}

func execWithTimeout(timeout time.Duration, executable string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, executable, args...)
	out, err := cmd.Output()

	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command timed out: %s", executable)
	}

	if err != nil {
		return "", fmt.Errorf("command failed to execute: %s: %w", executable, err)
	}

	strout := string(out)
	strout = strings.Trim(strout, "\n")

	return strout, nil
}
