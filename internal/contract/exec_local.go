package contract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// LocalExecutor runs host processes with an optional per-invocation timeout.
type LocalExecutor struct {
	Timeout time.Duration
}

var _ Executor = &LocalExecutor{} // Compile-time check

// NewLocalExecutor creates an executor. A zero timeout means no limit.
func NewLocalExecutor(timeout time.Duration) *LocalExecutor {
	return &LocalExecutor{Timeout: timeout}
}

// Run executes argv in dir and waits for it to finish.
func (e *LocalExecutor) Run(ctx context.Context, dir string, argv []string) ExecResult {
	if len(argv) == 0 {
		return ExecResult{ExitCode: -1, Err: errors.New("empty command")}
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) && e.Timeout > 0 {
		res.ExitCode = -1
		res.Err = fmt.Errorf("timed out after %s", e.Timeout)
		return res
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode == -1 && ctx.Err() != nil {
			res.Err = ctx.Err()
		}
		return res
	}
	res.ExitCode = -1
	res.Err = err
	return res
}

// Text returns the error text for a finished process: stdout when it has
// content, otherwise stderr. Spawn failures report the OS error message.
func (r ExecResult) Text() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if strings.TrimSpace(r.Stdout) != "" {
		return r.Stdout
	}
	return r.Stderr
}

// Failed reports whether the process should count as a tool failure.
func (r ExecResult) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}
