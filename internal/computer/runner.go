// Copyright 2025 Tomas Cupr
//
// External process execution

package computer

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Runner executes an external command and captures both output streams.
// The dispatcher depends on this narrow interface so tests can substitute a
// fake; the default implementation shells out via os/exec.
//
// A non-zero exit is not an error at this layer: the exit code is returned
// and stderr flows into the caller's result envelope. err is non-nil only
// when the process could not be started or the context was cancelled.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (exitCode int, stdout, stderr string, err error)
}

type execRunner struct{}

// NewExecRunner returns the os/exec backed Runner.
func NewExecRunner() Runner { return execRunner{} }

func (execRunner) Run(ctx context.Context, name string, args ...string) (int, string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return exitErr.ExitCode(), stdout.String(), stderr.String(), nil
		}
		return -1, stdout.String(), stderr.String(), err
	}
	return 0, stdout.String(), stderr.String(), nil
}
