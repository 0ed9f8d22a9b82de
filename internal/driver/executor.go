package driver

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/cadenza-ai/cadenza/internal/plan"
)

// ExecResult is the raw outcome of running one build unit's command.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Executor runs a build unit's command. Implementations must honor ctx
// cancellation and report failures through the exit code rather than an
// error where possible; an error return means the command could not be
// run at all.
type Executor interface {
	Run(ctx context.Context, unit plan.Unit) (*ExecResult, error)
}

// ExecExecutor runs unit commands as local subprocesses.
type ExecExecutor struct {
	// WorkDir is the working directory for unit commands. Empty means
	// the current directory.
	WorkDir string
}

// Run executes the unit's command via os/exec, capturing output. A
// non-zero exit or a context timeout surfaces as a populated ExecResult,
// never a bare error, so the caller can record a terminal failed result.
func (e *ExecExecutor) Run(ctx context.Context, unit plan.Unit) (*ExecResult, error) {
	if len(unit.Command) == 0 {
		return nil, errors.New("unit has no command")
	}

	cmd := exec.CommandContext(ctx, unit.Command[0], unit.Command[1:]...)
	cmd.Dir = e.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if ctx.Err() != nil {
			result.ExitCode = -1
			// Keep whatever the unit wrote before the interrupt.
			if result.Stderr != "" && !strings.HasSuffix(result.Stderr, "\n") {
				result.Stderr += "\n"
			}
			result.Stderr += ctx.Err().Error()
			return result, nil
		}
		return nil, err
	}
	return result, nil
}
