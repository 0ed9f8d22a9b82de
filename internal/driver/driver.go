// Package driver coordinates a build run across the ledger, session
// manager, and artifact registry: it enforces the fingerprint gate,
// holds the single-active-session lock, skips fresh artifacts, and
// records one terminal result per unit.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cadenza-ai/cadenza/internal/artifact"
	"github.com/cadenza-ai/cadenza/internal/ledger"
	"github.com/cadenza-ai/cadenza/internal/plan"
	"github.com/cadenza-ai/cadenza/internal/session"
	"github.com/cadenza-ai/cadenza/internal/types"
)

// Driver executes build plans. All collaborators are injected so the
// execution path can be tested without subprocesses.
type Driver struct {
	ledger   *ledger.Ledger
	sessions *session.Manager
	registry *artifact.Registry
	executor Executor
	runDir   string
	logger   *slog.Logger
}

// New returns a driver over the given stores. runDir holds the run lock.
func New(l *ledger.Ledger, sm *session.Manager, reg *artifact.Registry, exec Executor, runDir string) *Driver {
	return &Driver{
		ledger:   l,
		sessions: sm,
		registry: reg,
		executor: exec,
		runDir:   runDir,
		logger:   slog.Default().With("component", "driver"),
	}
}

// RunOptions controls a single RunPlan invocation.
type RunOptions struct {
	// ResumeSessionID resumes a persisted session instead of creating a
	// new one.
	ResumeSessionID types.ID
	// FromUnit is the requested resume point; ineligible values fall
	// back to the first unresolved unit.
	FromUnit string
	// Config is the build configuration recorded on a new session and
	// hashed for artifact freshness checks.
	Config map[string]string
	// ContinueOnError keeps building past failed units.
	ContinueOnError bool
}

// RunReport summarizes one RunPlan invocation.
type RunReport struct {
	SessionID types.ID
	Executed  []string
	Skipped   []string
	Failed    []string
	// Halted is set when the run stopped before processing every unit,
	// either on failure with ContinueOnError off or on a prior failed
	// session that needs attention before resuming.
	Halted bool
}

// RunPlan executes the plan's units in order. The decision fingerprint
// gate is checked first and is never bypassed: a mismatch returns
// FINGERPRINT_MISMATCH before any unit runs. Exactly one run may be
// active per run directory.
func (d *Driver) RunPlan(ctx context.Context, p *plan.Plan, opts RunOptions) (*RunReport, error) {
	lock, err := acquireRunLock(d.runDir)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	if err := p.VerifyFingerprint(d.ledger); err != nil {
		return nil, err
	}

	units, sess, err := d.prepareSession(p, opts)
	if err != nil {
		return nil, err
	}

	report := &RunReport{SessionID: sess.SessionID}
	if units == nil && !sess.IsComplete() {
		// A stop-on-error session with a recorded failure resumes to
		// nothing until the failure is dealt with.
		report.Halted = true
		report.Failed = append(report.Failed, sess.Failed...)
		return report, nil
	}

	configHash := artifact.ConfigHash(sess.Config)

	for _, name := range units {
		if ctx.Err() != nil {
			report.Halted = true
			return report, ctx.Err()
		}

		unit := p.Unit(name)
		if unit == nil {
			return report, fmt.Errorf("session unit %q is not part of plan %q", name, p.Name)
		}

		if d.unitIsFresh(unit, configHash) {
			if err := d.recordSkip(unit); err != nil {
				return report, err
			}
			report.Skipped = append(report.Skipped, name)
			continue
		}

		result, err := d.executeUnit(ctx, unit, configHash)
		if err != nil {
			return report, err
		}

		if result.Status == session.StatusFailed {
			report.Failed = append(report.Failed, name)
			if !sess.ContinueOnError {
				report.Halted = true
				d.logger.Warn("halting build run on failed unit",
					"session_id", sess.SessionID, "unit", name)
				return report, nil
			}
			continue
		}
		report.Executed = append(report.Executed, name)
	}

	if sess.IsComplete() {
		if err := d.sessions.MarkCompleted(); err != nil {
			return report, err
		}
	}
	return report, nil
}

// prepareSession creates or resumes the session and returns the units
// still to process.
func (d *Driver) prepareSession(p *plan.Plan, opts RunOptions) ([]string, *session.Session, error) {
	if !opts.ResumeSessionID.IsZero() {
		sess, err := d.sessions.LoadSession(opts.ResumeSessionID)
		if err != nil {
			return nil, nil, err
		}
		if sess.Ended() {
			return nil, nil, types.NewErrorf(types.SESSION_STORE_FAILED,
				"session %s is already completed", sess.SessionID)
		}
		units, err := d.sessions.Resume(opts.FromUnit)
		if err != nil {
			return nil, nil, err
		}
		d.logger.Info("resuming build session",
			"session_id", sess.SessionID, "remaining", len(units))
		return units, sess, nil
	}

	sess, err := d.sessions.CreateSession(p.UnitNames(), opts.Config, opts.ContinueOnError)
	if err != nil {
		return nil, nil, err
	}
	return p.UnitNames(), sess, nil
}

// unitIsFresh consults the artifact registry; units without a declared
// output always rebuild.
func (d *Driver) unitIsFresh(unit *plan.Unit, configHash string) bool {
	if unit.OutputPath == "" {
		return false
	}
	return d.registry.IsFresh(unit.OutputPath, unit.SourceFiles, configHash)
}

func (d *Driver) recordSkip(unit *plan.Unit) error {
	now := time.Now().UTC()
	d.logger.Info("skipping fresh unit", "unit", unit.Name, "output", unit.OutputPath)
	return d.sessions.AddResult(session.StepResult{
		UnitName:     unit.Name,
		Status:       session.StatusSkipped,
		StartTime:    now,
		EndTime:      now,
		ErrorMessage: "",
		OutputLog:    "artifact is fresh, skipping rebuild",
		Dependencies: unit.Dependencies,
		BuildMethod:  unit.BuildMethod,
	})
}

// executeUnit runs one unit, records its terminal result, and registers
// the produced artifact on success.
func (d *Driver) executeUnit(ctx context.Context, unit *plan.Unit, configHash string) (*session.StepResult, error) {
	start := time.Now().UTC()
	execResult, execErr := d.executor.Run(ctx, *unit)
	end := time.Now().UTC()

	result := session.StepResult{
		UnitName:     unit.Name,
		StartTime:    start,
		EndTime:      end,
		Duration:     end.Sub(start),
		Dependencies: unit.Dependencies,
		BuildMethod:  unit.BuildMethod,
	}

	switch {
	case execErr != nil:
		result.Status = session.StatusFailed
		result.ErrorMessage = execErr.Error()
	case execResult.ExitCode != 0:
		result.Status = session.StatusFailed
		result.ErrorMessage = fmt.Sprintf("exit code %d", execResult.ExitCode)
		result.OutputLog = combineOutput(execResult)
		result.Duration = execResult.Duration
	default:
		result.Status = session.StatusSuccess
		result.OutputLog = combineOutput(execResult)
		result.Duration = execResult.Duration
	}

	if err := d.sessions.AddResult(result); err != nil {
		return nil, err
	}

	d.logger.Info("unit processed",
		"unit", unit.Name, "status", result.Status, "duration", result.Duration)

	if result.Status == session.StatusSuccess && unit.OutputPath != "" {
		if _, err := d.registry.Register(unit.Name, unit.OutputPath, artifact.TypeOther,
			"", unit.BuildMethod, configHash, unit.Dependencies); err != nil {
			// The build result stands; a registry miss only costs a
			// rebuild next run.
			d.logger.Warn("failed to register artifact",
				"unit", unit.Name, "output", unit.OutputPath, "error", err)
		}
	}
	return &result, nil
}

func combineOutput(r *ExecResult) string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + strings.TrimRight(r.Stderr, "\n")
}
