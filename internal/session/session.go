// Package session implements the resumable build session controller: an
// ordered set of build units, per-unit results, and keep-going/resume-from
// semantics persisted after every mutation so a crash loses at most one
// in-flight unit.
package session

import (
	"time"

	"github.com/cadenza-ai/cadenza/internal/types"
)

// Status represents the execution status of a build unit or step result.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Terminal reports whether the status resolves a unit. Only terminal
// results may be recorded against a session.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusSkipped
}

// OutputLogCap bounds the per-unit output log persisted with a session,
// keeping session files reviewable even for noisy build units.
const OutputLogCap = 10000

// StepResult is the outcome of executing a single build unit.
type StepResult struct {
	UnitName     string        `json:"unit_name"`
	Status       Status        `json:"status"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     time.Duration `json:"duration"`
	ErrorMessage string        `json:"error_message,omitempty"`
	OutputLog    string        `json:"output_log,omitempty"`
	Dependencies []string      `json:"dependencies,omitempty"`
	BuildMethod  string        `json:"build_method,omitempty"`
}

// Session tracks one build run over an ordered sequence of units. A unit
// appears in exactly one of Completed/Failed/Skipped once processed. The
// session becomes immutable when EndTime is set.
type Session struct {
	SessionID       types.ID          `json:"session_id"`
	StartTime       time.Time         `json:"start_time"`
	UnitsToBuild    []string          `json:"units_to_build"`
	Config          map[string]string `json:"config,omitempty"`
	Results         []StepResult      `json:"results"`
	Completed       []string          `json:"completed"`
	Failed          []string          `json:"failed"`
	Skipped         []string          `json:"skipped"`
	ContinueOnError bool              `json:"continue_on_error"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	TotalDuration   time.Duration     `json:"total_duration,omitempty"`
}

// Resolved reports whether the unit has already reached a terminal state
// in this session.
func (s *Session) Resolved(unit string) bool {
	return containsUnit(s.Completed, unit) ||
		containsUnit(s.Failed, unit) ||
		containsUnit(s.Skipped, unit)
}

// HasUnit reports whether the unit is part of this session's build order.
func (s *Session) HasUnit(unit string) bool {
	return containsUnit(s.UnitsToBuild, unit)
}

// NextUnit returns the first unit in build order that has not yet been
// resolved, or "" when every unit is processed.
func (s *Session) NextUnit() string {
	for _, unit := range s.UnitsToBuild {
		if !s.Resolved(unit) {
			return unit
		}
	}
	return ""
}

// IsComplete reports whether every unit has been processed.
func (s *Session) IsComplete() bool {
	for _, unit := range s.UnitsToBuild {
		if !s.Resolved(unit) {
			return false
		}
	}
	return true
}

// HasFailed reports whether any unit failed. When ContinueOnError is
// false this is the driver's halt signal between units.
func (s *Session) HasFailed() bool {
	return len(s.Failed) > 0
}

// Ended reports whether the session was marked completed.
func (s *Session) Ended() bool {
	return s.EndTime != nil
}

// Remaining returns the unresolved units in build order. When fromUnit is
// a member of the build order and not yet resolved, the slice starts
// there; otherwise it starts at the first unresolved unit, which makes a
// bare resume safe after a crash. Units already resolved are never
// included, so nothing is double-counted.
func (s *Session) Remaining(fromUnit string) []string {
	start := 0
	if fromUnit != "" && s.HasUnit(fromUnit) && !s.Resolved(fromUnit) {
		for i, unit := range s.UnitsToBuild {
			if unit == fromUnit {
				start = i
				break
			}
		}
	}

	var remaining []string
	for _, unit := range s.UnitsToBuild[start:] {
		if !s.Resolved(unit) {
			remaining = append(remaining, unit)
		}
	}
	return remaining
}

// Summary is a point-in-time status report for a session.
type Summary struct {
	SessionID   types.ID      `json:"session_id"`
	StartTime   time.Time     `json:"start_time"`
	TotalUnits  int           `json:"total_units"`
	Completed   int           `json:"completed"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Remaining   int           `json:"remaining"`
	SuccessRate float64       `json:"success_rate"`
	Duration    time.Duration `json:"duration"`
	State       string        `json:"state"`
}

// StatusSummary computes aggregate progress for the session.
func (s *Session) StatusSummary() Summary {
	total := len(s.UnitsToBuild)
	processed := len(s.Completed) + len(s.Failed) + len(s.Skipped)

	duration := s.TotalDuration
	if s.EndTime == nil {
		duration = time.Since(s.StartTime)
	}

	// A stop-on-error session with a failure is halted, not running: no
	// further unit will execute until it is resumed.
	state := "running"
	switch {
	case s.IsComplete() || s.Ended():
		state = "completed"
	case s.HasFailed() && !s.ContinueOnError:
		state = "halted"
	}

	rate := 0.0
	if total > 0 {
		rate = float64(len(s.Completed)) / float64(total)
	}

	return Summary{
		SessionID:   s.SessionID,
		StartTime:   s.StartTime,
		TotalUnits:  total,
		Completed:   len(s.Completed),
		Failed:      len(s.Failed),
		Skipped:     len(s.Skipped),
		Remaining:   total - processed,
		SuccessRate: rate,
		Duration:    duration,
		State:       state,
	}
}

func containsUnit(units []string, unit string) bool {
	for _, u := range units {
		if u == unit {
			return true
		}
	}
	return false
}

// truncateLog caps a unit's output log at OutputLogCap characters.
func truncateLog(log string) string {
	runes := []rune(log)
	if len(runes) <= OutputLogCap {
		return log
	}
	return string(runes[:OutputLogCap])
}
