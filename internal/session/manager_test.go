package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenza-ai/cadenza/internal/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	return m
}

func terminalResult(unit string, status Status) StepResult {
	start := time.Now().UTC().Add(-time.Second)
	end := time.Now().UTC()
	return StepResult{
		UnitName:  unit,
		Status:    status,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
	}
}

func TestCreateSession(t *testing.T) {
	m := newTestManager(t)

	sess, err := m.CreateSession([]string{"core", "draw", "gui"}, map[string]string{"mode": "debug"}, true)
	require.NoError(t, err)

	require.NoError(t, sess.SessionID.Validate())
	assert.Equal(t, "core", sess.NextUnit())
	assert.False(t, sess.IsComplete())
	assert.False(t, sess.HasFailed())

	// Persisted immediately: reloadable before any result lands.
	reloaded, err := m.LoadSession(sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, sess.UnitsToBuild, reloaded.UnitsToBuild)
}

func TestAddResult_UpdatesSets(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession([]string{"core", "draw", "gui"}, nil, true)
	require.NoError(t, err)

	require.NoError(t, m.AddResult(terminalResult("core", StatusSuccess)))
	require.NoError(t, m.AddResult(terminalResult("draw", StatusFailed)))
	require.NoError(t, m.AddResult(terminalResult("gui", StatusSkipped)))

	assert.Equal(t, []string{"core"}, sess.Completed)
	assert.Equal(t, []string{"draw"}, sess.Failed)
	assert.Equal(t, []string{"gui"}, sess.Skipped)
	assert.True(t, sess.IsComplete())
	assert.True(t, sess.HasFailed())
	assert.Empty(t, sess.NextUnit())
}

func TestAddResult_DuplicateRejected(t *testing.T) {
	m := newTestManager(t)
	_, err := m.CreateSession([]string{"core"}, nil, true)
	require.NoError(t, err)

	require.NoError(t, m.AddResult(terminalResult("core", StatusSuccess)))

	err = m.AddResult(terminalResult("core", StatusFailed))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.UNIT_ALREADY_RESOLVED, "")))

	// The first result stands: the unit stays in exactly one set.
	sess := m.Active()
	assert.Equal(t, []string{"core"}, sess.Completed)
	assert.Empty(t, sess.Failed)
}

func TestAddResult_UnknownUnitRejected(t *testing.T) {
	m := newTestManager(t)
	_, err := m.CreateSession([]string{"core"}, nil, true)
	require.NoError(t, err)

	err = m.AddResult(terminalResult("nonexistent", StatusSuccess))
	assert.Equal(t, types.UNIT_NOT_IN_SESSION, types.CodeOf(err))
}

func TestAddResult_NonTerminalRejected(t *testing.T) {
	m := newTestManager(t)
	_, err := m.CreateSession([]string{"core"}, nil, true)
	require.NoError(t, err)

	err = m.AddResult(terminalResult("core", StatusRunning))
	assert.Equal(t, types.RESULT_NOT_TERMINAL, types.CodeOf(err))
	err = m.AddResult(terminalResult("core", StatusPending))
	assert.Equal(t, types.RESULT_NOT_TERMINAL, types.CodeOf(err))
}

func TestAddResult_TruncatesOutputLog(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession([]string{"core"}, nil, true)
	require.NoError(t, err)

	result := terminalResult("core", StatusSuccess)
	result.OutputLog = strings.Repeat("x", OutputLogCap+500)
	require.NoError(t, m.AddResult(result))

	assert.Len(t, sess.Results[0].OutputLog, OutputLogCap)
}

func TestResume_AfterCrash(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir)
	require.NoError(t, err)
	sess, err := m.CreateSession([]string{"a", "b", "c"}, nil, true)
	require.NoError(t, err)
	require.NoError(t, m.AddResult(terminalResult("a", StatusSuccess)))
	require.NoError(t, m.AddResult(terminalResult("b", StatusFailed)))

	// Simulate an abrupt stop: a fresh manager reloads from disk.
	m2, err := NewManager(dir)
	require.NoError(t, err)
	reloaded, err := m2.LoadSession(sess.SessionID)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, reloaded.Completed)
	assert.Equal(t, []string{"b"}, reloaded.Failed)

	remaining, err := m2.Resume("")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, remaining)
}

func TestResume_StopOnErrorReturnsNothing(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir)
	require.NoError(t, err)
	sess, err := m.CreateSession([]string{"a", "b", "c"}, nil, false)
	require.NoError(t, err)
	require.NoError(t, m.AddResult(terminalResult("a", StatusSuccess)))
	require.NoError(t, m.AddResult(terminalResult("b", StatusFailed)))

	m2, err := NewManager(dir)
	require.NoError(t, err)
	reloaded, err := m2.LoadSession(sess.SessionID)
	require.NoError(t, err)

	remaining, err := m2.Resume("")
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.True(t, reloaded.HasFailed())
}

func TestResume_FromUnit(t *testing.T) {
	m := newTestManager(t)
	_, err := m.CreateSession([]string{"a", "b", "c", "d"}, nil, true)
	require.NoError(t, err)
	require.NoError(t, m.AddResult(terminalResult("a", StatusSuccess)))
	require.NoError(t, m.AddResult(terminalResult("c", StatusSuccess)))

	// Eligible from-unit: resume there, skipping later resolved units.
	remaining, err := m.Resume("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, remaining)

	// Resolved from-unit falls back to first unresolved.
	remaining, err = m.Resume("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, remaining)

	// Unknown from-unit falls back too.
	remaining, err = m.Resume("zzz")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, remaining)
}

func TestMarkCompleted_SealsSession(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession([]string{"core"}, nil, true)
	require.NoError(t, err)
	require.NoError(t, m.AddResult(terminalResult("core", StatusSuccess)))
	require.NoError(t, m.MarkCompleted())

	assert.True(t, sess.Ended())
	assert.NotZero(t, sess.TotalDuration)

	// Completed sessions reject further results.
	err = m.AddResult(terminalResult("core", StatusFailed))
	assert.Error(t, err)

	// Idempotent.
	require.NoError(t, m.MarkCompleted())
}

func TestStatusSummary(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession([]string{"a", "b", "c", "d"}, nil, true)
	require.NoError(t, err)
	require.NoError(t, m.AddResult(terminalResult("a", StatusSuccess)))
	require.NoError(t, m.AddResult(terminalResult("b", StatusFailed)))

	sum := sess.StatusSummary()
	assert.Equal(t, 4, sum.TotalUnits)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 2, sum.Remaining)
	assert.InDelta(t, 0.25, sum.SuccessRate, 1e-9)
	assert.Equal(t, "running", sum.State)
}

func TestStatusSummary_HaltedAfterStopOnErrorFailure(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession([]string{"a", "b"}, nil, false)
	require.NoError(t, err)
	require.NoError(t, m.AddResult(terminalResult("a", StatusFailed)))

	assert.Equal(t, "halted", sess.StatusSummary().State)
}

func TestListSessionsAndCleanup(t *testing.T) {
	m := newTestManager(t)

	first, err := m.CreateSession([]string{"a"}, nil, true)
	require.NoError(t, err)
	second, err := m.CreateSession([]string{"b"}, nil, true)
	require.NoError(t, err)

	ids, err := m.ListSessions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.ID{first.SessionID, second.SessionID}, ids)

	// Nothing is old enough to clean yet.
	removed, err := m.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	// Everything is older than zero age.
	removed, err = m.CleanupOlderThan(-time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	ids, err = m.ListSessions()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLoadSession_NotFound(t *testing.T) {
	m := newTestManager(t)

	_, err := m.LoadSession(types.NewID())
	assert.Equal(t, types.SESSION_NOT_FOUND, types.CodeOf(err))
}
