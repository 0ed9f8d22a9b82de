package session

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cadenza-ai/cadenza/internal/types"
	"github.com/cadenza-ai/cadenza/internal/util"
)

// Manager owns the session store directory and at most one active session.
// Every mutation is persisted before the mutating call returns, so a
// reload after an unclean shutdown reconstructs the pre-crash state with
// no unit double-counted.
type Manager struct {
	mu          sync.Mutex
	sessionsDir string
	active      *Session
}

// NewManager creates a session manager persisting into sessionsDir.
func NewManager(sessionsDir string) (*Manager, error) {
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, types.WrapError(types.SESSION_STORE_FAILED, "cannot create sessions directory", err)
	}
	return &Manager{sessionsDir: sessionsDir}, nil
}

// SessionsDir returns the directory session files are stored in.
func (m *Manager) SessionsDir() string {
	return m.sessionsDir
}

// Active returns the currently loaded session, or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// CreateSession starts a new build session over units and persists it
// immediately. The new session becomes the active one.
func (m *Manager) CreateSession(units []string, config map[string]string, continueOnError bool) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := &Session{
		SessionID:       types.NewID(),
		StartTime:       time.Now().UTC(),
		UnitsToBuild:    append([]string(nil), units...),
		Config:          config,
		Results:         []StepResult{},
		Completed:       []string{},
		Failed:          []string{},
		Skipped:         []string{},
		ContinueOnError: continueOnError,
	}

	if err := m.persistLocked(sess); err != nil {
		return nil, err
	}

	m.active = sess
	slog.Info("build session created",
		"session_id", sess.SessionID, "units", len(units), "continue_on_error", continueOnError)
	return sess, nil
}

// AddResult records a terminal result for one unit and persists the full
// session before returning. Results are idempotent per unit: a second
// result for an already-resolved unit is rejected with
// UNIT_ALREADY_RESOLVED rather than silently merged.
func (m *Manager) AddResult(result StepResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.active
	if sess == nil {
		return types.NewError(types.SESSION_NOT_FOUND, "no active session")
	}
	if sess.Ended() {
		return types.NewErrorf(types.SESSION_STORE_FAILED, "session %s is completed and immutable", sess.SessionID)
	}
	if !result.Status.Terminal() {
		return types.NewErrorf(types.RESULT_NOT_TERMINAL, "result status %q is not terminal", result.Status)
	}
	if !sess.HasUnit(result.UnitName) {
		return types.NewErrorf(types.UNIT_NOT_IN_SESSION, "unit %q is not part of session %s", result.UnitName, sess.SessionID)
	}
	if sess.Resolved(result.UnitName) {
		return types.NewErrorf(types.UNIT_ALREADY_RESOLVED, "unit %q already has a result in session %s", result.UnitName, sess.SessionID)
	}

	result.OutputLog = truncateLog(result.OutputLog)
	sess.Results = append(sess.Results, result)

	switch result.Status {
	case StatusSuccess:
		sess.Completed = append(sess.Completed, result.UnitName)
	case StatusFailed:
		sess.Failed = append(sess.Failed, result.UnitName)
	case StatusSkipped:
		sess.Skipped = append(sess.Skipped, result.UnitName)
	}

	if err := m.persistLocked(sess); err != nil {
		return err
	}

	slog.Debug("unit result recorded",
		"session_id", sess.SessionID, "unit", result.UnitName,
		"status", result.Status, "duration", result.Duration)
	return nil
}

// MarkCompleted seals the active session: EndTime and TotalDuration are
// set and the session becomes immutable.
func (m *Manager) MarkCompleted() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.active
	if sess == nil {
		return types.NewError(types.SESSION_NOT_FOUND, "no active session")
	}
	if sess.Ended() {
		return nil
	}

	now := time.Now().UTC()
	sess.EndTime = &now
	sess.TotalDuration = now.Sub(sess.StartTime)

	if err := m.persistLocked(sess); err != nil {
		return err
	}

	slog.Info("build session completed",
		"session_id", sess.SessionID,
		"completed", len(sess.Completed), "failed", len(sess.Failed), "skipped", len(sess.Skipped),
		"duration", sess.TotalDuration)
	return nil
}

// Resume returns the units still to build for the active session. With an
// eligible fromUnit execution resumes there; otherwise from the first
// unresolved unit. When the session already failed and was configured to
// stop on error, Resume returns nothing: the failure needs explicit
// attention before any more units run.
func (m *Manager) Resume(fromUnit string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.active
	if sess == nil {
		return nil, types.NewError(types.SESSION_NOT_FOUND, "no active session")
	}

	if !sess.ContinueOnError && sess.HasFailed() {
		return nil, nil
	}

	if fromUnit != "" && (!sess.HasUnit(fromUnit) || sess.Resolved(fromUnit)) {
		slog.Warn("cannot resume from requested unit, starting from first unresolved",
			"session_id", sess.SessionID, "unit", fromUnit)
		fromUnit = ""
	}

	return sess.Remaining(fromUnit), nil
}

// LoadSession reads a persisted session by id and makes it the active one.
func (m *Manager) LoadSession(sessionID types.ID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.sessionPath(sessionID)
	var sess Session
	if err := util.ReadJSONFile(path, &sess); err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewErrorf(types.SESSION_NOT_FOUND, "session %s not found in %s", sessionID, m.sessionsDir)
		}
		return nil, types.WrapError(types.SESSION_STORE_FAILED, "cannot load session "+sessionID.String(), err)
	}

	// Validate loaded state: missing collections become explicit empties
	// rather than nil surprises downstream.
	if sess.Results == nil {
		sess.Results = []StepResult{}
	}
	if sess.Completed == nil {
		sess.Completed = []string{}
	}
	if sess.Failed == nil {
		sess.Failed = []string{}
	}
	if sess.Skipped == nil {
		sess.Skipped = []string{}
	}

	m.active = &sess
	return &sess, nil
}

// ListSessions returns the ids of all persisted sessions.
func (m *Manager) ListSessions() ([]types.ID, error) {
	entries, err := os.ReadDir(m.sessionsDir)
	if err != nil {
		return nil, types.WrapError(types.SESSION_STORE_FAILED, "cannot list sessions", err)
	}

	var ids []types.ID
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := types.ParseID(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CleanupOlderThan removes session files whose mtime is older than maxAge
// and returns how many were removed.
func (m *Manager) CleanupOlderThan(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.sessionsDir)
	if err != nil {
		return 0, types.WrapError(types.SESSION_STORE_FAILED, "cannot list sessions", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(m.sessionsDir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (m *Manager) sessionPath(sessionID types.ID) string {
	return filepath.Join(m.sessionsDir, sessionID.String()+".json")
}

func (m *Manager) persistLocked(sess *Session) error {
	if err := util.WriteJSONFile(m.sessionPath(sess.SessionID), sess); err != nil {
		return types.WrapError(types.SESSION_STORE_FAILED, "cannot persist session "+sess.SessionID.String(), err)
	}
	return nil
}
