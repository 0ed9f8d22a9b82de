package driver

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/cadenza-ai/cadenza/internal/types"
)

// runLock is an exclusive flock held for the duration of a build run. The
// file descriptor must stay open while the lock is held; the OS releases
// the lock automatically if the process dies, so a crashed run never
// wedges the next one.
type runLock struct {
	file *os.File
}

// acquireRunLock takes the single-active-session lock under runDir. A
// lock already held by another process fails with SESSION_ACTIVE.
func acquireRunLock(runDir string) (*runLock, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	path := filepath.Join(runDir, "build.lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, types.NewErrorf(types.SESSION_ACTIVE,
			"another build session holds %s", path)
	}
	return &runLock{file: f}, nil
}

// release drops the lock and closes the file.
func (l *runLock) release() {
	if l == nil || l.file == nil {
		return
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}
