// Package lock serializes engine invocations across processes with an
// exclusive advisory lock on a well-known file.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"
)

// retryDelay is how often a waiting Acquire retries the lock.
const retryDelay = 100 * time.Millisecond

// Error reports a lock file that could not be created or locked.
type Error struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("lock %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Handle is ownership of an acquired lock. Release it exactly once, usually
// with defer right after Acquire.
type Handle struct {
	path  string
	fl    *flock.Flock
	since time.Time
	once  sync.Once
}

// Acquire blocks until the exclusive lock at path is held or ctx is done.
// The parent directory is created if needed.
func Acquire(ctx context.Context, path string) (*Handle, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return nil, &Error{Path: path, Cause: err}
	}

	fl := flock.New(path)
	start := time.Now()
	locked, err := fl.TryLockContext(ctx, retryDelay)
	if err == nil && !locked {
		err = ctx.Err()
	}
	if err != nil {
		log.Debug("Gave up waiting for engine lock", "path", path, "waited", time.Since(start).Round(time.Millisecond), "err", err)
		_ = fl.Close()
		return nil, &Error{Path: path, Cause: err}
	}

	if waited := time.Since(start); waited > time.Second {
		log.Info("Acquired engine lock after waiting", "path", path, "waited", waited.Round(time.Millisecond))
	} else {
		log.Debug("Acquired engine lock", "path", path)
	}

	return &Handle{path: path, fl: fl, since: time.Now()}, nil
}

// Path returns the lock file path.
func (h *Handle) Path() string {
	return h.path
}

// Release gives up the lock and closes the underlying file. Calling it more
// than once is a no-op.
func (h *Handle) Release() error {
	var err error
	h.once.Do(func() {
		err = h.fl.Unlock()
		log.Debug("Released engine lock", "path", h.path, "held", time.Since(h.since).Round(time.Millisecond))
	})
	if err != nil {
		return &Error{Path: h.path, Cause: err}
	}
	return nil
}
