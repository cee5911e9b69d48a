package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Workspace is a private temporary directory holding the WAV artifacts of
// one run. Every artifact is removed by Close, whatever happened before.
type Workspace struct {
	dir  string
	once sync.Once
}

// NewWorkspace creates a workspace under the system temp directory.
func NewWorkspace() (*Workspace, error) {
	dir := filepath.Join(os.TempDir(), "vp-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	log.Debug("Created workspace", "dir", dir)
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Part returns the artifact path for the chunk at index i.
func (w *Workspace) Part(i int) string {
	return filepath.Join(w.dir, fmt.Sprintf("part-%04d.wav", i))
}

// Merged returns the artifact path for a merged file.
func (w *Workspace) Merged() string {
	return filepath.Join(w.dir, "merged.wav")
}

// Remove deletes a single artifact. Missing files are ignored.
func (w *Workspace) Remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Debug("Failed to remove artifact", "path", path, "err", err)
	}
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	var err error
	w.once.Do(func() {
		err = os.RemoveAll(w.dir)
		log.Debug("Removed workspace", "dir", w.dir, "err", err)
	})
	return err
}
