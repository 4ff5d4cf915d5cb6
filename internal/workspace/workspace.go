// Package workspace describes the on-disk layout of the data directory:
// per-scope memory files and persona overrides.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is the data directory of one bot instance.
type Workspace struct {
	Root string
}

// New creates a Workspace rooted at dir.
func New(root string) *Workspace {
	return &Workspace{Root: root}
}

// EnsureStructure creates the directory tree if it does not exist.
func (w *Workspace) EnsureStructure() error {
	for _, dir := range []string{w.Root, w.MemoryDir(), w.PersonaDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("workspace: creating %s: %w", dir, err)
		}
	}
	return nil
}

// MemoryDir holds the durable history files, one <scope>.json per scope.
func (w *Workspace) MemoryDir() string {
	return filepath.Join(w.Root, "memory")
}

// PersonaDir holds the persona override files, one <scope>.json per scope.
func (w *Workspace) PersonaDir() string {
	return filepath.Join(w.Root, "personality")
}
