package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/ytclab/ytcbot/internal/atomicfile"
	"github.com/ytclab/ytcbot/internal/scope"
)

// FileLog stores each scope's log as a JSON array in <dir>/<scope>.json.
type FileLog struct {
	dir    string
	logger *slog.Logger
}

var _ Log = (*FileLog)(nil)

// NewFileLog creates a FileLog rooted at dir. The directory is created on
// first write.
func NewFileLog(dir string, logger *slog.Logger) *FileLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileLog{dir: dir, logger: logger.With("component", "memory.file")}
}

// Dir returns the log directory.
func (f *FileLog) Dir() string { return f.dir }

// Append implements Log. An unreadable existing file is logged and
// replaced; losing a corrupt log is preferred over refusing new turns.
func (f *FileLog) Append(_ context.Context, scopeID string, turn Turn, max int) error {
	path, err := f.path(scopeID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	turns, err := f.load(path)
	if err != nil {
		f.logger.Error("existing memory log unreadable, starting a new one",
			"scope", scopeID, "path", path, "error", err)
		turns = nil
	}

	turns = append(turns, turn)
	if max > 0 && len(turns) > max {
		turns = turns[len(turns)-max:]
	}

	if err := atomicfile.WriteJSON(path, turns); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return nil
}

// Recent implements Log.
func (f *FileLog) Recent(_ context.Context, scopeID string, n int) ([]Turn, error) {
	path, err := f.path(scopeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}
	turns, err := f.load(path)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

// Delete implements Log.
func (f *FileLog) Delete(_ context.Context, scopeID string) (bool, error) {
	path, err := f.path(scopeID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	err = os.Remove(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
}

// Inspect implements Log.
func (f *FileLog) Inspect(_ context.Context, scopeID string) (LogInfo, error) {
	path, err := f.path(scopeID)
	if err != nil {
		return LogInfo{}, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}
	info := LogInfo{Backend: "file", Location: path, Container: f.dir}

	if st, err := os.Stat(path); err == nil {
		info.Exists = true
		info.Size = st.Size()
		if turns, err := f.load(path); err == nil {
			info.Turns = len(turns)
		}
	}

	entries, err := os.ReadDir(f.dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return info, fmt.Errorf("%w: listing %s: %w", ErrStorageRead, f.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := scope.FromFileName(e.Name()); ok {
			info.Scopes = append(info.Scopes, id)
		}
	}
	slices.Sort(info.Scopes)
	return info, nil
}

func (f *FileLog) path(scopeID string) (string, error) {
	if err := scope.Validate(scopeID); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, scope.FileName(scopeID)), nil
}

// load returns nil, nil for a missing file.
func (f *FileLog) load(path string) ([]Turn, error) {
	var turns []Turn
	if err := atomicfile.ReadJSON(path, &turns); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}
	return turns, nil
}
