package memory

import "context"

// Log is a durable, per-scope turn log. Store serializes calls per scope,
// so implementations only need to be safe across different scopes and
// across processes when they share storage.
type Log interface {
	// Append adds turn to the scope's log and drops the oldest turns so
	// that at most max remain. When the existing log cannot be read the
	// implementation may start over from an empty log.
	Append(ctx context.Context, scope string, turn Turn, max int) error

	// Recent returns the last n turns, oldest first. n <= 0 means all.
	// An absent log yields nil, nil.
	Recent(ctx context.Context, scope string, n int) ([]Turn, error)

	// Delete removes the scope's log and reports whether one existed.
	Delete(ctx context.Context, scope string) (bool, error)

	// Inspect describes where and how the scope's log is stored.
	Inspect(ctx context.Context, scope string) (LogInfo, error)
}

// LogInfo is debug information about one scope's durable log.
type LogInfo struct {
	Backend  string `json:"backend"`
	Location string `json:"location"`
	Exists   bool   `json:"exists"`
	// Size is in bytes for file-backed logs, zero otherwise.
	Size  int64 `json:"size"`
	Turns int   `json:"turns"`
	// Container is the directory or table holding every scope's log.
	Container string `json:"container"`
	// Scopes lists every scope with a durable log.
	Scopes []string `json:"scopes"`
}

// ServiceLog is the service name under which a storage module registers
// its Log. When no module provides one the file-backed log is used.
const ServiceLog = "memory.log"
