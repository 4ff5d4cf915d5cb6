// Package core provides the module system that ytcbot is assembled from:
// channels, model providers, durable memory backends and the HTTP gateway
// all register themselves here and share resources through AppContext.
package core

// ModuleID identifies a module, namespaced by a dot (e.g. "provider.gemini").
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			return string(id[:i])
		}
	}
	return string(id)
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is implemented by every pluggable component.
type Module interface {
	ModuleInfo() ModuleInfo
}
