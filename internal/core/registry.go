package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// registry holds the module constructors compiled into the binary. Entries
// are added from init() and read when a config is loaded, so lookups take
// the read lock only.
type registry struct {
	mu   sync.RWMutex
	byID map[ModuleID]ModuleInfo
}

var compiled = &registry{byID: map[ModuleID]ModuleInfo{}}

func (r *registry) add(info ModuleInfo) error {
	switch {
	case info.ID == "":
		return fmt.Errorf("core: module registered with an empty ID")
	case info.New == nil:
		return fmt.Errorf("core: module %s has no constructor", info.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byID[info.ID]; dup {
		return fmt.Errorf("core: module %s registered twice", info.ID)
	}
	r.byID[info.ID] = info
	return nil
}

// list returns the entries accepted by keep, ordered by ID.
func (r *registry) list(keep func(ModuleID) bool) []ModuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ModuleInfo
	for _, id := range slices.Sorted(maps.Keys(r.byID)) {
		if keep == nil || keep(id) {
			out = append(out, r.byID[id])
		}
	}
	return out
}

// RegisterModule makes a module available to configs by its ID. Call it
// from init(); a malformed or duplicate registration is a programming
// error and panics.
func RegisterModule(instance Module) {
	if err := compiled.add(instance.ModuleInfo()); err != nil {
		panic(err)
	}
}

// GetModule looks up a registered module.
func GetModule(id string) (ModuleInfo, bool) {
	compiled.mu.RLock()
	defer compiled.mu.RUnlock()
	info, ok := compiled.byID[ModuleID(id)]
	return info, ok
}

// GetModules returns every registered module ordered by ID.
func GetModules() []ModuleInfo {
	return compiled.list(nil)
}

// GetModulesByNamespace returns the modules under namespace, e.g. all
// "provider.*" entries for "provider", ordered by ID.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	prefix := namespace + "."
	return compiled.list(func(id ModuleID) bool {
		return strings.HasPrefix(string(id), prefix)
	})
}

// Namespaces returns the distinct namespaces of the registered modules.
func Namespaces() []string {
	var out []string
	for _, info := range compiled.list(nil) {
		if ns := info.ID.Namespace(); !slices.Contains(out, ns) {
			out = append(out, ns)
		}
	}
	return out
}

func resetRegistry() {
	compiled.mu.Lock()
	defer compiled.mu.Unlock()
	clear(compiled.byID)
}
