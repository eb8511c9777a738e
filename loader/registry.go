package loader

import (
	"strings"
	"sync"

	"github.com/tetratelabs/wazero/api"
)

// Segment is a staged native byte range in the shared linear memory.
type Segment struct {
	Ptr  uint32
	Size uint32
}

// AssemblyRegistry maps virtual asset paths to staged byte ranges.
// Entries are never removed; they live for the process lifetime. Each
// path is also registered under its leading-slash-normalized alias so
// lookups succeed regardless of caller convention.
type AssemblyRegistry struct {
	mu       sync.RWMutex
	segments map[string]Segment
}

// NewAssemblyRegistry creates an empty registry.
func NewAssemblyRegistry() *AssemblyRegistry {
	return &AssemblyRegistry{segments: make(map[string]Segment)}
}

// Register records seg under path and under its slash alias.
func (r *AssemblyRegistry) Register(path string, seg Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments[path] = seg
	r.segments[slashAlias(path)] = seg
}

// Lookup returns the segment registered for path.
func (r *AssemblyRegistry) Lookup(path string) (Segment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seg, ok := r.segments[path]
	return seg, ok
}

// Len returns the number of distinct registered paths, aliases excluded.
func (r *AssemblyRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for p := range r.segments {
		if !strings.HasPrefix(p, "/") {
			n++
		}
	}
	return n
}

// slashAlias flips the leading-slash convention of path.
func slashAlias(path string) string {
	if strings.HasPrefix(path, "/") {
		return path[1:]
	}
	return "/" + path
}

// SatelliteRegistry maps satellite module names to their live
// instances. Entries are never removed.
type SatelliteRegistry struct {
	mu      sync.RWMutex
	modules map[string]api.Module
}

// NewSatelliteRegistry creates an empty registry.
func NewSatelliteRegistry() *SatelliteRegistry {
	return &SatelliteRegistry{modules: make(map[string]api.Module)}
}

// Register records a live satellite instance under name.
func (r *SatelliteRegistry) Register(name string, mod api.Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[name] = mod
}

// Lookup returns the instance registered under name.
func (r *SatelliteRegistry) Lookup(name string) (api.Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mod, ok := r.modules[name]
	return mod, ok
}

// Len returns the number of registered satellites.
func (r *SatelliteRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}
