package loader

import (
	"sync"

	"github.com/tetratelabs/wazero/api"
)

// FuncTable is the append-only indirect call table. Slot 0 is reserved
// as the "not found" sentinel and never assigned to a resolved export.
// Handles are never invalidated, reused, or compacted: native call
// sites embed them directly, so a returned index stays valid for the
// remainder of the process.
type FuncTable struct {
	mu      sync.RWMutex
	entries []api.Function
}

// NewFuncTable creates a table with the reserved zero slot.
func NewFuncTable() *FuncTable {
	return &FuncTable{entries: make([]api.Function, 1)}
}

// Grow appends fn and returns the new slot's index. Every call mints a
// fresh handle, even for a function already present.
func (t *FuncTable) Grow(fn api.Function) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, fn)
	return uint32(len(t.entries) - 1)
}

// Get returns the function at index, or false for the reserved slot,
// an out-of-range index, or an empty slot.
func (t *FuncTable) Get(index uint32) (api.Function, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if index == 0 || index >= uint32(len(t.entries)) {
		return nil, false
	}
	fn := t.entries[index]
	return fn, fn != nil
}

// Len returns the number of slots, including the reserved slot.
func (t *FuncTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
