package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	aotlink "github.com/wasmkit/aotlink"
	"github.com/wasmkit/aotlink/errors"
)

// Allocator export names probed on the main module, in preference order.
const (
	cabiRealloc = "cabi_realloc"
	simpleAlloc = "malloc"
	simpleFree  = "free"
	cabiFree    = "cabi_free"
)

// LinkContext is the shared linking state: the main module's linear
// memory and allocator, the append-only indirect call table, and the
// process-wide symbol registries. It is constructed once during
// bootstrap and threaded by reference into every loader and probe
// operation. The main-module capture must complete before any
// satellite instantiation or probe call runs.
type LinkContext struct {
	mu         sync.RWMutex
	main       api.Module
	memory     *GuestMemory
	alloc      *guestAllocator
	table      *FuncTable
	assemblies *AssemblyRegistry
	satellites *SatelliteRegistry
}

// NewLinkContext creates an empty, uncaptured context.
func NewLinkContext() *LinkContext {
	return &LinkContext{
		table:      NewFuncTable(),
		assemblies: NewAssemblyRegistry(),
		satellites: NewSatelliteRegistry(),
	}
}

// Capture records the main module's memory and allocator exports.
// It is a one-time operation; a second call fails.
func (c *LinkContext) Capture(ctx context.Context, mod api.Module) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.main != nil {
		return errors.AlreadyLinked(mod.Name())
	}

	mem := mod.Memory()
	if mem == nil {
		return errors.NotFound(errors.PhaseLink, "main module export", "memory")
	}

	alloc, err := newGuestAllocator(ctx, mod)
	if err != nil {
		return err
	}

	c.main = mod
	c.memory = &GuestMemory{mem: mem}
	c.alloc = alloc

	Logger().Info("captured main module",
		zap.String("module", mod.Name()),
		zap.Uint32("memory_bytes", mem.Size()))
	return nil
}

// Linked reports whether the main module has been captured.
func (c *LinkContext) Linked() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.main != nil
}

// Main returns the captured main module, or nil before capture.
func (c *LinkContext) Main() api.Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.main
}

// Memory returns the shared linear memory, or nil before capture.
func (c *LinkContext) Memory() aotlink.Memory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.memory == nil {
		return nil
	}
	return c.memory
}

// Allocator returns the main module's allocator, or nil before capture.
func (c *LinkContext) Allocator() aotlink.Allocator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.alloc == nil {
		return nil
	}
	return c.alloc
}

// Table returns the indirect call table.
func (c *LinkContext) Table() *FuncTable {
	return c.table
}

// Assemblies returns the staged-assembly registry.
func (c *LinkContext) Assemblies() *AssemblyRegistry {
	return c.assemblies
}

// Satellites returns the satellite-module registry.
func (c *LinkContext) Satellites() *SatelliteRegistry {
	return c.satellites
}

// ProbeAssembly resolves a virtual path to its staged byte range. A
// miss is non-fatal and logged at debug level.
func (c *LinkContext) ProbeAssembly(path string) (Segment, bool) {
	seg, ok := c.assemblies.Lookup(path)
	if !ok {
		Logger().Debug("assembly probe miss", zap.String("path", path))
		return Segment{}, false
	}
	return seg, true
}

// ProbeSatelliteExport resolves an export of a linked satellite to a
// fresh indirect call table handle. It returns 0 when the module or
// export is not found. Repeated probes of the same export mint a new
// handle each time; results are deliberately not memoized, callers may
// depend on receiving a fresh slot.
func (c *LinkContext) ProbeSatelliteExport(module, export string) uint32 {
	sat, ok := c.satellites.Lookup(module)
	if !ok {
		Logger().Debug("satellite probe miss", zap.String("module", module))
		return 0
	}
	fn := sat.ExportedFunction(export)
	if fn == nil {
		Logger().Debug("satellite export probe miss",
			zap.String("module", module),
			zap.String("export", export))
		return 0
	}
	index := c.table.Grow(fn)
	Logger().Debug("resolved satellite export",
		zap.String("module", module),
		zap.String("export", export),
		zap.Uint32("index", index))
	return index
}

// GuestMemory adapts wazero memory to the root Memory interface.
type GuestMemory struct {
	mem api.Memory
}

// NewGuestMemory wraps a wazero memory.
func NewGuestMemory(mem api.Memory) *GuestMemory {
	return &GuestMemory{mem: mem}
}

func (m *GuestMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *GuestMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *GuestMemory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (m *GuestMemory) ReadU64(offset uint32) (uint64, error) {
	val, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (m *GuestMemory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return fmt.Errorf("write out of bounds: offset=%d", offset)
	}
	return nil
}

func (m *GuestMemory) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return fmt.Errorf("write out of bounds: offset=%d", offset)
	}
	return nil
}

// Size returns the current memory size in bytes.
func (m *GuestMemory) Size() uint32 {
	return m.mem.Size()
}

var _ aotlink.Memory = (*GuestMemory)(nil)

// guestAllocator adapts the main module's exported allocator to the
// root Allocator interface. It prefers cabi_realloc and falls back to
// malloc/free.
type guestAllocator struct {
	allocFn   api.Function
	freeFn    api.Function
	isRealloc bool
	ctx       context.Context
	stackBuf  []uint64
	mu        sync.Mutex
}

func newGuestAllocator(ctx context.Context, mod api.Module) (*guestAllocator, error) {
	a := &guestAllocator{ctx: ctx, stackBuf: make([]uint64, 4)}

	if fn := mod.ExportedFunction(cabiRealloc); fn != nil {
		a.allocFn = fn
		a.isRealloc = true
	} else if fn := mod.ExportedFunction(simpleAlloc); fn != nil {
		a.allocFn = fn
	}
	if a.allocFn == nil {
		return nil, errors.NotFound(errors.PhaseLink, "main module allocator export", cabiRealloc)
	}

	if fn := mod.ExportedFunction(cabiFree); fn != nil {
		a.freeFn = fn
	} else if fn := mod.ExportedFunction(simpleFree); fn != nil {
		a.freeFn = fn
	}
	return a, nil
}

func (a *guestAllocator) Alloc(size, align uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isRealloc {
		a.stackBuf[0] = 0
		a.stackBuf[1] = 0
		a.stackBuf[2] = uint64(align)
		a.stackBuf[3] = uint64(size)
		if err := a.allocFn.CallWithStack(a.ctx, a.stackBuf[:4]); err != nil {
			return 0, errors.AllocationFailed(size, align, err)
		}
		return uint32(a.stackBuf[0]), nil
	}

	a.stackBuf[0] = uint64(size)
	if err := a.allocFn.CallWithStack(a.ctx, a.stackBuf[:1]); err != nil {
		return 0, errors.AllocationFailed(size, align, err)
	}
	return uint32(a.stackBuf[0]), nil
}

func (a *guestAllocator) Free(ptr, size, align uint32) {
	if a.freeFn == nil || ptr == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.freeFn.Definition().ParamTypes())
	a.stackBuf[0] = uint64(ptr)
	a.stackBuf[1] = uint64(size)
	a.stackBuf[2] = uint64(align)
	if n > 3 {
		n = 3
	}
	if err := a.freeFn.CallWithStack(a.ctx, a.stackBuf[:n]); err != nil {
		Logger().Warn("free failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

var _ aotlink.Allocator = (*guestAllocator)(nil)
