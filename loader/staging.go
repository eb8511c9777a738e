package loader

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	aotlink "github.com/wasmkit/aotlink"
	"github.com/wasmkit/aotlink/errors"
)

const (
	// stageAlign is the alignment of persistent staged blocks.
	stageAlign = 16

	// reservedRoot is the virtual directory reserved for managed-code
	// assets; virtual-filesystem assets may not be placed under it.
	reservedRoot = "/managed"
)

// AssemblyAsset describes managed-code bytes to stage and register.
type AssemblyAsset struct {
	Name        string
	VirtualPath string
}

// VFSAsset describes a virtual-filesystem asset. VirtualPath falls back
// to Name when absent.
type VFSAsset struct {
	Name        string
	VirtualPath string
}

// Path returns the asset's effective virtual path.
func (a VFSAsset) Path() string {
	if a.VirtualPath != "" {
		return a.VirtualPath
	}
	return a.Name
}

// Stager copies host byte buffers into the shared linear memory.
type Stager struct {
	mem        aotlink.Memory
	alloc      aotlink.Allocator
	assemblies *AssemblyRegistry
}

// NewStager creates a stager over the given memory and allocator.
func NewStager(mem aotlink.Memory, alloc aotlink.Allocator, assemblies *AssemblyRegistry) *Stager {
	return &Stager{mem: mem, alloc: alloc, assemblies: assemblies}
}

// Stager returns a stager bound to the captured main module. Call only
// after capture.
func (c *LinkContext) Stager() *Stager {
	return NewStager(c.Memory(), c.Allocator(), c.assemblies)
}

// StageBytes copies data into a persistent, 16-byte aligned block of
// the shared memory. The copy goes through a scratch allocation that is
// released on every exit path. Allocation failure is fatal to the
// calling operation. Buffers beyond the 32-bit address space cannot be
// staged.
func (s *Stager) StageBytes(data []byte) (Segment, error) {
	if len(data) == 0 {
		return Segment{}, errors.InvalidInput(errors.PhaseStage, "cannot stage an empty buffer")
	}
	if uint64(len(data)) > math.MaxUint32 {
		return Segment{}, &errors.Error{
			Phase:  errors.PhaseStage,
			Kind:   errors.KindOverflow,
			Detail: fmt.Sprintf("buffer of %d bytes exceeds the 32-bit staging limit", len(data)),
		}
	}
	size := uint32(len(data))

	scratch, err := s.alloc.Alloc(size, 1)
	if err != nil {
		return Segment{}, errors.AllocationFailed(size, 1, err)
	}
	defer s.alloc.Free(scratch, size, 1)

	if err := s.mem.Write(scratch, data); err != nil {
		return Segment{}, &errors.Error{
			Phase:  errors.PhaseStage,
			Kind:   errors.KindAllocation,
			Detail: "scratch block is not addressable",
			Cause:  err,
		}
	}

	ptr, err := s.alloc.Alloc(size, stageAlign)
	if err != nil {
		return Segment{}, errors.AllocationFailed(size, stageAlign, err)
	}

	staged, err := s.mem.Read(scratch, size)
	if err == nil {
		err = s.mem.Write(ptr, staged)
	}
	if err != nil {
		s.alloc.Free(ptr, size, stageAlign)
		return Segment{}, &errors.Error{
			Phase:  errors.PhaseStage,
			Kind:   errors.KindAllocation,
			Detail: "staged block is not addressable",
			Cause:  err,
		}
	}

	return Segment{Ptr: ptr, Size: size}, nil
}

// StageAssembly stages managed-code bytes and registers the resulting
// segment under the asset's virtual path.
func (s *Stager) StageAssembly(asset AssemblyAsset, data []byte) (Segment, error) {
	path := asset.VirtualPath
	if path == "" {
		path = asset.Name
	}

	seg, err := s.StageBytes(data)
	if err != nil {
		return Segment{}, err
	}

	s.assemblies.Register(path, seg)
	Logger().Debug("staged assembly",
		zap.String("name", asset.Name),
		zap.String("path", path),
		zap.Uint32("ptr", seg.Ptr),
		zap.Uint32("size", seg.Size))
	return seg, nil
}

// StageVFS stages a virtual-filesystem asset's bytes. Paths under the
// reserved managed directory are rejected before any staging occurs.
// The staged segment is not registered; mounting is the caller's
// concern.
func (s *Stager) StageVFS(asset VFSAsset, data []byte) (Segment, error) {
	path := asset.Path()
	normalized := path
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if normalized == reservedRoot || strings.HasPrefix(normalized, reservedRoot+"/") {
		return Segment{}, errors.ReservedPath(path, reservedRoot)
	}
	return s.StageBytes(data)
}
