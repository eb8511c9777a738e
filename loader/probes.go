package loader

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wasmkit/aotlink/errors"
)

// Probe function export names.
const (
	ProbeAssemblyFn        = "probe_assembly"
	ProbeSatelliteExportFn = "probe_satellite_export"
)

// instantiateHostModule exports the native-facing probe ABI. Both
// probes take nul-terminated strings in the caller's memory and signal
// misses with a zero result, never a trap.
func (l *Loader) instantiateHostModule(ctx context.Context) error {
	i32 := api.ValueTypeI32
	_, err := l.runtime.NewHostModuleBuilder(l.opts.HostModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(l.hostProbeAssembly),
			[]api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		Export(ProbeAssemblyFn).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(l.hostProbeSatelliteExport),
			[]api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export(ProbeSatelliteExportFn).
		Instantiate(ctx)
	if err != nil {
		return errors.Instantiation(l.opts.HostModuleName, err)
	}
	return nil
}

// hostProbeAssembly implements probe_assembly(path, outPtr, outLen).
// On a hit it writes the staged pointer to outPtr and the length to
// outLen as an eight-byte field whose high word is zero, and returns 1.
// On a miss it zero-fills both outputs and returns 0.
func (l *Loader) hostProbeAssembly(_ context.Context, mod api.Module, stack []uint64) {
	pathPtr := uint32(stack[0])
	outPtr := uint32(stack[1])
	outLen := uint32(stack[2])
	mem := mod.Memory()

	path, ok := readCString(mem, pathPtr)
	if !ok {
		mem.WriteUint32Le(outPtr, 0)
		mem.WriteUint64Le(outLen, 0)
		stack[0] = 0
		return
	}

	seg, found := l.link.ProbeAssembly(path)
	if !found {
		mem.WriteUint32Le(outPtr, 0)
		mem.WriteUint64Le(outLen, 0)
		stack[0] = 0
		return
	}

	mem.WriteUint32Le(outPtr, seg.Ptr)
	// Staged sizes never exceed 32 bits, so the high word stays zero.
	mem.WriteUint64Le(outLen, uint64(seg.Size))
	stack[0] = 1
}

// hostProbeSatelliteExport implements
// probe_satellite_export(moduleName, exportName). A hit appends the
// export to the indirect call table and returns the fresh slot index;
// a miss returns the reserved sentinel 0.
func (l *Loader) hostProbeSatelliteExport(_ context.Context, mod api.Module, stack []uint64) {
	mem := mod.Memory()

	module, ok := readCString(mem, uint32(stack[0]))
	if !ok {
		stack[0] = 0
		return
	}
	export, ok := readCString(mem, uint32(stack[1]))
	if !ok {
		stack[0] = 0
		return
	}

	stack[0] = uint64(l.link.ProbeSatelliteExport(module, export))
}

// readCString reads a nul-terminated string from guest memory.
func readCString(mem api.Memory, ptr uint32) (string, bool) {
	var buf []byte
	for off := ptr; ; off++ {
		b, ok := mem.ReadByte(off)
		if !ok {
			return "", false
		}
		if b == 0 {
			return string(buf), true
		}
		buf = append(buf, b)
	}
}
