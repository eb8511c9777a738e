package loader_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wasmkit/aotlink/errors"
	"github.com/wasmkit/aotlink/loader"
	"github.com/wasmkit/aotlink/objfile"
)

// rawSection is one framed section of a generated test module.
type rawSection struct {
	id   objfile.SectionID
	body func(e *objfile.Encoder)
}

// testModule encodes a complete binary module from framed sections.
type testModule []rawSection

func (m testModule) EncodeTo(e *objfile.Encoder) {
	e.Bytes([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00})
	for _, s := range m {
		measure := objfile.NewMeasurer()
		s.body(measure)
		e.Byte(byte(s.id))
		e.Uint(uint32(measure.Len()))
		s.body(e)
	}
}

// mainModuleBytes builds a main module exporting a linear memory and a
// trivial malloc(size) -> size allocator.
func mainModuleBytes() []byte {
	return objfile.Encode(testModule{
		{objfile.SectionType, func(e *objfile.Encoder) {
			e.Uint(1)
			objfile.FuncType{
				Params:  objfile.ResultType{objfile.ValI32},
				Results: objfile.ResultType{objfile.ValI32},
			}.EncodeTo(e)
		}},
		{objfile.SectionFunction, func(e *objfile.Encoder) {
			e.Uint(1)
			e.Uint(0)
		}},
		{objfile.SectionMemory, func(e *objfile.Encoder) {
			e.Uint(1)
			objfile.Limits{Min: 1}.EncodeTo(e)
		}},
		{objfile.SectionExport, func(e *objfile.Encoder) {
			e.Uint(2)
			e.Name("memory")
			e.Byte(byte(objfile.KindMemory))
			e.Uint(0)
			e.Name("malloc")
			e.Byte(byte(objfile.KindFunc))
			e.Uint(0)
		}},
		{objfile.SectionCode, func(e *objfile.Encoder) {
			e.Uint(1)
			body := []byte{0x00, objfile.OpLocalGet, 0x00, objfile.OpEnd}
			e.Uint(uint32(len(body)))
			e.Bytes(body)
		}},
	})
}

// satelliteModuleBytes builds a satellite that imports the shared
// memory and table and exports answer() -> 42.
func satelliteModuleBytes() []byte {
	return objfile.Encode(testModule{
		{objfile.SectionType, func(e *objfile.Encoder) {
			e.Uint(1)
			objfile.FuncType{Results: objfile.ResultType{objfile.ValI32}}.EncodeTo(e)
		}},
		{objfile.SectionImport, func(e *objfile.Encoder) {
			e.Uint(2)
			objfile.NewImport("env", "memory",
				objfile.MemoryType{Limits: objfile.Limits{Min: 1}}).EncodeTo(e)
			e.Name("env")
			e.Name("table")
			e.Byte(byte(objfile.KindTable))
			e.Byte(objfile.TableRefByte)
			objfile.Limits{Min: 1}.EncodeTo(e)
		}},
		{objfile.SectionFunction, func(e *objfile.Encoder) {
			e.Uint(1)
			e.Uint(0)
		}},
		{objfile.SectionExport, func(e *objfile.Encoder) {
			e.Uint(1)
			e.Name("answer")
			e.Byte(byte(objfile.KindFunc))
			e.Uint(0)
		}},
		{objfile.SectionCode, func(e *objfile.Encoder) {
			e.Uint(1)
			body := []byte{0x00, objfile.OpI32Const, 42, objfile.OpEnd}
			e.Uint(uint32(len(body)))
			e.Bytes(body)
		}},
	})
}

func newTestLoader(t *testing.T) (*loader.Loader, context.Context) {
	t.Helper()
	ctx := context.Background()
	ld, err := loader.New(ctx, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { ld.Close(ctx) })
	return ld, ctx
}

func TestInstantiateMainCapturesOnce(t *testing.T) {
	ld, ctx := newTestLoader(t)

	if ld.Link().Linked() {
		t.Fatal("context linked before any instantiation")
	}

	src := loader.BytesSource(loader.ContentTypeWasm, mainModuleBytes())
	if _, err := ld.Instantiate(ctx, "main", src, loader.InstantiateConfig{Main: true, PreferStreaming: true}); err != nil {
		t.Fatalf("Instantiate main: %v", err)
	}

	if !ld.Link().Linked() {
		t.Fatal("context not linked after main instantiation")
	}
	if ld.Link().Memory() == nil || ld.Link().Allocator() == nil {
		t.Fatal("capture did not record memory and allocator")
	}

	_, err := ld.Instantiate(ctx, "main2", loader.BytesSource(loader.ContentTypeWasm, mainModuleBytes()),
		loader.InstantiateConfig{Main: true})
	if err == nil {
		t.Fatal("expected second main capture to fail")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLink, Kind: errors.KindAlreadyLinked}) {
		t.Errorf("expected already_linked error, got %v", err)
	}
	if ld.Runtime().Module("main2") != nil {
		t.Error("rejected main left registered in the runtime")
	}
}

func TestInstantiateSatelliteAndProbe(t *testing.T) {
	ld, ctx := newTestLoader(t)

	mainSrc := loader.BytesSource(loader.ContentTypeWasm, mainModuleBytes())
	if _, err := ld.Instantiate(ctx, "main", mainSrc, loader.InstantiateConfig{Main: true, PreferStreaming: true}); err != nil {
		t.Fatalf("Instantiate main: %v", err)
	}

	satSrc := loader.BytesSource(loader.ContentTypeWasm, satelliteModuleBytes())
	if _, err := ld.InstantiateSatellite(ctx, "mathlib", satSrc); err != nil {
		t.Fatalf("InstantiateSatellite: %v", err)
	}

	link := ld.Link()
	first := link.ProbeSatelliteExport("mathlib", "answer")
	if first == 0 {
		t.Fatal("probe returned the not-found sentinel for a linked export")
	}
	second := link.ProbeSatelliteExport("mathlib", "answer")
	if second <= first {
		t.Errorf("repeated probes must mint increasing handles: got %d then %d", first, second)
	}

	fn, ok := link.Table().Get(first)
	if !ok {
		t.Fatalf("handle %d not resolvable in the call table", first)
	}
	results, err := fn.Call(ctx)
	if err != nil {
		t.Fatalf("call through handle: %v", err)
	}
	if len(results) != 1 || results[0] != 42 {
		t.Errorf("call through handle = %v, want [42]", results)
	}

	if idx := link.ProbeSatelliteExport("mathlib", "no_such_export"); idx != 0 {
		t.Errorf("missing export resolved to %d, want sentinel 0", idx)
	}
	if idx := link.ProbeSatelliteExport("no_such_module", "answer"); idx != 0 {
		t.Errorf("missing module resolved to %d, want sentinel 0", idx)
	}
}

func TestSatelliteRequiresMain(t *testing.T) {
	ld, ctx := newTestLoader(t)

	_, err := ld.InstantiateSatellite(ctx, "early",
		loader.BytesSource(loader.ContentTypeWasm, satelliteModuleBytes()))
	if err == nil {
		t.Fatal("expected satellite instantiation before capture to fail")
	}
}

func TestInstantiateContentTypeFallback(t *testing.T) {
	ld, ctx := newTestLoader(t)

	// No content-type marker: the buffered path still accepts a valid
	// binary after checking the header.
	src := loader.BytesSource("", mainModuleBytes())
	if _, err := ld.Instantiate(ctx, "main", src, loader.InstantiateConfig{Main: true, PreferStreaming: true}); err != nil {
		t.Fatalf("Instantiate via buffered path: %v", err)
	}

	// A non-wasm payload fails the header check before compilation.
	_, err := ld.Instantiate(ctx, "bogus", loader.BytesSource("text/html", []byte("<html>not wasm</html>")),
		loader.InstantiateConfig{})
	if err == nil {
		t.Fatal("expected header check to reject non-wasm payload")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindFormat}) {
		t.Errorf("expected load/format error, got %v", err)
	}
}

func TestInstantiateTransportFailure(t *testing.T) {
	ld, ctx := newTestLoader(t)

	src := func(ctx context.Context) (*loader.Response, error) {
		return &loader.Response{Status: 404}, nil
	}
	_, err := ld.Instantiate(ctx, "missing", src, loader.InstantiateConfig{})
	if err == nil {
		t.Fatal("expected transport failure")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindTransport}) {
		t.Errorf("expected load/transport error, got %v", err)
	}
}
