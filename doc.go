// Package aotlink produces and loads ahead-of-time-compiled native code
// packaged as WebAssembly binary modules.
//
// The library has two halves. The object writer serializes
// compiler-internal structures (function signatures, import declarations,
// relocatable data-segment offset expressions) into the exact byte layout
// of the WebAssembly binary format. The loader instantiates such modules
// inside a wazero runtime, shares the main module's linear memory and
// indirect call table with separately compiled "satellite" modules, and
// resolves cross-module symbol references into stable call handles.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	aotlink/        Root package with core Memory and Allocator interfaces
//	├── objfile/    Binary object writer: LEB128 encoder, grammar types,
//	│               constant-expression builder
//	├── loader/     Module instantiation, shared linking context, symbol
//	│               registries and probe ABI
//	└── errors/     Structured error types for debugging
//
// # Quick Start
//
// Load a main module and link a satellite against it:
//
//	ld, err := loader.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ld.Close(ctx)
//
//	_, err = ld.Instantiate(ctx, "main", loader.FileSource("app.wasm"),
//	    loader.InstantiateConfig{Main: true, PreferStreaming: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	_, err = ld.InstantiateSatellite(ctx, "physics", loader.FileSource("physics.wasm"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	idx := ld.Link().ProbeSatelliteExport("physics", "step")
//	// idx is a permanent indirect-call handle; 0 means not found.
//
// # Linking Model
//
// The loader captures the main module's memory and allocator exactly
// once. Satellite modules import that memory; cross-module calls go
// through an append-only handle table whose indices are never reused or
// compacted, so native call sites may embed them directly. The capture
// must complete before any satellite instantiation or probe call runs.
package aotlink
