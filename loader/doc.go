// Package loader instantiates ahead-of-time compiled modules inside a
// wazero runtime and links them into a single shared address space.
//
// One module per loader is the main module: its linear memory and
// allocator are captured once into the LinkContext. Satellite modules
// are instantiated against that shared memory and registered by name.
// Native code resolves cross-module references through two probe
// functions exported by the loader's host module: probe_assembly maps a
// virtual asset path to a staged byte range, and probe_satellite_export
// maps a satellite export to a permanent indirect call table handle.
package loader
