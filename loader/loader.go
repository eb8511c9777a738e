package loader

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wasmkit/aotlink/errors"
	"github.com/wasmkit/aotlink/objfile"
)

// Options holds configuration for loader creation.
type Options struct {
	// MemoryLimitPages sets the maximum memory per instance in pages
	// (64KB each). 0 means the engine default.
	MemoryLimitPages uint32

	// HostModuleName is the import namespace the probe functions are
	// exported under. Defaults to "aot".
	HostModuleName string
}

// DefaultOptions returns the default loader configuration.
func DefaultOptions() *Options {
	return &Options{HostModuleName: "aot"}
}

// Loader instantiates compiled modules inside a wazero runtime and
// wires them into a shared LinkContext.
type Loader struct {
	runtime wazero.Runtime
	link    *LinkContext
	opts    Options

	shareMu    sync.Mutex
	shareReady bool
}

// New creates a loader with its own runtime and instantiates the probe
// host module.
func New(ctx context.Context, opts *Options) (*Loader, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.HostModuleName == "" {
		opts.HostModuleName = "aot"
	}

	cfg := wazero.NewRuntimeConfig()
	if opts.MemoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(opts.MemoryLimitPages)
	}

	l := &Loader{
		runtime: wazero.NewRuntimeWithConfig(ctx, cfg),
		link:    NewLinkContext(),
		opts:    *opts,
	}
	if err := l.instantiateHostModule(ctx); err != nil {
		l.runtime.Close(ctx)
		return nil, err
	}
	return l, nil
}

// Link returns the shared linking context.
func (l *Loader) Link() *LinkContext {
	return l.link
}

// Runtime returns the underlying wazero runtime.
func (l *Loader) Runtime() wazero.Runtime {
	return l.runtime
}

// Close releases the runtime and every module instantiated in it.
func (l *Loader) Close(ctx context.Context) error {
	return l.runtime.Close(ctx)
}

// InstantiateConfig controls a single instantiation.
type InstantiateConfig struct {
	// Main marks the module whose memory and allocator are captured
	// into the LinkContext. Exactly one module per loader may be main.
	Main bool

	// PreferStreaming selects the fast path that hands fetched bytes
	// straight to the engine when the content-type marker is present.
	// Without the marker the loader degrades to a buffered path that
	// verifies the binary header first.
	PreferStreaming bool
}

// Instantiate fetches, compiles, and instantiates a module under name.
// When cfg.Main is set, the module's memory and allocator are captured
// as the shared linking context; the capture is one-time and must
// precede any satellite instantiation or probe call.
func (l *Loader) Instantiate(ctx context.Context, name string, src Source, cfg InstantiateConfig) (api.Module, error) {
	data, err := l.fetch(ctx, src, cfg.PreferStreaming)
	if err != nil {
		return nil, err
	}

	compiled, err := l.runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("compile module %q", name), err)
	}

	mod, err := l.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, errors.Instantiation(name, err)
	}

	if cfg.Main {
		if err := l.link.Capture(ctx, mod); err != nil {
			mod.Close(ctx)
			return nil, err
		}
	}

	Logger().Info("instantiated module",
		zap.String("module", name),
		zap.Bool("main", cfg.Main),
		zap.Int("size_bytes", len(data)))
	return mod, nil
}

// fetch awaits the byte source and validates the transport outcome. A
// missing content-type marker is non-fatal: the loader logs a warning
// and verifies the binary header before handing bytes to the engine.
func (l *Loader) fetch(ctx context.Context, src Source, preferStreaming bool) ([]byte, error) {
	resp, err := src(ctx)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.TransportFailed("byte source returned no response", nil)
	}
	if !resp.OK() {
		return nil, errors.TransportFailed(fmt.Sprintf("byte source returned status %d", resp.Status), nil)
	}

	if isWasmContentType(resp.ContentType) && preferStreaming {
		return resp.Body, nil
	}

	if !isWasmContentType(resp.ContentType) {
		Logger().Warn("content type mismatch, using buffered decode path",
			zap.String("content_type", resp.ContentType),
			zap.String("expected", ContentTypeWasm))
	}
	if err := checkHeader(resp.Body); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// checkHeader verifies the binary magic and version.
func checkHeader(data []byte) error {
	if len(data) < 8 || binary.LittleEndian.Uint32(data[:4]) != objfile.Magic {
		return errors.FormatMismatch(errors.PhaseLoad, "missing wasm binary magic")
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != objfile.Version {
		return errors.FormatMismatch(errors.PhaseLoad, fmt.Sprintf("unsupported binary version %d", v))
	}
	return nil
}
