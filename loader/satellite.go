package loader

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wasmkit/aotlink/errors"
	"github.com/wasmkit/aotlink/objfile"
)

// InstantiateSatellite fetches, compiles, and instantiates a satellite
// module linked against the main module's shared memory, and registers
// the instance under name for export probing. The main module must have
// been captured first.
func (l *Loader) InstantiateSatellite(ctx context.Context, name string, src Source) (api.Module, error) {
	if !l.link.Linked() {
		return nil, errors.InvalidInput(errors.PhaseLink,
			"main module not captured; satellites link against its memory")
	}
	if err := l.ensureShareModule(ctx); err != nil {
		return nil, err
	}

	data, err := l.fetch(ctx, src, true)
	if err != nil {
		return nil, err
	}

	compiled, err := l.runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("compile satellite %q", name), err)
	}

	mod, err := l.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, errors.Instantiation(name, err)
	}

	l.link.Satellites().Register(name, mod)
	Logger().Info("linked satellite module", zap.String("module", name))
	return mod, nil
}

// ensureShareModule instantiates the synthetic share module under the
// satellite import namespace on first use. The namespace can hold only
// one instance, so the single-slot table it exports is shared by all
// satellites; no slot is ever assigned through it.
func (l *Loader) ensureShareModule(ctx context.Context) error {
	l.shareMu.Lock()
	defer l.shareMu.Unlock()

	if l.shareReady {
		return nil
	}

	main := l.link.Main()
	share := shareModule{
		mainName: main.Name(),
		minPages: main.Memory().Size() / pageSize,
	}

	compiled, err := l.runtime.CompileModule(ctx, objfile.Encode(share))
	if err != nil {
		return errors.Load("compile share module", err)
	}
	if _, err := l.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(satelliteNamespace)); err != nil {
		return errors.Instantiation(satelliteNamespace, err)
	}

	l.shareReady = true
	return nil
}
