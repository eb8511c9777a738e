package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wasmkit/aotlink/loader"
)

func main() {
	var (
		mainModule  = flag.String("main", "", "Path or URL of the main module")
		satellites  = flag.String("satellites", "", "Satellite modules (name=path,name2=path2)")
		assets      = flag.String("assets", "", "Assemblies to stage (path=file,path2=file2)")
		probe       = flag.String("probe", "", "Probe a satellite export (module#export)")
		probeAsm    = flag.String("probe-assembly", "", "Probe a staged assembly path")
		list        = flag.Bool("list", false, "List linked satellites and their exports")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *mainModule == "" {
		fmt.Fprintln(os.Stderr, "Usage: aotlink -main <file.wasm> [-satellites name=path,...] [-assets path=file,...]")
		fmt.Fprintln(os.Stderr, "       aotlink -main <file.wasm> -probe module#export")
		fmt.Fprintln(os.Stderr, "       aotlink -main <file.wasm> -satellites ... -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			loader.SetLogger(logger)
			defer logger.Sync()
		}
	}

	if err := run(*mainModule, *satellites, *assets, *probe, *probeAsm, *list, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(mainModule, satellitesStr, assetsStr, probe, probeAsm string, list, interactive bool) error {
	ctx := context.Background()

	ld, err := loader.New(ctx, nil)
	if err != nil {
		return fmt.Errorf("create loader: %w", err)
	}
	defer ld.Close(ctx)

	if _, err := ld.Instantiate(ctx, "main", sourceFor(mainModule),
		loader.InstantiateConfig{Main: true, PreferStreaming: true}); err != nil {
		return fmt.Errorf("instantiate main: %w", err)
	}

	names, err := linkSatellites(ctx, ld, satellitesStr)
	if err != nil {
		return err
	}

	if err := stageAssets(ld, assetsStr); err != nil {
		return err
	}

	if interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode requires a terminal")
		}
		return runInteractive(ld, names)
	}

	if list {
		printSatellites(ld, names)
		return nil
	}

	if probeAsm != "" {
		seg, ok := ld.Link().ProbeAssembly(probeAsm)
		if !ok {
			return fmt.Errorf("assembly %q not staged", probeAsm)
		}
		fmt.Printf("%s: ptr=0x%x size=%d\n", probeAsm, seg.Ptr, seg.Size)
	}

	if probe != "" {
		module, export, ok := strings.Cut(probe, "#")
		if !ok {
			return fmt.Errorf("probe spec %q must be module#export", probe)
		}
		handle := ld.Link().ProbeSatelliteExport(module, export)
		if handle == 0 {
			return fmt.Errorf("export %q not found in satellite %q", export, module)
		}
		fmt.Printf("%s#%s -> handle %d\n", module, export, handle)
	}

	return nil
}

// sourceFor picks the transport from the module reference.
func sourceFor(ref string) loader.Source {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return loader.HTTPSource(nil, ref)
	}
	return loader.FileSource(ref)
}

// linkSatellites instantiates each name=path entry and returns the
// names in link order.
func linkSatellites(ctx context.Context, ld *loader.Loader, spec string) ([]string, error) {
	if spec == "" {
		return nil, nil
	}
	var names []string
	for _, entry := range strings.Split(spec, ",") {
		name, path, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("satellite spec %q must be name=path", entry)
		}
		if _, err := ld.InstantiateSatellite(ctx, name, sourceFor(path)); err != nil {
			return nil, fmt.Errorf("link satellite %q: %w", name, err)
		}
		names = append(names, name)
	}
	return names, nil
}

// stageAssets copies each path=file entry into the shared memory and
// registers it under the virtual path.
func stageAssets(ld *loader.Loader, spec string) error {
	if spec == "" {
		return nil
	}
	stager := ld.Link().Stager()
	for _, entry := range strings.Split(spec, ",") {
		path, file, ok := strings.Cut(entry, "=")
		if !ok {
			return fmt.Errorf("asset spec %q must be path=file", entry)
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read asset %q: %w", file, err)
		}
		seg, err := stager.StageAssembly(loader.AssemblyAsset{Name: path, VirtualPath: path}, data)
		if err != nil {
			return fmt.Errorf("stage asset %q: %w", path, err)
		}
		fmt.Printf("staged %s: ptr=0x%x size=%d\n", path, seg.Ptr, seg.Size)
	}
	return nil
}

func printSatellites(ld *loader.Loader, names []string) {
	for _, name := range names {
		mod, ok := ld.Link().Satellites().Lookup(name)
		if !ok {
			continue
		}
		fmt.Printf("%s:\n", name)
		var exports []string
		for export := range mod.ExportedFunctionDefinitions() {
			exports = append(exports, export)
		}
		sort.Strings(exports)
		for _, export := range exports {
			fmt.Printf("  %s\n", export)
		}
	}
}
