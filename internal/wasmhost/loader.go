// Package wasmhost loads editor plugins compiled to WebAssembly.
package wasmhost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andrei-cloud/go_edplug/internal/plugins"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// DefaultExtension is the library extension of WASM modules.
const DefaultExtension = ".wasm"

// Loader implements plugins.Loader on a wazero runtime. Modules are
// instantiated under their short name so other modules can import from them;
// imports from modules that are not instantiated yet go through the
// resolution hook first.
type Loader struct {
	fs      afero.Fs
	ext     string
	runtime wazero.Runtime

	dirs    []string
	loaded  []string
	modules map[string]*Module
	hook    plugins.ResolveFunc
}

// Option configures a Loader.
type Option func(*Loader)

// WithFS sets the file system modules are read from.
func WithFS(fs afero.Fs) Option {
	return func(l *Loader) {
		l.fs = fs
	}
}

// WithExtension sets the library extension enumerated by the loader.
func WithExtension(ext string) Option {
	return func(l *Loader) {
		l.ext = ext
	}
}

// NewLoader creates a runtime with WASI and the env host module instantiated.
// The caller owns the loader and must Close it.
func NewLoader(ctx context.Context, opts ...Option) (*Loader, error) {
	l := &Loader{
		fs:      afero.NewOsFs(),
		ext:     DefaultExtension,
		modules: make(map[string]*Module),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.runtime = wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCustomSections(true))

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, l.runtime); err != nil {
		_ = l.runtime.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate wasi: %w", err)
	}

	if err := NewHostFunctions(l.runtime).Register(ctx); err != nil {
		_ = l.runtime.Close(ctx)
		return nil, err
	}

	return l, nil
}

// AddBaseDir implements plugins.Loader.
func (l *Loader) AddBaseDir(dir string) {
	l.dirs = append(l.dirs, dir)
}

// BaseDirs implements plugins.Loader.
func (l *Loader) BaseDirs() []string {
	return append([]string(nil), l.dirs...)
}

// EnumerateCandidates lists the module files in dir, sorted by name.
// A missing directory has no candidates.
func (l *Loader) EnumerateCandidates(dir string) ([]string, error) {
	entries, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var result []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), l.ext) {
			continue
		}
		result = append(result, filepath.Join(dir, e.Name()))
	}
	return result, nil
}

// Load compiles and instantiates the module at path.
func (l *Loader) Load(ctx context.Context, path string) (plugins.Module, error) {
	l.loaded = append(l.loaded, path)

	wasmBytes, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", plugins.ErrInvalidModule, err)
	}

	compiled, err := l.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: compile %s: %w", plugins.ErrInvalidModule, path, err)
	}

	manifest, err := manifestOf(compiled.CustomSections())
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("%w: %s: %w", plugins.ErrInvalidModule, path, err)
	}

	identity := manifest.Identity
	if identity == "" {
		identity = compiled.Name()
	}
	if identity == "" {
		identity = plugins.FileStem(path)
	}

	name := plugins.ShortName(identity)
	if mod, ok := l.modules[name]; ok {
		_ = compiled.Close(ctx)
		return mod, nil
	}

	l.resolveImports(ctx, compiled)

	// Create module config that disables automatic start function execution.
	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions()

	instance, err := l.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("%w: instantiate %s: %w", plugins.ErrInvalidModule, path, err)
	}

	mod := &Module{
		identity: identity,
		path:     path,
		types:    manifest.Types,
		instance: instance,
	}
	l.modules[name] = mod

	log.Debug().
		Str("event", "wasm_module_loaded").
		Str("identity", identity).
		Str("path", path).
		Msg("loaded wasm module")

	return mod, nil
}

// RegisterResolutionHook implements plugins.Loader.
func (l *Loader) RegisterResolutionHook(fn plugins.ResolveFunc) {
	l.hook = fn
}

// ListLoadedPaths implements plugins.Loader.
func (l *Loader) ListLoadedPaths() []string {
	return append([]string(nil), l.loaded...)
}

// Close closes the runtime and every module instantiated in it.
func (l *Loader) Close(ctx context.Context) error {
	return l.runtime.Close(ctx)
}

// resolveImports asks the hook for every imported module that is not
// instantiated yet. Imports left unresolved fail the instantiation.
func (l *Loader) resolveImports(ctx context.Context, compiled wazero.CompiledModule) {
	if l.hook == nil {
		return
	}

	for _, name := range importedModules(compiled) {
		if l.runtime.Module(name) != nil {
			continue
		}
		if _, ok := l.hook(ctx, name); !ok {
			log.Debug().
				Str("event", "wasm_import_unresolved").
				Str("import", name).
				Msg("imported module could not be resolved")
		}
	}
}

func importedModules(compiled wazero.CompiledModule) []string {
	var result []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}

	for _, def := range compiled.ImportedFunctions() {
		moduleName, _, _ := def.Import()
		add(moduleName)
	}
	for _, def := range compiled.ImportedMemories() {
		moduleName, _, _ := def.Import()
		add(moduleName)
	}

	return result
}
