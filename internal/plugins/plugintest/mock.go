// Package plugintest provides an in-memory plugin loader for tests.
package plugintest

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/andrei-cloud/go_edplug/internal/plugins"
)

// PluginType is a type exported by mock editor plugins.
var PluginType = plugins.TypeInfo{
	Name:       "MockEditorPlugin",
	Implements: []string{plugins.EditorPluginCapability},
}

// MockModule is a module served by MockLoader.
type MockModule struct {
	ID       string
	Path     string
	TypeList []plugins.TypeInfo

	// InitErr and TermErr are returned by the lifecycle hooks.
	InitErr error
	TermErr error

	InitCalls int
	TermCalls int

	// OnInit runs inside InitPlugin.
	OnInit func(ctx context.Context)
}

// NewMockModule creates a module located at path whose identity is derived
// from the file name.
func NewMockModule(path string, types ...plugins.TypeInfo) *MockModule {
	return &MockModule{
		ID:       plugins.FileStem(path) + "@1.0.0",
		Path:     path,
		TypeList: types,
	}
}

// Identity implements plugins.Module.
func (m *MockModule) Identity() string { return m.ID }

// ShortName implements plugins.Module.
func (m *MockModule) ShortName() string { return plugins.ShortName(m.ID) }

// Location implements plugins.Module.
func (m *MockModule) Location() string { return m.Path }

// Types implements plugins.Module.
func (m *MockModule) Types() []plugins.TypeInfo { return m.TypeList }

// InitPlugin implements plugins.Initializer.
func (m *MockModule) InitPlugin(ctx context.Context) error {
	m.InitCalls++
	if m.OnInit != nil {
		m.OnInit(ctx)
	}
	return m.InitErr
}

// TerminatePlugin implements plugins.Terminator.
func (m *MockModule) TerminatePlugin(context.Context) error {
	m.TermCalls++
	return m.TermErr
}

// BareModule is a module without lifecycle hooks.
type BareModule struct {
	ID       string
	Path     string
	TypeList []plugins.TypeInfo
}

// Identity implements plugins.Module.
func (m *BareModule) Identity() string { return m.ID }

// ShortName implements plugins.Module.
func (m *BareModule) ShortName() string { return plugins.ShortName(m.ID) }

// Location implements plugins.Module.
func (m *BareModule) Location() string { return m.Path }

// Types implements plugins.Module.
func (m *BareModule) Types() []plugins.TypeInfo { return m.TypeList }

// MockLoader serves modules from memory and records every load attempt.
type MockLoader struct {
	// Initialized and Disposed track the loader's own lifecycle, which only
	// its owner may drive.
	Initialized bool
	Disposed    bool

	dirs    []string
	files   []string
	modules map[string]plugins.Module
	invalid map[string]struct{}
	deps    map[string][]string
	loaded  []string
	hook    plugins.ResolveFunc
}

// NewMockLoader creates an empty MockLoader.
func NewMockLoader() *MockLoader {
	return &MockLoader{
		modules: make(map[string]plugins.Module),
		invalid: make(map[string]struct{}),
		deps:    make(map[string][]string),
	}
}

// Init marks the loader as initialized.
func (l *MockLoader) Init() { l.Initialized = true }

// Dispose marks the loader as disposed.
func (l *MockLoader) Dispose() { l.Disposed = true }

// AddPlugin makes mod loadable from its location.
func (l *MockLoader) AddPlugin(mod plugins.Module) {
	l.addFile(mod.Location())
	l.modules[filepath.Clean(mod.Location())] = mod
}

// AddInvalid adds a file whose load fails with plugins.ErrInvalidModule.
func (l *MockLoader) AddInvalid(path string) {
	l.addFile(path)
	l.invalid[filepath.Clean(path)] = struct{}{}
}

// AddIncompatible adds a file the loader cannot load at all.
func (l *MockLoader) AddIncompatible(path string) {
	l.addFile(path)
}

// AddDependency makes loading path request identity through the resolution hook.
func (l *MockLoader) AddDependency(path, identity string) {
	key := filepath.Clean(path)
	l.deps[key] = append(l.deps[key], identity)
}

// InvokeResolve calls the registered resolution hook the way the module
// system would.
func (l *MockLoader) InvokeResolve(ctx context.Context, identity string) (plugins.Module, bool) {
	if l.hook == nil {
		return nil, false
	}
	return l.hook(ctx, identity)
}

// HasHook reports whether a resolution hook is registered.
func (l *MockLoader) HasHook() bool {
	return l.hook != nil
}

// LoadCount returns the number of load attempts for path.
func (l *MockLoader) LoadCount(path string) int {
	n := 0
	for _, p := range l.loaded {
		if p == filepath.Clean(path) {
			n++
		}
	}
	return n
}

// AddBaseDir implements plugins.Loader.
func (l *MockLoader) AddBaseDir(dir string) {
	l.dirs = append(l.dirs, dir)
}

// BaseDirs implements plugins.Loader.
func (l *MockLoader) BaseDirs() []string {
	return append([]string(nil), l.dirs...)
}

// EnumerateCandidates implements plugins.Loader.
func (l *MockLoader) EnumerateCandidates(dir string) ([]string, error) {
	var result []string
	for _, f := range l.files {
		if filepath.Dir(f) == filepath.Clean(dir) {
			result = append(result, f)
		}
	}
	return result, nil
}

// Load implements plugins.Loader.
func (l *MockLoader) Load(ctx context.Context, path string) (plugins.Module, error) {
	key := filepath.Clean(path)
	l.loaded = append(l.loaded, key)

	if _, ok := l.invalid[key]; ok {
		return nil, fmt.Errorf("%w: %s", plugins.ErrInvalidModule, path)
	}
	mod, ok := l.modules[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a module", plugins.ErrInvalidModule, path)
	}

	for _, dep := range l.deps[key] {
		_, _ = l.InvokeResolve(ctx, dep)
	}

	return mod, nil
}

// RegisterResolutionHook implements plugins.Loader.
func (l *MockLoader) RegisterResolutionHook(fn plugins.ResolveFunc) {
	l.hook = fn
}

// ListLoadedPaths implements plugins.Loader.
func (l *MockLoader) ListLoadedPaths() []string {
	return append([]string(nil), l.loaded...)
}

func (l *MockLoader) addFile(path string) {
	key := filepath.Clean(path)
	for _, f := range l.files {
		if f == key {
			return
		}
	}
	l.files = append(l.files, key)
}
