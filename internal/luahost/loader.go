// Package luahost loads editor plugins written as Lua scripts.
package luahost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andrei-cloud/go_edplug/internal/plugins"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	lua "github.com/yuin/gopher-lua"
)

// DefaultExtension is the library extension of Lua modules.
const DefaultExtension = ".lua"

// Loader implements plugins.Loader for Lua scripts. Every module runs in its
// own LState; scripts request other modules with require_plugin(identity),
// which goes through the resolution hook.
type Loader struct {
	fs  afero.Fs
	ext string

	dirs    []string
	loaded  []string
	modules map[string]*Module
	hook    plugins.ResolveFunc
}

// Option configures a Loader.
type Option func(*Loader)

// WithFS sets the file system scripts are read from.
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

// NewLoader creates a Lua loader. The caller owns it and must Close it.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		fs:      afero.NewOsFs(),
		ext:     DefaultExtension,
		modules: make(map[string]*Module),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// AddBaseDir implements plugins.Loader.
func (l *Loader) AddBaseDir(dir string) {
	l.dirs = append(l.dirs, dir)
}

// BaseDirs implements plugins.Loader.
func (l *Loader) BaseDirs() []string {
	return append([]string(nil), l.dirs...)
}

// EnumerateCandidates lists the script files in dir, sorted by name.
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

// Load runs the script at path and reads its plugin table.
func (l *Loader) Load(ctx context.Context, path string) (plugins.Module, error) {
	l.loaded = append(l.loaded, path)

	src, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", plugins.ErrInvalidModule, err)
	}

	L := newState()
	var deps []string
	L.SetGlobal("require_plugin", L.NewFunction(func(L *lua.LState) int {
		identity := L.CheckString(1)
		resolved := l.require(L, identity)
		if resolved {
			deps = append(deps, identity)
		}
		L.Push(lua.LBool(resolved))
		return 1
	}))

	L.SetContext(ctx)
	err = L.DoString(string(src))
	L.RemoveContext()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("%w: run %s: %w", plugins.ErrInvalidModule, path, err)
	}

	identity, types, err := describe(L, path)
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("%w: %s: %w", plugins.ErrInvalidModule, path, err)
	}

	name := plugins.ShortName(identity)
	if mod, ok := l.modules[name]; ok {
		L.Close()
		return mod, nil
	}

	mod := &Module{
		identity: identity,
		path:     path,
		types:    types,
		deps:     deps,
		L:        L,
	}
	l.modules[name] = mod

	log.Debug().
		Str("event", "lua_module_loaded").
		Str("identity", identity).
		Str("path", path).
		Msg("loaded lua module")

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

// Close closes the interpreter state of every loaded module.
func (l *Loader) Close() {
	for _, mod := range l.modules {
		mod.L.Close()
	}
	l.modules = make(map[string]*Module)
}

func (l *Loader) require(L *lua.LState, identity string) bool {
	if l.hook == nil {
		return false
	}

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	_, ok := l.hook(ctx, identity)
	return ok
}
