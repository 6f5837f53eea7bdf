package plugins

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// MultiLoader routes module files to loaders by library extension and
// presents them to the Manager as a single Loader.
type MultiLoader struct {
	routes []route
	dirs   []string
	hook   ResolveFunc
}

type route struct {
	ext    string
	loader Loader
}

// NewMultiLoader creates an empty MultiLoader.
func NewMultiLoader() *MultiLoader {
	return &MultiLoader{}
}

// Handle routes files with extension ext (".wasm", ".lua", ...) to l.
// Base directories added so far are forwarded to l, and resolution requests
// raised by l are passed on to the hook registered on the MultiLoader.
func (ml *MultiLoader) Handle(ext string, l Loader) {
	ml.routes = append(ml.routes, route{ext: strings.ToLower(ext), loader: l})
	for _, dir := range ml.dirs {
		l.AddBaseDir(dir)
	}
	l.RegisterResolutionHook(ml.resolve)
}

// AddBaseDir registers dir on every routed loader.
func (ml *MultiLoader) AddBaseDir(dir string) {
	ml.dirs = append(ml.dirs, dir)
	for _, r := range ml.routes {
		r.loader.AddBaseDir(dir)
	}
}

// BaseDirs returns the registered base directories.
func (ml *MultiLoader) BaseDirs() []string {
	return append([]string(nil), ml.dirs...)
}

// EnumerateCandidates merges the candidates of every routed loader.
func (ml *MultiLoader) EnumerateCandidates(dir string) ([]string, error) {
	var result []string
	seen := make(map[string]struct{})
	for _, r := range ml.routes {
		paths, err := r.loader.EnumerateCandidates(dir)
		if err != nil {
			return nil, fmt.Errorf("enumerate %s files: %w", r.ext, err)
		}
		for _, p := range paths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			result = append(result, p)
		}
	}
	return result, nil
}

// Load hands path to the loader registered for its extension.
func (ml *MultiLoader) Load(ctx context.Context, path string) (Module, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, r := range ml.routes {
		if r.ext == ext {
			return r.loader.Load(ctx, path)
		}
	}

	return nil, fmt.Errorf("%w: no loader for %q", ErrInvalidModule, path)
}

// RegisterResolutionHook installs the hook shared by all routed loaders.
func (ml *MultiLoader) RegisterResolutionHook(fn ResolveFunc) {
	ml.hook = fn
}

// ListLoadedPaths concatenates the load attempts of every routed loader.
func (ml *MultiLoader) ListLoadedPaths() []string {
	var result []string
	for _, r := range ml.routes {
		result = append(result, r.loader.ListLoadedPaths()...)
	}
	return result
}

func (ml *MultiLoader) resolve(ctx context.Context, identity string) (Module, bool) {
	if ml.hook == nil {
		return nil, false
	}

	return ml.hook(ctx, identity)
}
