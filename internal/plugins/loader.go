// Package plugins discovers, loads and drives the lifecycle of editor plugins.
package plugins

import (
	"context"
	"path/filepath"
	"strings"
)

const (
	// EditorPluginCapability is the capability a module must export to become an editor plugin.
	EditorPluginCapability = "editor.plugin"

	// AnyCapability matches every exported type.
	AnyCapability = "*"
)

// TypeInfo describes a type exported by a loaded module.
type TypeInfo struct {
	Name       string   `yaml:"name"`
	Implements []string `yaml:"implements"`
}

// AssignableTo reports whether the type can be used as the given capability.
func (t TypeInfo) AssignableTo(capability string) bool {
	if capability == AnyCapability || capability == t.Name {
		return true
	}
	for _, c := range t.Implements {
		if c == capability {
			return true
		}
	}

	return false
}

// Module is the handle of a successfully loaded module.
type Module interface {
	// Identity returns the canonical, content-derived module name.
	Identity() string
	// ShortName returns the identity without version or attributes.
	ShortName() string
	// Location returns the path the module was loaded from.
	Location() string
	// Types returns the manifest of exported types.
	Types() []TypeInfo
}

// Initializer is implemented by modules with explicit initialization logic.
type Initializer interface {
	InitPlugin(ctx context.Context) error
}

// Terminator is implemented by modules with explicit termination logic.
type Terminator interface {
	TerminatePlugin(ctx context.Context) error
}

// ResolveFunc satisfies a reference to a module that is not loaded yet.
// It returns false when the identity cannot be resolved.
type ResolveFunc func(ctx context.Context, identity string) (Module, bool)

// Loader is the module loading environment used by the Manager.
// The caller owns it: the Manager never initializes or disposes a Loader.
type Loader interface {
	// AddBaseDir registers a search directory.
	AddBaseDir(dir string)
	// BaseDirs returns the registered search directories in registration order.
	BaseDirs() []string
	// EnumerateCandidates lists the module files found in dir.
	EnumerateCandidates(dir string) ([]string, error)
	// Load loads the module at path. Malformed files yield ErrInvalidModule.
	Load(ctx context.Context, path string) (Module, error)
	// RegisterResolutionHook installs fn as the hook consulted for unresolved
	// module references. A nil fn removes the hook.
	RegisterResolutionHook(fn ResolveFunc)
	// ListLoadedPaths returns every path a load was attempted for.
	ListLoadedPaths() []string
}

// ShortName strips version and attribute parts from a module identity.
// Both "name@1.2.0" and "name, Version=1.2.0" yield "name".
func ShortName(identity string) string {
	if i := strings.IndexAny(identity, "@,"); i >= 0 {
		identity = identity[:i]
	}

	return strings.TrimSpace(identity)
}

// FileStem returns the base name of path without its last extension.
func FileStem(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}
