package wasmhost

import (
	"context"
	"fmt"

	"github.com/andrei-cloud/go_edplug/internal/plugins"
	"github.com/tetratelabs/wazero/api"
)

// Lifecycle exports looked up on plugin modules.
const (
	InitExport      = "plugin_init"
	TerminateExport = "plugin_terminate"
)

// Module is an instantiated WASM module.
type Module struct {
	identity string
	path     string
	types    []plugins.TypeInfo
	instance api.Module
}

// Identity implements plugins.Module.
func (m *Module) Identity() string { return m.identity }

// ShortName implements plugins.Module.
func (m *Module) ShortName() string { return plugins.ShortName(m.identity) }

// Location implements plugins.Module.
func (m *Module) Location() string { return m.path }

// Types implements plugins.Module.
func (m *Module) Types() []plugins.TypeInfo { return m.types }

// Instance returns the underlying wazero module.
func (m *Module) Instance() api.Module { return m.instance }

// InitPlugin calls the plugin_init export when the module has one.
func (m *Module) InitPlugin(ctx context.Context) error {
	return m.callExport(ctx, InitExport)
}

// TerminatePlugin calls the plugin_terminate export when the module has one.
func (m *Module) TerminatePlugin(ctx context.Context) error {
	return m.callExport(ctx, TerminateExport)
}

func (m *Module) callExport(ctx context.Context, name string) error {
	fn := m.instance.ExportedFunction(name)
	if fn == nil {
		return nil
	}

	if _, err := fn.Call(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", m.identity, name, err)
	}

	return nil
}
