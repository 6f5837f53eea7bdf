package luahost

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrei-cloud/go_edplug/internal/plugins"
	lua "github.com/yuin/gopher-lua"
)

// PluginTable is the global table a script declares itself with:
//
//	plugin = {
//	  identity = "Theme.editor@1.0.0",
//	  types = { { name = "ThemePanel", implements = { "editor.plugin" } } },
//	  init = function() end,
//	  terminate = function() end,
//	}
const PluginTable = "plugin"

// Module is a Lua script module with its own interpreter state.
type Module struct {
	identity string
	path     string
	types    []plugins.TypeInfo
	deps     []string
	L        *lua.LState
}

// Identity implements plugins.Module.
func (m *Module) Identity() string { return m.identity }

// ShortName implements plugins.Module.
func (m *Module) ShortName() string { return plugins.ShortName(m.identity) }

// Location implements plugins.Module.
func (m *Module) Location() string { return m.path }

// Types implements plugins.Module.
func (m *Module) Types() []plugins.TypeInfo { return m.types }

// Dependencies returns the identities the script resolved with require_plugin while loading.
func (m *Module) Dependencies() []string { return m.deps }

// InitPlugin calls plugin.init when the script defines it.
func (m *Module) InitPlugin(ctx context.Context) error {
	return m.call(ctx, "init")
}

// TerminatePlugin calls plugin.terminate when the script defines it.
func (m *Module) TerminatePlugin(ctx context.Context) error {
	return m.call(ctx, "terminate")
}

func (m *Module) call(ctx context.Context, name string) error {
	tbl, ok := m.L.GetGlobal(PluginTable).(*lua.LTable)
	if !ok {
		return nil
	}
	fn, ok := tbl.RawGetString(name).(*lua.LFunction)
	if !ok {
		return nil
	}

	m.L.SetContext(ctx)
	defer m.L.RemoveContext()

	if err := m.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
		return fmt.Errorf("%s %s: %w", m.identity, name, err)
	}

	return nil
}

// describe reads the plugin table left behind by the script.
func describe(L *lua.LState, path string) (string, []plugins.TypeInfo, error) {
	identity := plugins.FileStem(path)

	tbl, ok := L.GetGlobal(PluginTable).(*lua.LTable)
	if !ok {
		return identity, nil, nil
	}

	switch v := tbl.RawGetString("identity").(type) {
	case lua.LString:
		if v != "" {
			identity = string(v)
		}
	case *lua.LNilType:
	default:
		return "", nil, fmt.Errorf("plugin.identity must be a string, got %s", v.Type())
	}

	var types []plugins.TypeInfo
	switch v := tbl.RawGetString("types").(type) {
	case *lua.LTable:
		for i := 1; i <= v.Len(); i++ {
			t, err := typeInfo(v.RawGetInt(i))
			if err != nil {
				return "", nil, fmt.Errorf("plugin.types[%d]: %w", i, err)
			}
			types = append(types, t)
		}
	case *lua.LNilType:
	default:
		return "", nil, fmt.Errorf("plugin.types must be a table, got %s", v.Type())
	}

	return identity, types, nil
}

func typeInfo(v lua.LValue) (plugins.TypeInfo, error) {
	entry, ok := v.(*lua.LTable)
	if !ok {
		return plugins.TypeInfo{}, fmt.Errorf("expected table, got %s", v.Type())
	}

	name, ok := entry.RawGetString("name").(lua.LString)
	if !ok || name == "" {
		return plugins.TypeInfo{}, errors.New("type has no name")
	}

	t := plugins.TypeInfo{Name: string(name)}
	if impl, ok := entry.RawGetString("implements").(*lua.LTable); ok {
		for i := 1; i <= impl.Len(); i++ {
			s, ok := impl.RawGetInt(i).(lua.LString)
			if !ok {
				return plugins.TypeInfo{}, fmt.Errorf("%s: implements must list strings", name)
			}
			t.Implements = append(t.Implements, string(s))
		}
	}

	return t, nil
}
