package wasmhost_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/andrei-cloud/go_edplug/internal/plugins"
	"github.com/andrei-cloud/go_edplug/internal/wasmhost"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outlineManifest = `
identity: Outline.editor@1.2.0
types:
  - name: OutlinePanel
    implements: [editor.plugin, editor.panel]
  - name: OutlineModel
`

func newTestLoader(t *testing.T, files map[string][]byte) (*wasmhost.Loader, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, data := range files {
		require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
	}

	loader, err := wasmhost.NewLoader(context.Background(), wasmhost.WithFS(fs))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = loader.Close(context.Background())
	})

	return loader, fs
}

func TestEnumerateCandidates(t *testing.T) {
	loader, fs := newTestLoader(t, map[string][]byte{
		"plugins/b.core.WASM":          pluginModule(""),
		"plugins/a.editor.wasm":        pluginModule(""),
		"plugins/readme.md":            []byte("# plugins"),
		"plugins/helper.wasm":          pluginModule(""),
		"plugins/nested/x.editor.wasm": pluginModule(""),
	})
	require.NoError(t, fs.MkdirAll("plugins/dir.editor.wasm", 0o755))

	paths, err := loader.EnumerateCandidates("plugins")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"plugins/a.editor.wasm",
		"plugins/b.core.WASM",
		"plugins/helper.wasm",
	}, paths)

	paths, err = loader.EnumerateCandidates("missing")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLoadWithManifest(t *testing.T) {
	ctx := context.Background()
	loader, _ := newTestLoader(t, map[string][]byte{
		"plugins/Outline.editor.wasm": pluginModule(outlineManifest, "plugin_init", "plugin_terminate"),
	})

	mod, err := loader.Load(ctx, "plugins/Outline.editor.wasm")
	require.NoError(t, err)

	assert.Equal(t, "Outline.editor@1.2.0", mod.Identity())
	assert.Equal(t, "Outline.editor", mod.ShortName())
	assert.Equal(t, "plugins/Outline.editor.wasm", mod.Location())
	assert.Equal(t, []plugins.TypeInfo{
		{Name: "OutlinePanel", Implements: []string{"editor.plugin", "editor.panel"}},
		{Name: "OutlineModel"},
	}, mod.Types())

	wm, ok := mod.(*wasmhost.Module)
	require.True(t, ok)
	assert.Equal(t, "Outline.editor", wm.Instance().Name())
	assert.NoError(t, wm.InitPlugin(ctx))
	assert.NoError(t, wm.TerminatePlugin(ctx))

	assert.Equal(t, []string{"plugins/Outline.editor.wasm"}, loader.ListLoadedPaths())
}

func TestLoadWithoutManifest(t *testing.T) {
	ctx := context.Background()
	loader, _ := newTestLoader(t, map[string][]byte{
		"plugins/Bare.editor.wasm":  pluginModule(""),
		"plugins/Named.editor.wasm": wasmModule{nameSect: "Custom.editor"}.encode(),
	})

	mod, err := loader.Load(ctx, "plugins/Bare.editor.wasm")
	require.NoError(t, err)
	assert.Equal(t, "Bare.editor", mod.Identity())
	assert.Empty(t, mod.Types())

	// a module without lifecycle exports is a no-op plugin.
	wm := mod.(*wasmhost.Module)
	assert.NoError(t, wm.InitPlugin(ctx))
	assert.NoError(t, wm.TerminatePlugin(ctx))

	mod, err = loader.Load(ctx, "plugins/Named.editor.wasm")
	require.NoError(t, err)
	assert.Equal(t, "Custom.editor", mod.Identity())
}

func TestLoadInvalidModules(t *testing.T) {
	ctx := context.Background()
	loader, _ := newTestLoader(t, map[string][]byte{
		"plugins/Junk.editor.wasm":    []byte("not a wasm module"),
		"plugins/BadYaml.editor.wasm": pluginModule("types: [\n"),
		"plugins/NoName.editor.wasm":  pluginModule("types:\n  - implements: [editor.plugin]\n"),
		"plugins/Orphan.editor.wasm":  importerModule("", "Nowhere.editor", "helper"),
	})

	for _, path := range []string{
		"plugins/Junk.editor.wasm",
		"plugins/BadYaml.editor.wasm",
		"plugins/NoName.editor.wasm",
		"plugins/Orphan.editor.wasm",
		"plugins/Missing.editor.wasm",
	} {
		_, err := loader.Load(ctx, path)
		assert.ErrorIs(t, err, plugins.ErrInvalidModule, path)
	}

	// failed attempts are still part of the loader's bookkeeping.
	assert.Len(t, loader.ListLoadedPaths(), 5)
}

func TestLoadSameIdentityTwice(t *testing.T) {
	ctx := context.Background()
	manifest := "identity: Shared.editor@1.0.0\n"
	loader, _ := newTestLoader(t, map[string][]byte{
		"a/Shared.editor.wasm": pluginModule(manifest),
		"b/Shared.editor.wasm": pluginModule(manifest),
	})

	first, err := loader.Load(ctx, "a/Shared.editor.wasm")
	require.NoError(t, err)
	second, err := loader.Load(ctx, "b/Shared.editor.wasm")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, loader.ListLoadedPaths(), 2)
}

func TestManagerResolvesWasmImports(t *testing.T) {
	ctx := context.Background()
	loader, _ := newTestLoader(t, map[string][]byte{
		"plugins/Host.editor.wasm": importerModule(
			"identity: Host.editor@1.0.0\ntypes:\n  - name: HostPlugin\n    implements: [editor.plugin]\n",
			"Shared.editor", "helper"),
		"plugins/Shared.editor.wasm": pluginModule(
			"identity: Shared.editor@1.0.0\ntypes:\n  - name: SharedWidget\n", "helper"),
		"plugins/Engine.core.wasm": pluginModule(
			"identity: Engine.core@1.0.0\ntypes:\n  - name: Engine\n    implements: [editor.plugin]\n"),
		"plugins/Util.wasm": pluginModule(""),
	})
	loader.AddBaseDir("plugins")

	pm := plugins.NewManager(plugins.WithLogger(zerolog.Nop()))
	require.NoError(t, pm.Init(loader))
	require.NoError(t, pm.LoadPlugins(ctx))

	// Host pulls Shared in through the resolution hook while it is being loaded.
	assert.Equal(t, []string{
		"plugins/Host.editor.wasm",
		"plugins/Shared.editor.wasm",
	}, loader.ListLoadedPaths())

	require.Len(t, pm.LoadedPlugins(), 1)
	assert.Equal(t, "Host.editor@1.0.0", pm.LoadedPlugins()[0].Identity)
	assert.Equal(t, []plugins.TypeInfo{{Name: "SharedWidget"}}, pm.GetTypesAssignableTo("SharedWidget"))

	_, ok := pm.Resolve(ctx, "Engine.core")
	assert.False(t, ok)
	assert.Len(t, loader.ListLoadedPaths(), 2)

	pm.InitPlugins(ctx)
	rec := pm.LoadedPlugins()[0]
	assert.Equal(t, plugins.StateInitialized, rec.State())
	assert.NoError(t, rec.Err)

	pm.Terminate(ctx)
	assert.Empty(t, pm.LoadedPlugins())
}

func TestHostLogFunction(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	loader, _ := newTestLoader(t, map[string][]byte{
		"plugins/Chatty.editor.wasm": loggingModule("identity: Chatty.editor@0.1.0\n", "hello from wasm"),
	})

	mod, err := loader.Load(ctx, "plugins/Chatty.editor.wasm")
	require.NoError(t, err)
	require.NoError(t, mod.(*wasmhost.Module).InitPlugin(ctx))

	assert.Contains(t, buf.String(), `"message":"hello from wasm"`)
	assert.Contains(t, buf.String(), `"plugin":"Chatty.editor"`)
	assert.Contains(t, buf.String(), `"source":"wasm"`)
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	m, err := wasmhost.ParseManifest([]byte(`{"identity": "Json.editor@2.0.0", "types": [{"name": "J", "implements": ["editor.plugin"]}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Json.editor@2.0.0", m.Identity)
	require.Len(t, m.Types, 1)
	assert.True(t, m.Types[0].AssignableTo(plugins.EditorPluginCapability))

	_, err = wasmhost.ParseManifest([]byte("types:\n  - implements: [x]\n"))
	assert.Error(t, err)
}
