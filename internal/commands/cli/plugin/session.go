package plugin

import (
	"context"
	"fmt"

	"github.com/andrei-cloud/go_edplug/internal/config"
	"github.com/andrei-cloud/go_edplug/internal/luahost"
	"github.com/andrei-cloud/go_edplug/internal/plugins"
	"github.com/andrei-cloud/go_edplug/internal/wasmhost"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// session bundles a plugin manager with the loaders it borrows.
type session struct {
	manager *plugins.Manager
	loader  *plugins.MultiLoader
	wasm    *wasmhost.Loader
	lua     *luahost.Loader
}

// openSession builds the loaders for the configured plugin directories and
// initializes a manager on top of them.
func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	fs := afero.NewOsFs()

	wasm, err := wasmhost.NewLoader(ctx, wasmhost.WithFS(fs))
	if err != nil {
		return nil, fmt.Errorf("failed to create wasm loader: %w", err)
	}

	s := &session{
		loader: plugins.NewMultiLoader(),
		wasm:   wasm,
		lua:    luahost.NewLoader(luahost.WithFS(fs)),
	}
	s.loader.Handle(wasmhost.DefaultExtension, s.wasm)
	s.loader.Handle(luahost.DefaultExtension, s.lua)
	for _, dir := range cfg.Plugin.Dirs {
		s.loader.AddBaseDir(dir)
	}

	capability := cfg.Plugin.Capability
	if capability == "" {
		capability = plugins.EditorPluginCapability
	}

	s.manager = plugins.NewManager(plugins.WithCapability(capability))
	if err := s.manager.Init(s.loader); err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("failed to initialize plugin manager: %w", err)
	}

	return s, nil
}

// close terminates the manager before disposing of the loaders it used.
func (s *session) close(ctx context.Context) {
	s.manager.Terminate(ctx)
	s.lua.Close()
	if err := s.wasm.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to close wasm runtime")
	}
}
