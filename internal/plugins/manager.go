package plugins

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Manager discovers editor plugins through a Loader and drives their lifecycle.
//
// All methods are meant to be called from a single goroutine. Resolve may be
// invoked by the Loader from inside a Load call made by the Manager itself;
// the Manager never holds state locked across a Load, so such reentrant calls
// see and extend the same registry.
type Manager struct {
	loader     Loader
	classify   Classifier
	capability string
	registry   *Registry

	// every module loaded through the manager, in load order.
	modules    []Module
	identities map[string]Module
	// paths whose Load call has not returned yet.
	inflight map[string]struct{}

	log zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClassifier replaces the default file naming convention.
func WithClassifier(c Classifier) Option {
	return func(m *Manager) {
		m.classify = c
	}
}

// WithCapability sets the capability that makes a module an editor plugin.
func WithCapability(capability string) Option {
	return func(m *Manager) {
		m.capability = capability
	}
}

// WithLogger sets the logger used by the manager.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// NewManager returns a Manager ready to be initialized with a Loader.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		classify:   DefaultClassifier,
		capability: EditorPluginCapability,
		registry:   NewRegistry(),
		identities: make(map[string]Module),
		inflight:   make(map[string]struct{}),
		log:        log.Logger,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.log = m.log.With().Str("session", uuid.NewString()).Logger()

	return m
}

// Init stores the loader and subscribes Resolve as its resolution hook.
// The loader's own lifecycle is left to the caller.
func (m *Manager) Init(loader Loader) error {
	if loader == nil {
		return fmt.Errorf("%w: loader is nil", ErrInvalidArgument)
	}
	if m.loader != nil {
		if m.loader == loader {
			return nil
		}

		return fmt.Errorf("%w: manager is already initialized with another loader", ErrInvalidArgument)
	}

	m.loader = loader
	loader.RegisterResolutionHook(m.Resolve)

	m.log.Debug().
		Str("event", "manager_init").
		Strs("base_dirs", loader.BaseDirs()).
		Msg("plugin manager initialized")

	return nil
}

// LoadPlugins loads every editor plugin candidate of every base directory
// that has not been loaded yet. Bad candidates are logged and skipped.
func (m *Manager) LoadPlugins(ctx context.Context) error {
	if m.loader == nil {
		return fmt.Errorf("%w: manager is not initialized", ErrInvalidArgument)
	}

	for _, dir := range m.loader.BaseDirs() {
		for _, c := range m.candidates(dir) {
			// checked per candidate: Resolve may have loaded it during this batch.
			if c.Kind != KindEditorPlugin || m.pathLoaded(c.Path) {
				continue
			}
			m.loadCandidate(ctx, c.Path)
		}
	}

	m.log.Info().
		Str("event", "plugins_loaded").
		Int("plugins", m.registry.Len()).
		Int("modules", len(m.modules)).
		Msg("plugin discovery finished")

	return nil
}

// LoadPlugin registers a module obtained outside of discovery. An already
// registered identity yields the existing record.
func (m *Manager) LoadPlugin(mod Module, path string) (*Record, error) {
	if mod == nil {
		return nil, fmt.Errorf("%w: module is nil", ErrInvalidArgument)
	}
	if path == "" {
		path = mod.Location()
	}

	return m.register(m.track(mod), path)
}

// Resolve is the resolution hook handed to the loader. It returns cached
// modules, loads editor plugin candidates on demand and declines core modules.
func (m *Manager) Resolve(ctx context.Context, identity string) (Module, bool) {
	name := ShortName(identity)
	if mod, ok := m.cached(identity, name); ok {
		return mod, true
	}
	if m.loader == nil || name == "" {
		return nil, false
	}

	for _, dir := range m.loader.BaseDirs() {
		for _, c := range m.candidates(dir) {
			if !strings.EqualFold(FileStem(c.Path), name) {
				continue
			}

			switch c.Kind {
			case KindCoreModule:
				// core modules belong to the core module owner.
				m.log.Debug().
					Str("event", "core_dependency_declined").
					Str("identity", identity).
					Str("path", c.Path).
					Msg("core module left to its owner")

				return nil, false
			case KindEditorPlugin:
				if m.isInflight(c.Path) || m.pathLoaded(c.Path) {
					return nil, false
				}

				mod, ok := m.loadCandidate(ctx, c.Path)
				if ok {
					m.log.Info().
						Str("event", "plugin_resolved").
						Str("identity", identity).
						Str("path", c.Path).
						Msg("resolved module dependency")
				}

				return mod, ok
			}
		}
	}

	m.log.Debug().
		Str("event", "dependency_unresolved").
		Str("identity", identity).
		Msg("no candidate for module dependency")

	return nil, false
}

// InitPlugins runs the init hook of every plugin still in StateLoaded.
// Hook errors are logged and kept on the record.
func (m *Manager) InitPlugins(ctx context.Context) {
	// init hooks may resolve further plugins; repeat until none is pending.
	for {
		pending := m.recordsIn(StateLoaded)
		if len(pending) == 0 {
			return
		}

		for _, rec := range pending {
			if init, ok := rec.Module.(Initializer); ok {
				if err := init.InitPlugin(ctx); err != nil {
					rec.Err = err
					m.log.Error().Err(err).
						Str("event", "plugin_init_failed").
						Str("plugin", rec.Identity).
						Msg("plugin init hook failed")
				}
			}
			rec.advance(StateInitialized)

			m.log.Debug().
				Str("event", "plugin_initialized").
				Str("plugin", rec.Identity).
				Msg("plugin initialized")
		}
	}
}

// Terminate disposes initialized plugins in reverse registration order and
// forgets every record and module. The loader is released, not disposed.
func (m *Manager) Terminate(ctx context.Context) {
	records := m.registry.List()
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if rec.State() != StateInitialized {
			continue
		}

		if term, ok := rec.Module.(Terminator); ok {
			if err := term.TerminatePlugin(ctx); err != nil {
				rec.Err = err
				m.log.Error().Err(err).
					Str("event", "plugin_terminate_failed").
					Str("plugin", rec.Identity).
					Msg("plugin terminate hook failed")
			}
		}
		rec.advance(StateDisposed)
	}

	m.registry.Clear()
	m.modules = nil
	m.identities = make(map[string]Module)

	if m.loader != nil {
		m.loader.RegisterResolutionHook(nil)
		m.loader = nil
	}

	m.log.Debug().
		Str("event", "manager_terminated").
		Int("plugins", len(records)).
		Msg("plugin manager terminated")
}

// loadCandidate loads path and registers the result.
func (m *Manager) loadCandidate(ctx context.Context, path string) (Module, bool) {
	key := filepath.Clean(path)
	m.inflight[key] = struct{}{}
	defer delete(m.inflight, key)

	mod, err := m.loader.Load(ctx, path)
	if err == nil && mod == nil {
		err = fmt.Errorf("%w: loader returned no module", ErrInvalidModule)
	}
	if err != nil {
		m.log.Warn().Err(err).
			Str("event", "plugin_load_failed").
			Str("path", path).
			Msg("failed to load plugin module")

		return nil, false
	}

	mod = m.track(mod)
	if _, err := m.register(mod, path); err != nil {
		m.log.Debug().
			Str("event", "module_without_plugin").
			Str("identity", mod.Identity()).
			Str("path", path).
			Msg("module exports no plugin capability")
	}

	return mod, true
}

// register creates the record for mod unless one exists already.
func (m *Manager) register(mod Module, path string) (*Record, error) {
	if rec, ok := m.registry.Get(mod.Identity()); ok {
		return rec, nil
	}

	pluginType, ok := m.pluginType(mod)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPluginCapability, mod.Identity())
	}

	rec, inserted := m.registry.Add(newRecord(mod, path, pluginType))
	if inserted {
		m.log.Info().
			Str("event", "plugin_registered").
			Str("plugin", rec.Identity).
			Str("type", pluginType.Name).
			Str("path", path).
			Msg("registered editor plugin")
	}

	return rec, nil
}

// track remembers mod, returning the module already known under its identity.
func (m *Manager) track(mod Module) Module {
	if known, ok := m.identities[mod.Identity()]; ok {
		return known
	}
	m.identities[mod.Identity()] = mod
	m.modules = append(m.modules, mod)

	return mod
}

func (m *Manager) cached(identity, name string) (Module, bool) {
	if mod, ok := m.identities[identity]; ok {
		return mod, true
	}
	for _, mod := range m.modules {
		if strings.EqualFold(mod.ShortName(), name) {
			return mod, true
		}
	}

	return nil, false
}

func (m *Manager) pluginType(mod Module) (TypeInfo, bool) {
	for _, t := range mod.Types() {
		if t.AssignableTo(m.capability) {
			return t, true
		}
	}

	return TypeInfo{}, false
}

func (m *Manager) candidates(dir string) []Candidate {
	paths, err := m.loader.EnumerateCandidates(dir)
	if err != nil {
		m.log.Warn().Err(err).
			Str("event", "enumerate_failed").
			Str("dir", dir).
			Msg("failed to enumerate plugin directory")

		return nil
	}

	result := make([]Candidate, 0, len(paths))
	for _, p := range paths {
		result = append(result, Candidate{Path: p, Kind: m.classify(p)})
	}
	return result
}

func (m *Manager) pathLoaded(path string) bool {
	path = filepath.Clean(path)
	for _, p := range m.loader.ListLoadedPaths() {
		if filepath.Clean(p) == path {
			return true
		}
	}

	return false
}

func (m *Manager) isInflight(path string) bool {
	_, ok := m.inflight[filepath.Clean(path)]
	return ok
}

func (m *Manager) recordsIn(state State) []*Record {
	var result []*Record
	for _, rec := range m.registry.List() {
		if rec.State() == state {
			result = append(result, rec)
		}
	}
	return result
}
