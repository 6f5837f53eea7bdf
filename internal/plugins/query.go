package plugins

// LoadedPlugins returns a snapshot of the registered plugins in registration order.
func (m *Manager) LoadedPlugins() []*Record {
	return m.registry.List()
}

// Plugin looks up a registered plugin by module identity.
func (m *Manager) Plugin(identity string) (*Record, bool) {
	return m.registry.Get(identity)
}

// GetLoadedModules returns the distinct modules backing registered plugins.
func (m *Manager) GetLoadedModules() []Module {
	records := m.registry.List()
	seen := make(map[string]struct{}, len(records))
	result := make([]Module, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.Module.Identity()]; ok {
			continue
		}
		seen[rec.Module.Identity()] = struct{}{}
		result = append(result, rec.Module)
	}
	return result
}

// GetTypesAssignableTo returns the types assignable to capability across all
// modules loaded through the manager, in load order. Modules without a plugin
// record, such as dependencies pulled in by Resolve, are included.
func (m *Manager) GetTypesAssignableTo(capability string) []TypeInfo {
	var result []TypeInfo
	for _, mod := range m.modules {
		for _, t := range mod.Types() {
			if t.AssignableTo(capability) {
				result = append(result, t)
			}
		}
	}
	return result
}
