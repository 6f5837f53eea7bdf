package wasmhost

import (
	"fmt"

	"github.com/andrei-cloud/go_edplug/internal/plugins"
	"github.com/tetratelabs/wazero/api"
	"gopkg.in/yaml.v3"
)

// ManifestSection is the custom section holding a module's manifest.
const ManifestSection = "editor.manifest"

// Manifest declares a module's identity and exported types. It is stored as
// YAML (or JSON) in the ManifestSection custom section.
//
//	identity: Outline.editor@1.2.0
//	types:
//	  - name: OutlinePanel
//	    implements: [editor.plugin]
type Manifest struct {
	Identity string             `yaml:"identity"`
	Types    []plugins.TypeInfo `yaml:"types"`
}

// ParseManifest decodes a manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	for i, t := range m.Types {
		if t.Name == "" {
			return nil, fmt.Errorf("invalid manifest: type %d has no name", i)
		}
	}

	return &m, nil
}

// manifestOf returns the manifest of a compiled module, or an empty one when
// the module carries none.
func manifestOf(sections []api.CustomSection) (*Manifest, error) {
	for _, s := range sections {
		if s.Name() == ManifestSection {
			return ParseManifest(s.Data())
		}
	}

	return &Manifest{}, nil
}
