package plugins

import (
	"strings"
)

// Kind tags a candidate file by naming convention.
type Kind int

// Candidate kinds.
const (
	// KindAuxiliary marks files that are neither editor plugins nor core modules.
	KindAuxiliary Kind = iota

	// KindEditorPlugin marks *.editor.<ext> files, loaded automatically.
	KindEditorPlugin

	// KindCoreModule marks *.core.<ext> files, owned by the core module loader.
	KindCoreModule
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindAuxiliary:
		return "auxiliary"
	case KindEditorPlugin:
		return "editor"
	case KindCoreModule:
		return "core"
	default:
		return "unknown"
	}
}

// Candidate is a file found while enumerating a base directory.
type Candidate struct {
	Path string
	Kind Kind
}

// Classifier derives a Kind from a file name. It must not inspect file contents.
type Classifier func(path string) Kind

// DefaultClassifier implements the *.editor.<ext> / *.core.<ext> convention.
var DefaultClassifier = SuffixClassifier(".editor", ".core")

// SuffixClassifier returns a Classifier matching the given stem suffixes
// case-insensitively after the library extension has been stripped.
func SuffixClassifier(editorSuffix, coreSuffix string) Classifier {
	editorSuffix = strings.ToLower(editorSuffix)
	coreSuffix = strings.ToLower(coreSuffix)

	return func(path string) Kind {
		stem := strings.ToLower(FileStem(path))
		switch {
		case hasNamedSuffix(stem, editorSuffix):
			return KindEditorPlugin
		case hasNamedSuffix(stem, coreSuffix):
			return KindCoreModule
		default:
			return KindAuxiliary
		}
	}
}

// hasNamedSuffix requires a non-empty name in front of the suffix.
func hasNamedSuffix(stem, suffix string) bool {
	return suffix != "" && len(stem) > len(suffix) && strings.HasSuffix(stem, suffix)
}
