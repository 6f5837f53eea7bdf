package plugins

import "errors"

// Plugin system errors.
var (
	// ErrInvalidArgument is returned when the Manager is misused.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidModule is returned by loaders for unreadable or malformed modules.
	ErrInvalidModule = errors.New("invalid module")

	// ErrNoPluginCapability is returned when a module exports no plugin type.
	ErrNoPluginCapability = errors.New("module exports no plugin capability")
)
