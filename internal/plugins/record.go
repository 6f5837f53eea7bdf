package plugins

// State represents the lifecycle state of a plugin record.
type State int

// Plugin states. Transitions only ever move forward.
const (
	// StateLoaded - module is loaded and registered.
	StateLoaded State = iota

	// StateInitialized - the init hook has run.
	StateInitialized

	// StateDisposed - the terminate hook has run.
	StateDisposed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateInitialized:
		return "initialized"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Record is the registry entry of a loaded editor plugin.
type Record struct {
	Identity   string
	Name       string
	Path       string
	Module     Module
	PluginType TypeInfo

	// Err holds the error of the last lifecycle hook, if any.
	Err error

	state State
}

// State returns the current lifecycle state.
func (r *Record) State() State {
	return r.state
}

// advance moves the record one step forward to next.
// It reports false, leaving the record untouched, for any other transition.
func (r *Record) advance(next State) bool {
	if next != r.state+1 {
		return false
	}
	r.state = next

	return true
}

func newRecord(mod Module, path string, pluginType TypeInfo) *Record {
	return &Record{
		Identity:   mod.Identity(),
		Name:       mod.ShortName(),
		Path:       path,
		Module:     mod,
		PluginType: pluginType,
		state:      StateLoaded,
	}
}
