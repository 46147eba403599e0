package logger

// Component names used across the codebase so log output can be filtered
// per subsystem.
const (
	ComponentApp       = "app"
	ComponentEditor    = "editor"
	ComponentSink      = "sink"
	ComponentStorage   = "storage"
	ComponentWorkspace = "workspace"
	ComponentSession   = "session"
	ComponentAutosave  = "autosave"
)
