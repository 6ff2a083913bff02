package types

// RunMode selects the deployment profile a process was started in.
type RunMode string

const (
	ModeLocal RunMode = "local"
	ModeDev   RunMode = "development"
	ModeProd  RunMode = "production"
)

// LogLevel controls the minimum severity the logger emits.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
