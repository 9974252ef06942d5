package log

// Logger is the structured logger used across the SDK.
// Every method takes a message and an even list of key-value pairs.
type Logger interface {
	// Debug logs verbose diagnostics such as relayed surface frames.
	Debug(msg string, keysAndValues ...any)
	// Info logs state changes such as a completed login.
	Info(msg string, keysAndValues ...any)
	// Warn logs recoverable problems such as a failed session restore.
	Warn(msg string, keysAndValues ...any)
	// Error logs failures that abort an operation.
	Error(msg string, keysAndValues ...any)
	// Fatal logs and terminates the process. Library code never calls it.
	Fatal(msg string, keysAndValues ...any)
	// WithKV returns a child logger that always carries key=value.
	WithKV(key string, value any) Logger
	// GetAllKV returns the persistent key-value pairs of this logger.
	GetAllKV() []any
	// WithName returns a child logger named after a component ("auth", "surface").
	WithName(name string) Logger
	// Name returns the dotted component name.
	Name() string
	// AddCallerSkip returns a logger that skips extra frames when reporting the caller.
	AddCallerSkip(skip int) Logger
}

// Level is the severity of a log entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// SpanEventRecorder records log entries onto a trace span.
type SpanEventRecorder interface {
	TraceID() string
	SpanID() string
	// RecordEvent adds an event with keysAndValues as attributes.
	RecordEvent(name string, keysAndValues ...any)
	// RecordError adds an event and marks the span as failed.
	RecordError(name string, keysAndValues ...any)
}
