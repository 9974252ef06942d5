package log

var _ Logger = SpanLogger{}

// SpanLogger writes every entry to the wrapped logger and mirrors it as a span event.
// Entries at error level and above mark the span as failed.
type SpanLogger struct {
	lg  Logger
	ser SpanEventRecorder
}

// NewSpanLogger wraps lg so that entries are also recorded through ser.
func NewSpanLogger(lg Logger, ser SpanEventRecorder) Logger {
	return SpanLogger{
		lg:  lg.AddCallerSkip(1),
		ser: ser,
	}
}

func (sl SpanLogger) Debug(msg string, keysAndValues ...any) {
	sl.ser.RecordEvent(msg, sl.spanAttrs(LevelDebug, keysAndValues)...)
	sl.lg.Debug(msg, sl.withTrace(keysAndValues)...)
}

func (sl SpanLogger) Info(msg string, keysAndValues ...any) {
	sl.ser.RecordEvent(msg, sl.spanAttrs(LevelInfo, keysAndValues)...)
	sl.lg.Info(msg, sl.withTrace(keysAndValues)...)
}

func (sl SpanLogger) Warn(msg string, keysAndValues ...any) {
	sl.ser.RecordEvent(msg, sl.spanAttrs(LevelWarn, keysAndValues)...)
	sl.lg.Warn(msg, sl.withTrace(keysAndValues)...)
}

func (sl SpanLogger) Error(msg string, keysAndValues ...any) {
	sl.ser.RecordError(msg, sl.spanAttrs(LevelError, keysAndValues)...)
	sl.lg.Error(msg, sl.withTrace(keysAndValues)...)
}

func (sl SpanLogger) Fatal(msg string, keysAndValues ...any) {
	sl.ser.RecordError(msg, sl.spanAttrs(LevelFatal, keysAndValues)...)
	sl.lg.Fatal(msg, sl.withTrace(keysAndValues)...)
}

func (sl SpanLogger) WithKV(key string, value any) Logger {
	return SpanLogger{lg: sl.lg.WithKV(key, value), ser: sl.ser}
}

func (sl SpanLogger) GetAllKV() []any {
	return sl.lg.GetAllKV()
}

func (sl SpanLogger) WithName(name string) Logger {
	return SpanLogger{lg: sl.lg.WithName(name), ser: sl.ser}
}

func (sl SpanLogger) Name() string {
	return sl.lg.Name()
}

func (sl SpanLogger) AddCallerSkip(skip int) Logger {
	return SpanLogger{lg: sl.lg.AddCallerSkip(skip), ser: sl.ser}
}

// withTrace prefixes the entry with the trace and span ids.
func (sl SpanLogger) withTrace(keysAndValues []any) []any {
	return append([]any{
		"traceId", sl.ser.TraceID(),
		"spanId", sl.ser.SpanID(),
	}, keysAndValues...)
}

// spanAttrs builds the span event attributes: level, component, the logger's
// persistent pairs, then the entry's own pairs. Sensitive values are redacted
// because span exporters bypass the zap encoder.
func (sl SpanLogger) spanAttrs(level Level, keysAndValues []any) []any {
	attrs := append([]any{
		"level", string(level),
		"component", sl.lg.Name(),
	}, sl.lg.GetAllKV()...)
	return Redact(append(attrs, keysAndValues...))
}
