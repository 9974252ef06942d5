package log_test

import "github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"

var _ log.SpanEventRecorder = &mockRecorder{}

type recordedEvent struct {
	name  string
	kv    []any
	error bool
}

type mockRecorder struct {
	events []recordedEvent
}

func (m *mockRecorder) TraceID() string { return "trace-1" }
func (m *mockRecorder) SpanID() string  { return "span-1" }

func (m *mockRecorder) RecordEvent(name string, keysAndValues ...any) {
	m.events = append(m.events, recordedEvent{name: name, kv: keysAndValues})
}

func (m *mockRecorder) RecordError(name string, keysAndValues ...any) {
	m.events = append(m.events, recordedEvent{name: name, kv: keysAndValues, error: true})
}
