package event

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"
)

var _ watermill.LoggerAdapter = watermillLogger{}

// WatermillLogger lets watermill publishers log through lg.
func WatermillLogger(lg log.Logger) watermill.LoggerAdapter {
	return watermillLogger{lg: log.OrNoop(lg).WithName("watermill")}
}

type watermillLogger struct {
	lg log.Logger
}

func (w watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.lg.Error(msg, append(kv(fields), "error", err)...)
}

func (w watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.lg.Info(msg, kv(fields)...)
}

func (w watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.lg.Debug(msg, kv(fields)...)
}

// Trace is logged at debug level.
func (w watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.lg.Debug(msg, kv(fields)...)
}

func (w watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	lg := w.lg
	for k, v := range fields {
		lg = lg.WithKV(k, v)
	}
	return watermillLogger{lg: lg}
}

func kv(fields watermill.LogFields) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
