// Package log is the structured logger of the MirrorWorld SDK.
//
// Components receive a Logger at construction and name it after themselves:
//
//	lg := log.NewZapLogger(log.Config{Format: "logfmt", Level: log.LevelDebug})
//	session := auth.NewSession(auth.Config{Logger: lg.WithName("auth")}, ...)
//
// Request-scoped code reads the logger from the context instead. When the
// context carries an OpenTelemetry span, SetContextLogger wraps the logger so
// each entry is also recorded as a span event:
//
//	ctx = log.SetContextLogger(ctx, lg)
//	log.FromContext(ctx).Info("approval requested", "uuid", action.UUID)
//
// Values logged under credential keys (accessToken, refreshToken, secret,
// apiKey, authorization and their snake_case forms) never reach a sink; they
// are replaced with RedactedValue by ZapLogger and by SpanLogger.
//
// The LOG_FORMAT, LOG_LEVEL and LOG_OUTPUT environment variables populate
// Config through cleanenv.
package log
