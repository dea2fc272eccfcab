package log

import "context"

// loggerKey is the context key under which a Logger is stored.
type loggerKey struct{}

// ToContext returns a copy of ctx carrying the given Logger.
func ToContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the Logger stored in ctx, or a no-op Logger if none
// was set, so callers can log without a nil check.
func FromContext(ctx context.Context) Logger {
	logger, ok := ctx.Value(loggerKey{}).(Logger)
	if !ok {
		return noopLogger{}
	}

	return logger
}

// noopLogger discards every message.
type noopLogger struct{}

func (noopLogger) Debug(msg string, keysAndValues ...any) {}
func (noopLogger) Info(msg string, keysAndValues ...any)  {}
func (noopLogger) Error(msg string, keysAndValues ...any) {}
func (noopLogger) Warn(msg string, keysAndValues ...any)  {}
