package logging

import "context"

// ContainerLogger records structured log lines for one container. The daemon
// injects an implementation bound to the container's id into the context of
// every iteration, so anything executed on the container's behalf can log
// into the container's own history.
type ContainerLogger interface {
	Log(level, message string, metadata map[string]interface{})
}

type contextKey int

const loggerKey contextKey = iota

// WithLogger attaches a container logger to the context.
func WithLogger(ctx context.Context, logger ContainerLogger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the container logger from the context, or a
// no-op logger when the request came from outside a container.
func LoggerFromContext(ctx context.Context) ContainerLogger {
	if logger, ok := ctx.Value(loggerKey).(ContainerLogger); ok {
		return logger
	}
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Log(level, message string, metadata map[string]interface{}) {}
