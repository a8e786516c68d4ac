package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{ name string }

var (
	loggerKey = ctxKey{"logger"}
	runIDKey  = ctxKey{"run_id"}
)

// WithLogger stores logger on ctx. A nil logger stores the default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored on ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
			return logger
		}
	}
	return Default()
}

// Ctx is shorthand for FromContext.
func Ctx(ctx context.Context) *zerolog.Logger {
	return FromContext(ctx)
}

// WithRunID records the import run id on ctx and on its logger.
func WithRunID(ctx context.Context, runID string) context.Context {
	return WithField(context.WithValue(ctx, runIDKey, runID), "run_id", runID)
}

// RunID returns the import run id, or "" outside an import.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithFields derives a logger carrying fields.
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	logger := FromContext(ctx).With().Fields(fields).Logger()
	return WithLogger(ctx, &logger)
}

// WithField derives a logger carrying one field.
func WithField(ctx context.Context, key string, value any) context.Context {
	logger := FromContext(ctx).With().Interface(key, value).Logger()
	return WithLogger(ctx, &logger)
}

// WithSession tags lines with a session id such as "41-1".
func WithSession(ctx context.Context, sessionID string) context.Context {
	return WithField(ctx, "session", sessionID)
}

// WithBill tags lines with a bill number such as "C-10".
func WithBill(ctx context.Context, number string) context.Context {
	return WithField(ctx, "bill", number)
}

// WithOperation tags lines with the running operation.
func WithOperation(ctx context.Context, operation string) context.Context {
	return WithField(ctx, "operation", operation)
}
