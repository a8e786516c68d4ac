// Package logging provides structured logging for legisync using zerolog.
//
// Interactive runs get zerolog's console writer; scheduled imports and
// redirected output get one JSON object per line. Import state (run id,
// session, bill) travels on the context so every line emitted while
// reconciling a record carries it:
//
//	ctx = logging.WithSession(ctx, "41-1")
//	logging.FromContext(ctx).Debug().Str("bill", "C-10").Msg("Reconciled")
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	defaultLogger = NewLoggerFromConfig(DefaultConfig())

	// Nop discards everything.
	Nop = zerolog.Nop()
)

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger, including zerolog's global one.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// Debug starts a debug event on the default logger.
func Debug() *zerolog.Event { return defaultLogger.Debug() }

// Info starts an info event on the default logger.
func Info() *zerolog.Event { return defaultLogger.Info() }

// Warn starts a warning event on the default logger.
func Warn() *zerolog.Event { return defaultLogger.Warn() }

// Error starts an error event on the default logger.
func Error() *zerolog.Event { return defaultLogger.Error() }
