package app

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/agentstation/legisync/pkg/logging"
)

var knownLevels = []string{"trace", "debug", "info", "warn", "error"}

// NewLogger builds the CLI logger. The level comes from, in order:
// --log-level or LOG_LEVEL, then --quiet (warn), then --verbose (debug),
// then info.
func NewLogger(config *Config) zerolog.Logger {
	level, warning := logLevel(config)

	logConfig := logging.DefaultConfig()
	logConfig.Level = level
	logConfig.Format = config.LogFormat
	logConfig.Output = config.LogOutput
	logConfig.NoColor = config.NoColor
	logConfig.AddCaller = level == "debug" || level == "trace"

	logger := logging.NewLoggerFromConfig(logConfig)
	if warning != "" {
		logger.Warn().Str("level", level).Msg(warning)
	}
	return logger
}

// logLevel resolves the level and explains any input it had to ignore.
func logLevel(config *Config) (level, warning string) {
	switch {
	case config.LogLevel != "" && slices.Contains(knownLevels, config.LogLevel):
		return config.LogLevel, ""
	case config.LogLevel != "":
		return "info", "Unknown log level " + config.LogLevel + ", using info"
	case config.Quiet && config.Verbose:
		return "warn", "Both --verbose and --quiet given, using --quiet"
	case config.Quiet:
		return "warn", ""
	case config.Verbose:
		return "debug", ""
	}
	return "info", ""
}
