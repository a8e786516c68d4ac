package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		want    string
		warning bool
	}{
		{"info by default", &Config{}, "info", false},
		{"verbose is debug", &Config{Verbose: true}, "debug", false},
		{"quiet is warn", &Config{Quiet: true}, "warn", false},
		{"quiet wins over verbose", &Config{Verbose: true, Quiet: true}, "warn", true},
		{"explicit level wins over verbose", &Config{LogLevel: "error", Verbose: true}, "error", false},
		{"explicit level wins over quiet", &Config{LogLevel: "trace", Quiet: true}, "trace", false},
		{"unknown level is info", &Config{LogLevel: "loud"}, "info", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, warning := logLevel(tt.config)
			assert.Equal(t, tt.want, level)
			assert.Equal(t, tt.warning, warning != "")
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(&Config{Quiet: true, LogOutput: "discard"})
	assert.Equal(t, "warn", logger.GetLevel().String())
}
