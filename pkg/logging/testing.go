package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// TestLogger records JSON log lines at trace level for assertions.
type TestLogger struct {
	*zerolog.Logger
	buf *bytes.Buffer
}

// NewTestLogger returns a recording logger. The global level is lowered to
// trace until the test ends.
func NewTestLogger(t testing.TB) *TestLogger {
	t.Helper()

	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	buf := &bytes.Buffer{}
	logger := zerolog.New(buf).Level(zerolog.TraceLevel).With().Timestamp().Logger()
	return &TestLogger{Logger: &logger, buf: buf}
}

// Output returns everything logged so far.
func (tl *TestLogger) Output() string {
	return tl.buf.String()
}

// Lines returns one entry per log line.
func (tl *TestLogger) Lines() []string {
	out := strings.TrimSpace(tl.buf.String())
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// Clear drops recorded output.
func (tl *TestLogger) Clear() {
	tl.buf.Reset()
}

// AssertContains fails t unless some line contains substr.
func (tl *TestLogger) AssertContains(t testing.TB, substr string) bool {
	t.Helper()
	return assert.Contains(t, tl.Output(), substr)
}

// AssertNotContains fails t if any line contains substr.
func (tl *TestLogger) AssertNotContains(t testing.TB, substr string) bool {
	t.Helper()
	return assert.NotContains(t, tl.Output(), substr)
}
