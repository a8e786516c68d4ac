// Package application provides a mock of the command application interface.
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/legisync"
	"github.com/agentstation/legisync/internal/metrics"
	"github.com/agentstation/legisync/pkg/catalogs"
)

// Mock provides a mock implementation of the command application for
// testing. If a function field is nil, the method returns a zero value.
type Mock struct {
	ClientFunc       func(opts ...legisync.Option) (legisync.Client, error)
	StoreFunc        func() (catalogs.Store, error)
	MetricsFunc      func() *metrics.Metrics
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
}

// Client returns a client using the mock function or nil.
func (m *Mock) Client(opts ...legisync.Option) (legisync.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc(opts...)
	}
	return nil, nil
}

// Store returns a store using the mock function or nil.
func (m *Mock) Store() (catalogs.Store, error) {
	if m.StoreFunc != nil {
		return m.StoreFunc()
	}
	return nil, nil
}

// Metrics returns metrics using the mock function or nil.
func (m *Mock) Metrics() *metrics.Metrics {
	if m.MetricsFunc != nil {
		return m.MetricsFunc()
	}
	return nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the output format using the mock function or "json".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "json"
}

// Version returns the version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}
