// Package application provides the application interface for legisync commands.
//
// Commands accept this interface rather than the concrete app type so they
// can be tested against a mock:
//
//	mock := &application.Mock{
//	    StoreFunc: func() (catalogs.Store, error) {
//	        return memory.New(), nil
//	    },
//	}
//	cmd := sessions.NewCommand(mock)
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/legisync"
	"github.com/agentstation/legisync/internal/metrics"
	"github.com/agentstation/legisync/pkg/catalogs"
)

// Application provides what commands need from the app.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Client returns the import client, creating it on first use. The
	// options apply only to the call that creates it.
	Client(opts ...legisync.Option) (legisync.Client, error)

	// Store returns the configured catalog store, opening it on first use.
	Store() (catalogs.Store, error)

	// Metrics returns the metrics the client records into.
	Metrics() *metrics.Metrics

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the requested output format.
	OutputFormat() string

	// Version returns the application version.
	Version() string
}
