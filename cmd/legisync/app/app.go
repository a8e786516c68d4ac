// Package app provides the application context and dependency management
// for the legisync CLI. Configuration, logging and the import client live
// here so commands only receive what they need.
package app

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/legisync"
	"github.com/agentstation/legisync/cmd/application"
	"github.com/agentstation/legisync/internal/catalogs/sqlstore"
	"github.com/agentstation/legisync/internal/lock"
	"github.com/agentstation/legisync/internal/metrics"
	"github.com/agentstation/legisync/internal/notify"
	sourcelegisinfo "github.com/agentstation/legisync/internal/sources/legisinfo"
	"github.com/agentstation/legisync/internal/transport"
	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/logging"
)

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// App represents the legisync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config  *Config
	logger  *zerolog.Logger
	metrics *metrics.Metrics

	// Lazily created, singletons
	mu     sync.Mutex
	store  catalogs.Store
	client legisync.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		metrics: metrics.New(),
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Metrics returns the metrics every import records into.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// OutputFormat returns the requested output format.
func (a *App) OutputFormat() string {
	return a.config.Output
}

// Store returns the catalog store, opening it on first use.
func (a *App) Store() (catalogs.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.openStore()
}

func (a *App) openStore() (catalogs.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	ctx := logging.WithLogger(context.Background(), a.logger)
	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:      a.config.DatabaseDriver,
		DSN:         a.config.DatabaseDSN,
		AutoMigrate: a.config.AutoMigrate,
	})
	if err != nil {
		return nil, errors.WrapResource("open", "store", a.config.DatabaseDriver, err)
	}
	a.store = store
	return store, nil
}

// Client returns the import client, creating it on first use. The options
// are applied after the configured ones, only when the client is created.
func (a *App) Client(extra ...legisync.Option) (legisync.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	opts, err := a.clientOptions()
	if err != nil {
		return nil, err
	}

	opts = append(opts, legisync.WithStore(store))
	client, err := legisync.New(append(opts, extra...)...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}
	a.client = client
	return client, nil
}

// clientOptions builds the client's collaborators from the configuration.
func (a *App) clientOptions() ([]legisync.Option, error) {
	opts := []legisync.Option{
		legisync.WithMetrics(a.metrics),
		legisync.WithAutoImportInterval(a.config.ImportInterval),
		legisync.WithImportTimeout(a.config.ImportTimeout),
		legisync.WithFetcherOptions(
			sourcelegisinfo.WithListURL(a.config.ListURL),
			sourcelegisinfo.WithBillURL(a.config.BillURL),
			sourcelegisinfo.WithClient(transport.New(sourcelegisinfo.SourceName,
				transport.WithTimeout(a.config.HTTPTimeout))),
		),
	}

	if a.config.RedisURL != "" {
		locker, err := lock.NewRedisFromURL(a.config.RedisURL, lock.WithTTL(a.config.LockTTL))
		if err != nil {
			return nil, err
		}
		opts = append(opts, legisync.WithLocker(locker))
	}

	if len(a.config.KafkaBrokers) > 0 {
		notifier, err := notify.NewKafka(notify.KafkaConfig{
			Brokers: a.config.KafkaBrokers,
			Topic:   a.config.KafkaTopic,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, legisync.WithNotifier(notifier))
	} else {
		opts = append(opts, legisync.WithNotifier(notify.Log{}))
	}

	return opts, nil
}

// Shutdown stops background imports and releases the client and store.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.client != nil {
		// Closing the client closes the store it owns.
		if err := a.client.Close(); err != nil {
			errs = append(errs, err)
		}
		a.client, a.store = nil, nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
		a.store = nil
	}
	return stderrors.Join(errs...)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithStore sets the catalog store instead of opening the configured one.
func WithStore(store catalogs.Store) Option {
	return func(a *App) error {
		a.store = store
		return nil
	}
}

// WithClient sets a custom client (useful for testing).
func WithClient(client legisync.Client) Option {
	return func(a *App) error {
		a.client = client
		return nil
	}
}
