package legisync

import (
	"time"

	"github.com/agentstation/legisync/internal/lock"
	"github.com/agentstation/legisync/internal/metrics"
	"github.com/agentstation/legisync/internal/notify"
	sourcelegisinfo "github.com/agentstation/legisync/internal/sources/legisinfo"
	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/constants"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/reconciler"
)

// options holds the client configuration.
type options struct {
	store          catalogs.Store
	locker         lock.Locker
	metrics        *metrics.Metrics
	notifier       notify.Notifier
	fetcherOptions []sourcelegisinfo.Option
	reconciler     []reconciler.Option

	autoImportsEnabled bool
	autoImportInterval time.Duration
	importTimeout      time.Duration
}

func defaults() *options {
	return &options{
		locker:             lock.NewLocal(),
		notifier:           notify.Nop{},
		autoImportsEnabled: false,
		autoImportInterval: constants.DefaultImportInterval,
		importTimeout:      constants.ImportTimeout,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Option is a function that configures a Client.
type Option func(*options) error

// WithStore sets the catalog store. Without one the client keeps the
// catalog in memory.
func WithStore(store catalogs.Store) Option {
	return func(o *options) error {
		if store == nil {
			return &errors.ValidationError{Field: "store", Message: "cannot be nil"}
		}
		o.store = store
		return nil
	}
}

// WithLocker sets the lock that keeps concurrent imports of a session apart.
func WithLocker(locker lock.Locker) Option {
	return func(o *options) error {
		if locker == nil {
			return &errors.ValidationError{Field: "locker", Message: "cannot be nil"}
		}
		o.locker = locker
		return nil
	}
}

// WithMetrics records import metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithNotifier publishes sponsor activity after each committed import.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) error {
		if n == nil {
			n = notify.Nop{}
		}
		o.notifier = n
		return nil
	}
}

// WithFetcherOptions configures the feed fetcher, e.g. its endpoints or
// HTTP client.
func WithFetcherOptions(opts ...sourcelegisinfo.Option) Option {
	return func(o *options) error {
		o.fetcherOptions = append(o.fetcherOptions, opts...)
		return nil
	}
}

// WithReconcilerOptions configures the reconciliation engine.
func WithReconcilerOptions(opts ...reconciler.Option) Option {
	return func(o *options) error {
		o.reconciler = append(o.reconciler, opts...)
		return nil
	}
}

// WithAutoImports configures whether the current session is imported
// periodically.
func WithAutoImports(enabled bool) Option {
	return func(o *options) error {
		o.autoImportsEnabled = enabled
		return nil
	}
}

// WithAutoImportInterval configures how often the current session is imported.
func WithAutoImportInterval(interval time.Duration) Option {
	return func(o *options) error {
		o.autoImportInterval = interval
		return nil
	}
}

// WithImportTimeout bounds each automatic import.
func WithImportTimeout(timeout time.Duration) Option {
	return func(o *options) error {
		o.importTimeout = timeout
		return nil
	}
}

// ImportOptions configures a single import.
type ImportOptions struct {
	// DryRun reconciles everything and then rolls the transaction back.
	DryRun bool
	// Timeout bounds the import; zero means no bound beyond ctx.
	Timeout time.Duration
}

// ImportOption configures a single import.
type ImportOption func(*ImportOptions)

// WithDryRun rolls the import back after reconciling.
func WithDryRun(enabled bool) ImportOption {
	return func(o *ImportOptions) {
		o.DryRun = enabled
	}
}

// WithTimeout bounds the import.
func WithTimeout(timeout time.Duration) ImportOption {
	return func(o *ImportOptions) {
		o.Timeout = timeout
	}
}

// NewImportOptions applies opts over the defaults.
func NewImportOptions(opts ...ImportOption) *ImportOptions {
	o := &ImportOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
