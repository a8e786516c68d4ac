package reconciler

import (
	"github.com/agentstation/legisync/pkg/errors"
)

// options configures a reconciler.
type options struct {
	strategy        DedupStrategy
	sponsorActivity bool
}

func defaultOptions() *options {
	return &options{
		strategy:        NewTitleMatchStrategy(),
		sponsorActivity: true,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithStrategy sets the re-introduction deduplication strategy.
func WithStrategy(strategy DedupStrategy) Option {
	return func(o *options) error {
		if strategy == nil {
			return &errors.ValidationError{
				Field:   "strategy",
				Message: "cannot be nil",
			}
		}
		o.strategy = strategy
		return nil
	}
}

// WithSponsorActivity controls whether newly imported bills in the active
// session record a sponsor activity entry.
func WithSponsorActivity(enabled bool) Option {
	return func(o *options) error {
		o.sponsorActivity = enabled
		return nil
	}
}
