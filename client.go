// Package legisync imports LEGISinfo bill records into a bill catalog.
//
// The client ties together the feed fetcher, the reconciliation engine and
// a transactional catalog store. Every import runs in one transaction under
// a per-session lock: either every record of the batch is reconciled and
// committed, or nothing is. Committed results are reported through event
// hooks, Prometheus metrics and an optional activity notifier.
//
// Example usage:
//
//	store, err := sqlstore.Open(ctx, sqlstore.Config{DSN: "catalog.db", AutoMigrate: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := legisync.New(legisync.WithStore(store))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.OnBillMerged(func(res *reconciler.Result) {
//	    log.Printf("%s re-introduced as bill %d", res.Bill.Number, res.Bill.ID)
//	})
//
//	summary, err := client.ImportSession(ctx, "41-1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(summary)
package legisync

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/agentstation/legisync/internal/catalogs/memory"
	sourcelegisinfo "github.com/agentstation/legisync/internal/sources/legisinfo"
	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/reconciler"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Client imports bills and exposes the catalog they are imported into.
type Client interface {
	// Importer runs imports
	Importer

	// AutoImporter provides access to periodic import controls
	AutoImporter

	// Hooks provides access to event callback registration
	Hooks

	// Store returns the catalog store
	Store() catalogs.Store

	// Close stops auto-imports and releases everything the client holds.
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {
	options    *options
	store      catalogs.Store
	fetcher    *sourcelegisinfo.Fetcher
	reconciler *reconciler.Reconciler
	*hooks

	// auto import state
	mu           sync.Mutex
	importTicker *time.Ticker
	stopCh       chan struct{}
	importCancel context.CancelFunc
	importWG     sync.WaitGroup
}

// New creates a new Client with the given options.
func New(opts ...Option) (Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}
	if o.store == nil {
		o.store = memory.New()
	}

	rec, err := reconciler.New(o.reconciler...)
	if err != nil {
		return nil, errors.WrapResource("create", "reconciler", "", err)
	}

	fetcherOpts := make([]sourcelegisinfo.Option, 0, len(o.fetcherOptions)+1)
	if o.metrics != nil {
		m := o.metrics
		fetcherOpts = append(fetcherOpts, sourcelegisinfo.WithPageObserver(func(parliament, session, _, records int) {
			m.ObservePage(catalogs.SessionID(parliament, session), records)
		}))
	}
	fetcherOpts = append(fetcherOpts, o.fetcherOptions...)

	c := &client{
		options:    o,
		store:      o.store,
		fetcher:    sourcelegisinfo.New(fetcherOpts...),
		reconciler: rec,
		hooks:      newHooks(),
		stopCh:     make(chan struct{}),
	}

	if o.autoImportsEnabled {
		if err := c.AutoImportsOn(); err != nil {
			return nil, errors.WrapResource("start", "auto-imports", "", err)
		}
	}
	return c, nil
}

// Store returns the catalog store.
func (c *client) Store() catalogs.Store {
	return c.store
}

// Close stops auto-imports and releases resources.
func (c *client) Close() error {
	if err := c.AutoImportsOff(); err != nil {
		return err
	}
	var errs []error
	if err := c.options.notifier.Close(); err != nil {
		errs = append(errs, errors.WrapResource("close", "notifier", "", err))
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, errors.WrapResource("close", "store", "", err))
	}
	if closer, ok := c.options.locker.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, errors.WrapResource("close", "locker", "", err))
		}
	}
	return stderrors.Join(errs...)
}
