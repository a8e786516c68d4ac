package legisync

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/legisync/internal/lock"
	"github.com/agentstation/legisync/internal/metrics"
	"github.com/agentstation/legisync/internal/notify"
	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/logging"
	"github.com/agentstation/legisync/pkg/reconciler"
)

// Importer runs imports. Each import is one transaction: any error rolls
// back everything the import wrote.
type Importer interface {
	// ImportSession reconciles every bill the feed lists for a session.
	ImportSession(ctx context.Context, sessionID string, opts ...ImportOption) (*reconciler.Summary, error)

	// ImportCurrent imports the session with the latest start date.
	ImportCurrent(ctx context.Context, opts ...ImportOption) (*reconciler.Summary, error)

	// ImportBill fetches and reconciles a single bill by its legisinfo id.
	ImportBill(ctx context.Context, legisinfoID int64, opts ...ImportOption) (*reconciler.Result, error)
}

// errDryRun rolls back a dry-run transaction.
var errDryRun = stderrors.New("dry run")

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// ImportSession implements Importer.
func (c *client) ImportSession(ctx context.Context, sessionID string, opts ...ImportOption) (*reconciler.Summary, error) {
	// Step 1: Parse options and bound the import
	options := NewImportOptions(opts...)
	ctx, cancel := withTimeout(ctx, options.Timeout)
	defer cancel()

	// Step 2: Validate the session id before taking any lock
	if _, _, err := catalogs.ParseSessionID(sessionID); err != nil {
		return nil, err
	}

	// Step 3: Tag every log line of this run
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	ctx = logging.WithSession(ctx, sessionID)
	ctx = logging.WithOperation(ctx, "import_session")
	logger := logging.FromContext(ctx)
	logger.Info().Bool("dry_run", options.DryRun).Msg("Importing session")

	// Step 4: Reconcile the whole feed in one transaction
	summary := reconciler.NewSummary(sessionID)
	summary.RunID = runID
	results, err := c.importSession(ctx, sessionID, summary, options)
	summary.Finish()
	c.options.metrics.ObserveImport(metrics.KindSession, sessionID, summary.Duration, err)
	if err != nil {
		logger.Error().Err(err).Int("records", summary.Records).Msg("Import rolled back")
		return nil, err
	}

	if options.DryRun {
		logger.Info().Bool("dry_run", true).Str("summary", summary.String()).Msg("Dry run completed - no changes applied")
		return summary, nil
	}

	// Step 5: Report what was committed
	c.committed(ctx, sessionID, results)
	c.triggerImportComplete(summary)

	logger.Info().
		Int("records", summary.Records).
		Int("written", summary.Written()).
		Int("issues", len(summary.Issues)).
		Dur("duration", summary.Duration).
		Msg("Import completed")
	return summary, nil
}

func (c *client) importSession(ctx context.Context, sessionID string, summary *reconciler.Summary, options *ImportOptions) ([]*reconciler.Result, error) {
	lease, err := c.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer c.release(ctx, lease)

	var results []*reconciler.Result
	err = c.store.InTx(ctx, func(ctx context.Context, tx catalogs.Tx) error {
		session, err := tx.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		previous, err := reconciler.PreviousSession(ctx, tx, session)
		if err != nil {
			return err
		}

		for record, err := range c.fetcher.SessionBills(ctx, session.ParliamentNumber, session.SessionNumber) {
			if err != nil {
				return err
			}
			res, err := c.reconciler.ReconcileWith(ctx, tx, record, session, previous)
			if err != nil {
				return err
			}
			results = append(results, res)
			summary.Add(res)
		}

		if options.DryRun {
			return errDryRun
		}
		return nil
	})
	if stderrors.Is(err, errDryRun) {
		return results, nil
	}
	return results, err
}

// ImportCurrent implements Importer.
func (c *client) ImportCurrent(ctx context.Context, opts ...ImportOption) (*reconciler.Summary, error) {
	current, err := c.currentSession(ctx)
	if err != nil {
		return nil, err
	}
	return c.ImportSession(ctx, current.ID, opts...)
}

func (c *client) currentSession(ctx context.Context) (*catalogs.Session, error) {
	var current *catalogs.Session
	err := c.store.InTx(ctx, func(ctx context.Context, tx catalogs.Tx) error {
		var err error
		current, err = reconciler.CurrentSession(ctx, tx)
		return err
	})
	return current, err
}

// ImportBill implements Importer.
func (c *client) ImportBill(ctx context.Context, legisinfoID int64, opts ...ImportOption) (*reconciler.Result, error) {
	options := NewImportOptions(opts...)
	ctx, cancel := withTimeout(ctx, options.Timeout)
	defer cancel()

	ctx = logging.WithRunID(ctx, uuid.NewString())
	ctx = logging.WithOperation(ctx, "import_bill")
	ctx = logging.WithField(ctx, "legisinfo_id", legisinfoID)

	start := time.Now()
	sessionID, res, err := c.importBill(ctx, legisinfoID, options)
	c.options.metrics.ObserveImport(metrics.KindBill, sessionID, time.Since(start), err)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("Bill import rolled back")
		return nil, err
	}
	if !options.DryRun {
		c.committed(logging.WithSession(ctx, sessionID), sessionID, []*reconciler.Result{res})
	}
	return res, nil
}

func (c *client) importBill(ctx context.Context, legisinfoID int64, options *ImportOptions) (string, *reconciler.Result, error) {
	record, err := c.fetcher.FetchBill(ctx, legisinfoID)
	if err != nil {
		return "", nil, err
	}

	// Single-bill records name their session; fall back to the current one.
	var sessionID string
	if ps := record.ParliamentSession; ps != nil && ps.ParliamentNumber > 0 && ps.SessionNumber > 0 {
		sessionID = catalogs.SessionID(ps.ParliamentNumber, ps.SessionNumber)
	} else {
		current, err := c.currentSession(ctx)
		if err != nil {
			return "", nil, err
		}
		sessionID = current.ID
	}
	ctx = logging.WithSession(ctx, sessionID)

	lease, err := c.acquire(ctx, sessionID)
	if err != nil {
		return sessionID, nil, err
	}
	defer c.release(ctx, lease)

	var res *reconciler.Result
	err = c.store.InTx(ctx, func(ctx context.Context, tx catalogs.Tx) error {
		session, err := tx.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		if res, err = c.reconciler.Reconcile(ctx, tx, record, session); err != nil {
			return err
		}
		if options.DryRun {
			return errDryRun
		}
		return nil
	})
	if stderrors.Is(err, errDryRun) {
		err = nil
	}
	return sessionID, res, err
}

func (c *client) acquire(ctx context.Context, sessionID string) (*lock.Lease, error) {
	return c.options.locker.Acquire(ctx, lock.SessionKey(sessionID))
}

func (c *client) release(ctx context.Context, lease *lock.Lease) {
	// The import may have been canceled; releasing must still happen.
	if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("key", lease.Key()).Msg("Failed to release import lock")
	}
}

// committed reports results of a committed transaction to metrics, hooks
// and the notifier. Notification failures are logged, not returned.
func (c *client) committed(ctx context.Context, sessionID string, results []*reconciler.Result) {
	var events []notify.Event
	for _, res := range results {
		c.options.metrics.ObserveResult(res)
		if res.Activity != nil {
			events = append(events, notify.NewEvent(logging.RunID(ctx), sessionID, res.Activity))
		}
	}

	c.triggerResults(results)

	if err := c.options.notifier.Notify(ctx, events...); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Int("events", len(events)).Msg("Failed to publish sponsor activity")
	}
}
