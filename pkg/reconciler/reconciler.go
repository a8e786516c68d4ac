// Package reconciler turns LEGISinfo bill records into catalog writes.
//
// Each record is matched to the Bill and BillInSession it describes, or new
// ones are created. A bill appearing for the first time in a session may be
// a re-introduction of a bill from the previous session, in which case it is
// attached to that bill instead of creating a duplicate. Every mutable field
// is reconciled independently and entities are written only when their
// changeset is non-empty: first the Bill, which gives it an identity, then
// the BillInSession that points at it.
package reconciler

import (
	"context"
	stderrors "errors"

	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/differ"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/legisinfo"
	"github.com/agentstation/legisync/pkg/logging"
)

var errNoIdentity = stderrors.New("bill has no identity")

// Reconciler reconciles feed records into a catalog transaction.
type Reconciler struct {
	options *options
}

// New creates a reconciler.
func New(opts ...Option) (*Reconciler, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	return &Reconciler{options: o}, nil
}

// Strategy returns the deduplication strategy in use.
func (r *Reconciler) Strategy() DedupStrategy {
	return r.options.strategy
}

// Reconcile reconciles one record, resolving the previous session on demand.
func (r *Reconciler) Reconcile(ctx context.Context, tx catalogs.Tx, record *legisinfo.Bill, session *catalogs.Session) (*Result, error) {
	previous, err := PreviousSession(ctx, tx, session)
	if err != nil {
		return nil, r.wrap(session, record, err)
	}
	return r.ReconcileWith(ctx, tx, record, session, previous)
}

// ReconcileWith reconciles one record against a previous session resolved
// by the caller. A nil previous means session is the first one known.
func (r *Reconciler) ReconcileWith(ctx context.Context, tx catalogs.Tx, record *legisinfo.Bill, session, previous *catalogs.Session) (*Result, error) {
	res, err := r.reconcile(ctx, tx, record, session, previous)
	if err != nil {
		return nil, r.wrap(session, record, err)
	}
	return res, nil
}

func (r *Reconciler) wrap(session *catalogs.Session, record *legisinfo.Bill, err error) error {
	return &errors.ImportError{
		Session:     session.ID,
		Number:      record.Number.String(),
		LegisinfoID: record.ID,
		Err:         err,
	}
}

func (r *Reconciler) reconcile(ctx context.Context, tx catalogs.Tx, record *legisinfo.Bill, session, previous *catalogs.Session) (*Result, error) {
	number := record.Number.String()
	ctx = logging.WithBill(ctx, number)
	logger := logging.FromContext(ctx)

	res := &Result{
		BillChanges: differ.New("bill"),
		LinkChanges: differ.New("bill_in_session"),
	}

	bill, link, err := tx.FindBillInSession(ctx, number, session.ID)
	switch {
	case errors.IsNotFound(err):
		bill = &catalogs.Bill{Number: number, OriginSessionID: session.ID}
		link = &catalogs.BillInSession{SessionID: session.ID}
		res.BillChanges.MarkCreated()
		res.LinkChanges.MarkCreated()
	case err != nil:
		return nil, err
	}

	differ.Apply(res.BillChanges, "name_en", &bill.NameEN, record.Titles.Get(legisinfo.English))

	// A bill that already has a status has been imported before; only
	// status-less bills are candidates for re-introduction.
	if bill.StatusEN == "" {
		bill, err = r.mergeReintroduced(ctx, tx, res, record, bill, link, previous)
		if err != nil {
			return nil, err
		}
	}

	differ.Apply(res.BillChanges, "name_fr", &bill.NameFR, record.Titles.Get(legisinfo.French))
	differ.Apply(res.BillChanges, "short_title_en", &bill.ShortTitleEN, record.ShortTitles.Get(legisinfo.English))
	differ.Apply(res.BillChanges, "short_title_fr", &bill.ShortTitleFR, record.ShortTitles.Get(legisinfo.French))

	if err := r.resolveSponsor(ctx, tx, res, record, bill, link, session); err != nil {
		return nil, err
	}

	introduced, err := record.Introduced()
	if err != nil {
		return nil, err
	}
	differ.Apply(res.LinkChanges, "introduced", &link.Introduced, introduced)
	if bill.Introduced.IsZero() {
		differ.Set(res.BillChanges, "introduced", &bill.Introduced, link.Introduced)
	}

	status, err := record.Status()
	if err != nil {
		return nil, err
	}
	if status != nil {
		differ.Set(res.BillChanges, "status_en", &bill.StatusEN, status.EN)
		differ.Apply(res.BillChanges, "status_fr", &bill.StatusFR, status.FR)
		differ.Apply(res.BillChanges, "status_date", &bill.StatusDate, status.Date)
	}

	docID, err := record.TextDocID()
	if err != nil {
		return nil, err
	}
	differ.Apply(res.BillChanges, "text_docid", &bill.TextDocID, docID)

	differ.Set(res.LinkChanges, "legisinfo_id", &link.LegisinfoID, record.ID)

	if err := persist(ctx, tx, res, bill, link); err != nil {
		return nil, err
	}

	if res.NewBill && session.Active() && r.options.sponsorActivity && bill.SponsorPoliticianID != 0 {
		activity := catalogs.NewSponsorActivity(bill)
		created, err := tx.RecordActivity(ctx, activity)
		if err != nil {
			return nil, errors.WrapResource("save", "activity", activity.GUID, err)
		}
		if created {
			res.Activity = activity
		}
	}

	res.Bill = bill
	res.Link = link
	res.Outcome = outcome(res)

	logger.Debug().
		Str("outcome", string(res.Outcome)).
		Stringer("bill_changes", res.BillChanges).
		Stringer("link_changes", res.LinkChanges).
		Msg("Reconciled bill")
	return res, nil
}

// mergeReintroduced looks for the bill this one re-introduces and returns
// the bill reconciliation should continue with.
func (r *Reconciler) mergeReintroduced(ctx context.Context, tx catalogs.Tx, res *Result, record *legisinfo.Bill,
	bill *catalogs.Bill, link *catalogs.BillInSession, previous *catalogs.Session) (*catalogs.Bill, error) {
	logger := logging.FromContext(ctx)

	match, err := r.options.strategy.Match(ctx, tx, bill, previous)
	var mergeErr *errors.MergeError
	switch {
	case stderrors.As(err, &mergeErr):
		logger.Error().Err(mergeErr).Msg("Bill may need to be merged")
		res.MergeIssue = mergeErr
		return bill, nil
	case err != nil:
		return nil, err
	case match == nil:
		// A bill merged on an earlier pass finds only itself in previous.
		res.NewBill = bill.OriginSessionID == link.SessionID
		return bill, nil
	case bill.Saved():
		// Two saved rows claim the same identity; leave them for a human.
		res.MergeIssue = errors.NewMergeError(bill.Number, previous.ID, bill.ID, match.ID)
		logger.Error().Err(res.MergeIssue).Msg("Bill may need to be merged")
		return bill, nil
	}

	logger.Warn().Int64("bill_id", match.ID).Str("previous_session", previous.ID).Msg("Merging bill")
	res.BillChanges = differ.New("bill")
	differ.Apply(res.BillChanges, "name_en", &match.NameEN, record.Titles.Get(legisinfo.English))
	differ.Set(res.LinkChanges, "bill_id", &link.BillID, match.ID)
	res.Merged = true
	return match, nil
}

// resolveSponsor attributes a Commons bill to its sponsor the first time
// the session link sees one. Lookup failures are logged and leave the
// sponsor unset.
func (r *Reconciler) resolveSponsor(ctx context.Context, tx catalogs.Tx, res *Result, record *legisinfo.Bill,
	bill *catalogs.Bill, link *catalogs.BillInSession, session *catalogs.Session) error {
	if link.SponsorPoliticianID != 0 || !bill.IsCommons() {
		return nil
	}
	parlID, err := record.SponsorParlID()
	if err != nil {
		return err
	}
	if parlID == 0 {
		return nil
	}
	logger := logging.FromContext(ctx)

	politician, err := tx.PoliticianByParlID(ctx, parlID)
	switch {
	case errors.IsNotFound(err):
		logger.Error().Int64("parl_id", parlID).Msg("Couldn't find sponsor politician")
		res.LinkChanges.Attempt("sponsor_politician_id")
	case err != nil:
		return err
	default:
		differ.Set(res.LinkChanges, "sponsor_politician_id", &link.SponsorPoliticianID, politician.ID)

		member, err := tx.ElectedMemberFor(ctx, politician.ID, session)
		switch {
		case errors.IsNotFound(err):
			logger.Error().Int64("politician_id", politician.ID).Msg("Couldn't find elected member for sponsor")
		case err != nil:
			return err
		default:
			differ.Set(res.LinkChanges, "sponsor_member_id", &link.SponsorMemberID, member.ID)
		}
	}

	if bill.SponsorPoliticianID == 0 {
		differ.Set(res.BillChanges, "sponsor_politician_id", &bill.SponsorPoliticianID, link.SponsorPoliticianID)
		differ.Set(res.BillChanges, "sponsor_member_id", &bill.SponsorMemberID, link.SponsorMemberID)
	}
	return nil
}

// persist writes the bill, which assigns its identity, and then the session
// link pointing at it. Each is written only when it changed.
func persist(ctx context.Context, tx catalogs.Tx, res *Result, bill *catalogs.Bill, link *catalogs.BillInSession) error {
	if res.BillChanges.HasChanges() {
		if err := tx.SaveBill(ctx, bill); err != nil {
			return errors.WrapResource("save", "bill", bill.Number, err)
		}
	}
	if !bill.Saved() {
		return errors.NewResourceError("link", "bill_in_session", bill.Number, errNoIdentity)
	}

	differ.Set(res.LinkChanges, "bill_id", &link.BillID, bill.ID)
	if res.LinkChanges.HasChanges() {
		if err := tx.SaveBillInSession(ctx, link); err != nil {
			return errors.WrapResource("save", "bill_in_session", bill.Number, err)
		}
	}
	return nil
}

func outcome(res *Result) Outcome {
	switch {
	case res.MergeIssue != nil:
		return OutcomeNeedsManualMerge
	case res.Merged:
		return OutcomeMerged
	case res.BillChanges.Created():
		return OutcomeCreated
	case res.Wrote():
		return OutcomeUpdated
	default:
		return OutcomeUnchanged
	}
}
