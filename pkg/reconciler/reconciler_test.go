package reconciler_test

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/legisync/internal/catalogs/memory"
	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/legisinfo"
	"github.com/agentstation/legisync/pkg/logging"
	"github.com/agentstation/legisync/pkg/reconciler"
)

// fixture is a store with two consecutive sessions, 40-3 (ended) and 41-1
// (active), and one known sponsor.
type fixture struct {
	store    *memory.Store
	rec      *reconciler.Reconciler
	previous *catalogs.Session
	current  *catalogs.Session
}

func newFixture(t *testing.T, opts ...reconciler.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		previous: catalogs.TestSession(t, 40, 3, catalogs.TestDate(t, 2010, 3, 3), catalogs.TestDate(t, 2011, 3, 26)),
		current:  catalogs.TestSession(t, 41, 1, catalogs.TestDate(t, 2011, 6, 2), civil.Date{}),
	}
	rec, err := reconciler.New(opts...)
	require.NoError(t, err)
	f.rec = rec

	require.NoError(t, f.store.InTx(context.Background(), func(ctx context.Context, tx catalogs.Tx) error {
		require.NoError(t, tx.SaveSession(ctx, f.previous))
		require.NoError(t, tx.SaveSession(ctx, f.current))
		require.NoError(t, tx.SavePolitician(ctx, catalogs.TestPolitician(t, 1, 105)))
		return tx.SaveElectedMember(ctx, &catalogs.ElectedMember{
			ID:           2,
			PoliticianID: 1,
			Party:        "Conservative",
			Start:        catalogs.TestDate(t, 2008, 10, 14),
		})
	}))
	return f
}

func (f *fixture) reconcile(t *testing.T, ctx context.Context, record *legisinfo.Bill, session *catalogs.Session) (*reconciler.Result, error) {
	t.Helper()
	var res *reconciler.Result
	err := f.store.InTx(ctx, func(ctx context.Context, tx catalogs.Tx) error {
		var err error
		res, err = f.rec.Reconcile(ctx, tx, record, session)
		return err
	})
	return res, err
}

func (f *fixture) mustReconcile(t *testing.T, record *legisinfo.Bill, session *catalogs.Session) *reconciler.Result {
	t.Helper()
	res, err := f.reconcile(t, context.Background(), record, session)
	require.NoError(t, err)
	return res
}

func (f *fixture) bills(t *testing.T, sessionID string) []*catalogs.Bill {
	t.Helper()
	var bills []*catalogs.Bill
	require.NoError(t, f.store.InTx(context.Background(), func(ctx context.Context, tx catalogs.Tx) error {
		var err error
		bills, err = tx.ListBills(ctx, sessionID)
		return err
	}))
	return bills
}

func ptr[T any](v T) *T { return &v }

// record builds a feed record for a Commons bill.
func record(id int64, number, title string) *legisinfo.Bill {
	return &legisinfo.Bill{
		ID:     id,
		Number: legisinfo.BillNumber{Prefix: "C", Number: number},
		Titles: legisinfo.Titles{
			{Language: legisinfo.English, Text: title},
			{Language: legisinfo.French, Text: "Loi " + title},
		},
		ShortTitles: legisinfo.Titles{
			{Language: legisinfo.English, Text: "Short " + title},
			{Language: legisinfo.French, Text: "Court " + title},
		},
		IntroducedDate: ptr("2011-09-20T00:00:00"),
	}
}

func withStatus(b *legisinfo.Bill, status, date string) *legisinfo.Bill {
	b.LastMajorStage = &legisinfo.Event{
		Date: date,
		Status: legisinfo.Titles{
			{Language: legisinfo.English, Text: status},
			{Language: legisinfo.French, Text: status + " (fr)"},
		},
	}
	return b
}

func withSponsor(b *legisinfo.Bill, parlID string) *legisinfo.Bill {
	b.Sponsor = &legisinfo.SponsorAffiliation{ID: parlID}
	return b
}

func TestReconcileCreatesBill(t *testing.T) {
	f := newFixture(t)
	rec := withSponsor(withStatus(record(5001, "10", "Safe Streets"), "Royal Assent", "2012-03-13T00:00:00"), "105")
	rec.Publications = []legisinfo.Publication{{ID: "11"}, {ID: "12"}}

	res := f.mustReconcile(t, rec, f.current)

	assert.Equal(t, reconciler.OutcomeCreated, res.Outcome)
	assert.True(t, res.Bill.Saved())
	assert.Equal(t, "C-10", res.Bill.Number)
	assert.Equal(t, "Safe Streets", res.Bill.NameEN)
	assert.Equal(t, "Loi Safe Streets", res.Bill.NameFR)
	assert.Equal(t, "Short Safe Streets", res.Bill.ShortTitleEN)
	assert.Equal(t, "Court Safe Streets", res.Bill.ShortTitleFR)
	assert.Equal(t, "Royal Assent", res.Bill.StatusEN)
	assert.Equal(t, "Royal Assent (fr)", res.Bill.StatusFR)
	assert.Equal(t, catalogs.TestDate(t, 2012, 3, 13), res.Bill.StatusDate)
	assert.Equal(t, catalogs.TestDate(t, 2011, 9, 20), res.Bill.Introduced)
	assert.Equal(t, int64(12), res.Bill.TextDocID)
	assert.Equal(t, "41-1", res.Bill.OriginSessionID)
	assert.Equal(t, int64(1), res.Bill.SponsorPoliticianID)
	assert.Equal(t, int64(2), res.Bill.SponsorMemberID)

	assert.Equal(t, res.Bill.ID, res.Link.BillID)
	assert.Equal(t, "41-1", res.Link.SessionID)
	assert.Equal(t, int64(5001), res.Link.LegisinfoID)
	assert.Equal(t, int64(1), res.Link.SponsorPoliticianID)
	assert.Equal(t, int64(2), res.Link.SponsorMemberID)
	assert.Equal(t, catalogs.TestDate(t, 2011, 9, 20), res.Link.Introduced)

	// Nothing in 40-3 to merge with, so this is the bill's first import.
	assert.True(t, res.NewBill)
	require.NotNil(t, res.Activity)
	assert.Equal(t, int64(1), res.Activity.PoliticianID)
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFixture(t)
	rec := withSponsor(withStatus(record(5001, "10", "Safe Streets"), "Royal Assent", "2012-03-13T00:00:00"), "105")

	first := f.mustReconcile(t, rec, f.current)
	require.True(t, first.Wrote())
	writes := f.store.Writes()

	second := f.mustReconcile(t, rec, f.current)
	assert.Equal(t, reconciler.OutcomeUnchanged, second.Outcome)
	assert.False(t, second.BillChanges.HasChanges())
	assert.False(t, second.LinkChanges.HasChanges())
	assert.Equal(t, writes, f.store.Writes(), "second pass must not write")
	assert.Equal(t, first.Bill.ID, second.Bill.ID)
}

func TestReconcileUpdatesChangedFields(t *testing.T) {
	f := newFixture(t)
	f.mustReconcile(t, withStatus(record(5001, "10", "Safe Streets"), "First reading", "2011-09-20"), f.current)

	res := f.mustReconcile(t, withStatus(record(5001, "10", "Safe Streets"), "Second reading", "2011-10-01"), f.current)

	assert.Equal(t, reconciler.OutcomeUpdated, res.Outcome)
	assert.Equal(t, []string{"status_en", "status_fr", "status_date"}, res.BillChanges.Paths())
	assert.False(t, res.LinkChanges.HasChanges())

	change, ok := res.BillChanges.Field("status_en")
	require.True(t, ok)
	assert.Equal(t, "First reading", change.OldValue)
	assert.Equal(t, "Second reading", change.NewValue)
}

func TestReintroducedBillIsMerged(t *testing.T) {
	f := newFixture(t)
	earlier := f.mustReconcile(t, record(4001, "10", "An Act respecting Safe Streets"), f.previous)
	require.Equal(t, reconciler.OutcomeCreated, earlier.Outcome)

	res := f.mustReconcile(t, record(5001, "10", "AN ACT RESPECTING SAFE STREETS"), f.current)

	assert.Equal(t, reconciler.OutcomeMerged, res.Outcome)
	assert.True(t, res.Merged)
	assert.False(t, res.NewBill)
	assert.Equal(t, earlier.Bill.ID, res.Bill.ID)
	assert.Equal(t, earlier.Bill.ID, res.Link.BillID)
	assert.Equal(t, "40-3", res.Bill.OriginSessionID)

	bills, links := f.store.Counts()
	assert.Equal(t, 1, bills)
	assert.Equal(t, 2, links)
	assert.Len(t, f.bills(t, "40-3"), 1)
	assert.Len(t, f.bills(t, "41-1"), 1)

	// The merge pass stores the new casing, so the next pass is a no-op.
	assert.Equal(t, "AN ACT RESPECTING SAFE STREETS", res.Bill.NameEN)
	again := f.mustReconcile(t, record(5001, "10", "AN ACT RESPECTING SAFE STREETS"), f.current)
	assert.Equal(t, reconciler.OutcomeUnchanged, again.Outcome)
}

func TestMergedBillReimportWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.mustReconcile(t, withSponsor(record(4001, "10", "Safe Streets"), "105"), f.previous)

	merged := f.mustReconcile(t, withSponsor(record(5001, "10", "Safe Streets"), "105"), f.current)
	require.Equal(t, reconciler.OutcomeMerged, merged.Outcome)
	assert.False(t, merged.NewBill)
	assert.Nil(t, merged.Activity)
	writes := f.store.Writes()

	again := f.mustReconcile(t, withSponsor(record(5001, "10", "Safe Streets"), "105"), f.current)

	assert.Equal(t, reconciler.OutcomeUnchanged, again.Outcome)
	assert.False(t, again.NewBill)
	assert.Nil(t, again.Activity)
	assert.Equal(t, merged.Bill.ID, again.Bill.ID)
	assert.Equal(t, writes, f.store.Writes())
}

func TestDifferentTitlesAreNotMerged(t *testing.T) {
	f := newFixture(t)
	earlier := f.mustReconcile(t, record(4001, "10", "An Act respecting Safe Streets"), f.previous)

	res := f.mustReconcile(t, record(5001, "10", "An Act to amend the Criminal Code"), f.current)

	assert.Equal(t, reconciler.OutcomeCreated, res.Outcome)
	assert.True(t, res.NewBill)
	assert.NotEqual(t, earlier.Bill.ID, res.Bill.ID)

	bills, links := f.store.Counts()
	assert.Equal(t, 2, bills)
	assert.Equal(t, 2, links)
}

func TestBillWithStatusIsNotMerged(t *testing.T) {
	f := newFixture(t)
	f.mustReconcile(t, record(4001, "10", "Safe Streets"), f.previous)

	// The 41-1 bill gets a status on its first import, so a later title
	// change that matches 40-3 does not trigger a merge.
	res := f.mustReconcile(t, withStatus(record(5001, "10", "Other"), "First reading", "2011-09-20"), f.current)
	require.Equal(t, reconciler.OutcomeCreated, res.Outcome)

	res = f.mustReconcile(t, withStatus(record(5001, "10", "Safe Streets"), "First reading", "2011-09-20"), f.current)
	assert.Equal(t, reconciler.OutcomeUpdated, res.Outcome)
	assert.Nil(t, res.MergeIssue)
	bills, _ := f.store.Counts()
	assert.Equal(t, 2, bills)
}

func TestSavedDuplicateNeedsManualMerge(t *testing.T) {
	f := newFixture(t)
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	// Imported into the later session first, then the earlier one, so the
	// automatic merge never had a chance to run.
	later, err := f.reconcile(t, ctx, record(5001, "10", "Safe Streets"), f.current)
	require.NoError(t, err)
	earlier, err := f.reconcile(t, ctx, record(4001, "10", "Safe Streets"), f.previous)
	require.NoError(t, err)
	require.NotEqual(t, later.Bill.ID, earlier.Bill.ID)

	res, err := f.reconcile(t, ctx, record(5001, "10", "Safe Streets"), f.current)
	require.NoError(t, err)

	assert.Equal(t, reconciler.OutcomeNeedsManualMerge, res.Outcome)
	require.NotNil(t, res.MergeIssue)
	assert.Equal(t, later.Bill.ID, res.MergeIssue.BillID)
	assert.Equal(t, earlier.Bill.ID, res.MergeIssue.CandidateID)
	assert.ErrorIs(t, res.MergeIssue, errors.ErrNeedsManualMerge)
	assert.Equal(t, later.Bill.ID, res.Bill.ID, "both rows are kept")
	tl.AssertContains(t, "may need to be merged")

	bills, _ := f.store.Counts()
	assert.Equal(t, 2, bills)
}

func TestMissingStatusLeavesStatusUnchanged(t *testing.T) {
	f := newFixture(t)
	f.mustReconcile(t, withStatus(record(5001, "10", "Safe Streets"), "Royal Assent", "2012-03-13"), f.current)

	res := f.mustReconcile(t, record(5001, "10", "Safe Streets"), f.current)

	assert.Equal(t, reconciler.OutcomeUnchanged, res.Outcome)
	assert.Equal(t, "Royal Assent", res.Bill.StatusEN)
	assert.Equal(t, catalogs.TestDate(t, 2012, 3, 13), res.Bill.StatusDate)
}

func TestUnknownSponsorIsLoggedNotFatal(t *testing.T) {
	f := newFixture(t)
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	res, err := f.reconcile(t, ctx, withSponsor(record(5001, "10", "Safe Streets"), "999"), f.current)
	require.NoError(t, err)

	assert.Zero(t, res.Bill.SponsorPoliticianID)
	assert.Zero(t, res.Link.SponsorPoliticianID)
	assert.Zero(t, res.Link.SponsorMemberID)
	assert.Equal(t, "Safe Streets", res.Bill.NameEN)
	assert.Equal(t, catalogs.TestDate(t, 2011, 9, 20), res.Bill.Introduced)
	assert.True(t, res.Bill.Saved())
	assert.True(t, res.Link.ID != 0)

	tl.AssertContains(t, "Couldn't find sponsor politician")
	tl.AssertContains(t, `"parl_id":999`)
	tl.AssertContains(t, `"level":"error"`)
}

func TestSponsorWithoutMemberTerm(t *testing.T) {
	f := newFixture(t)
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	require.NoError(t, f.store.InTx(ctx, func(ctx context.Context, tx catalogs.Tx) error {
		return tx.SavePolitician(ctx, catalogs.TestPolitician(t, 30, 300))
	}))

	res, err := f.reconcile(t, ctx, withSponsor(record(5001, "10", "Safe Streets"), "300"), f.current)
	require.NoError(t, err)

	assert.Equal(t, int64(30), res.Bill.SponsorPoliticianID)
	assert.Zero(t, res.Bill.SponsorMemberID)
	tl.AssertContains(t, "Couldn't find elected member")
}

func TestSenateSponsorIsIgnored(t *testing.T) {
	f := newFixture(t)
	rec := withSponsor(record(5001, "4", "Senate Bill"), "105")
	rec.Number.Prefix = "S"

	res := f.mustReconcile(t, rec, f.current)
	assert.Equal(t, "S-4", res.Bill.Number)
	assert.Zero(t, res.Bill.SponsorPoliticianID)
	assert.Zero(t, res.Link.SponsorPoliticianID)
}

func TestSponsorActivityForNewBillInActiveSession(t *testing.T) {
	f := newFixture(t)

	res := f.mustReconcile(t, withSponsor(record(5001, "10", "Safe Streets"), "105"), f.current)
	require.True(t, res.NewBill)
	require.NotNil(t, res.Activity)
	assert.Equal(t, catalogs.ActivityBillSponsor, res.Activity.Variety)
	assert.Equal(t, res.Bill.ID, res.Activity.BillID)
	assert.Equal(t, int64(1), res.Activity.PoliticianID)

	again := f.mustReconcile(t, withSponsor(record(5001, "10", "Safe Streets"), "105"), f.current)
	assert.True(t, again.NewBill)
	assert.Nil(t, again.Activity, "activity is recorded once")
}

func TestNoSponsorActivityForEndedSession(t *testing.T) {
	f := newFixture(t)

	res := f.mustReconcile(t, withSponsor(record(4001, "10", "Safe Streets"), "105"), f.previous)
	assert.True(t, res.NewBill)
	assert.Nil(t, res.Activity)
}

func TestSponsorActivityDisabled(t *testing.T) {
	f := newFixture(t, reconciler.WithSponsorActivity(false))

	res := f.mustReconcile(t, withSponsor(record(5001, "10", "Safe Streets"), "105"), f.current)
	assert.True(t, res.NewBill)
	assert.Nil(t, res.Activity)
}

func TestMalformedDateAbortsTransaction(t *testing.T) {
	f := newFixture(t)
	rec := record(5001, "10", "Safe Streets")
	rec.IntroducedDate = ptr("bad-date")

	_, err := f.reconcile(t, context.Background(), rec, f.current)
	require.Error(t, err)

	var importErr *errors.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, "C-10", importErr.Number)
	assert.Equal(t, int64(5001), importErr.LegisinfoID)
	assert.Equal(t, "41-1", importErr.Session)

	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)

	bills, _ := f.store.Counts()
	assert.Zero(t, bills)
}

func TestIntroducedDateComesFromFirstSession(t *testing.T) {
	f := newFixture(t)
	earlier := record(4001, "10", "Safe Streets")
	earlier.IntroducedDate = ptr("2010-04-01T00:00:00")
	f.mustReconcile(t, earlier, f.previous)

	res := f.mustReconcile(t, record(5001, "10", "Safe Streets"), f.current)

	require.Equal(t, reconciler.OutcomeMerged, res.Outcome)
	assert.Equal(t, catalogs.TestDate(t, 2010, 4, 1), res.Bill.Introduced)
	assert.Equal(t, catalogs.TestDate(t, 2011, 9, 20), res.Link.Introduced)
}

func TestNeverStrategy(t *testing.T) {
	f := newFixture(t, reconciler.WithStrategy(reconciler.NewNeverStrategy()))
	f.mustReconcile(t, record(4001, "10", "Safe Streets"), f.previous)

	res := f.mustReconcile(t, record(5001, "10", "Safe Streets"), f.current)
	assert.Equal(t, reconciler.OutcomeCreated, res.Outcome)
	bills, _ := f.store.Counts()
	assert.Equal(t, 2, bills)
}

func TestNilStrategyRejected(t *testing.T) {
	_, err := reconciler.New(reconciler.WithStrategy(nil))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
