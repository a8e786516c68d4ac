package sqlstore_test

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/legisync/internal/catalogs/sqlstore"
	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/legisinfo"
	"github.com/agentstation/legisync/pkg/reconciler"
)

func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.Open(context.Background(), sqlstore.Config{
		Driver:      sqlstore.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "catalog.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, store *sqlstore.Store) (previous, current *catalogs.Session) {
	t.Helper()
	previous = catalogs.TestSession(t, 40, 3, catalogs.TestDate(t, 2010, 3, 3), catalogs.TestDate(t, 2011, 3, 26))
	current = catalogs.TestSession(t, 41, 1, catalogs.TestDate(t, 2011, 6, 2), civil.Date{})
	require.NoError(t, store.InTx(context.Background(), func(ctx context.Context, tx catalogs.Tx) error {
		require.NoError(t, tx.SaveSession(ctx, current))
		require.NoError(t, tx.SaveSession(ctx, previous))
		require.NoError(t, tx.SavePolitician(ctx, catalogs.TestPolitician(t, 1, 105)))
		return tx.SaveElectedMember(ctx, &catalogs.ElectedMember{
			ID:           2,
			PoliticianID: 1,
			Party:        "Conservative",
			Start:        catalogs.TestDate(t, 2008, 10, 14),
		})
	}))
	return previous, current
}

func inTx(t *testing.T, store *sqlstore.Store, fn func(ctx context.Context, tx catalogs.Tx)) {
	t.Helper()
	require.NoError(t, store.InTx(context.Background(), func(ctx context.Context, tx catalogs.Tx) error {
		fn(ctx, tx)
		return nil
	}))
}

func TestMigrate(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	// Already applied by Open.
	require.NoError(t, store.Migrate(ctx))

	status, err := store.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.Version)
	assert.False(t, status.Dirty)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: "oracle"})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestSessions(t *testing.T) {
	store := openStore(t)
	previous, current := seed(t, store)

	inTx(t, store, func(ctx context.Context, tx catalogs.Tx) {
		sessions, err := tx.Sessions(ctx)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, previous, sessions[0])
		assert.Equal(t, current, sessions[1])
		assert.True(t, sessions[1].Active())

		s, err := tx.SessionByNumber(ctx, 41, 1)
		require.NoError(t, err)
		assert.Equal(t, "41-1", s.ID)

		_, err = tx.Session(ctx, "39-2")
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestBillRoundTrip(t *testing.T) {
	store := openStore(t)
	_, current := seed(t, store)

	bill := &catalogs.Bill{
		Number:              "C-10",
		NameEN:              "An Act",
		StatusEN:            "Royal Assent",
		StatusDate:          catalogs.TestDate(t, 2012, 3, 13),
		Introduced:          catalogs.TestDate(t, 2011, 9, 20),
		SponsorPoliticianID: 1,
		SponsorMemberID:     2,
		TextDocID:           5465759,
		OriginSessionID:     current.ID,
	}
	link := &catalogs.BillInSession{
		SessionID:   current.ID,
		LegisinfoID: 5123456,
		Introduced:  catalogs.TestDate(t, 2011, 9, 20),
	}

	inTx(t, store, func(ctx context.Context, tx catalogs.Tx) {
		_, _, err := tx.FindBillInSession(ctx, "C-10", current.ID)
		assert.True(t, errors.IsNotFound(err))

		require.NoError(t, tx.SaveBill(ctx, bill))
		require.NotZero(t, bill.ID)
		link.BillID = bill.ID
		require.NoError(t, tx.SaveBillInSession(ctx, link))
		require.NotZero(t, link.ID)
	})

	inTx(t, store, func(ctx context.Context, tx catalogs.Tx) {
		gotBill, gotLink, err := tx.FindBillInSession(ctx, "C-10", current.ID)
		require.NoError(t, err)
		assert.Equal(t, bill, gotBill)
		assert.Equal(t, link, gotLink)

		bills, err := tx.ListBills(ctx, "")
		require.NoError(t, err)
		assert.Len(t, bills, 1)
	})
}

func TestSaveBillKeepsOriginSession(t *testing.T) {
	store := openStore(t)
	previous, current := seed(t, store)

	bill := &catalogs.Bill{Number: "C-2", OriginSessionID: previous.ID}
	inTx(t, store, func(ctx context.Context, tx catalogs.Tx) {
		require.NoError(t, tx.SaveBill(ctx, bill))
		bill.OriginSessionID = current.ID
		bill.NameEN = "Renamed"
		require.NoError(t, tx.SaveBill(ctx, bill))
	})

	inTx(t, store, func(ctx context.Context, tx catalogs.Tx) {
		bills, err := tx.ListBills(ctx, "")
		require.NoError(t, err)
		require.Len(t, bills, 1)
		assert.Equal(t, "Renamed", bills[0].NameEN)
		assert.Equal(t, previous.ID, bills[0].OriginSessionID)
	})
}

func TestSaveUnknownBill(t *testing.T) {
	store := openStore(t)
	seed(t, store)

	inTx(t, store, func(ctx context.Context, tx catalogs.Tx) {
		err := tx.SaveBill(ctx, &catalogs.Bill{ID: 99, Number: "C-1"})
		assert.True(t, errors.IsNotFound(err))

		err = tx.SaveBill(ctx, &catalogs.Bill{})
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestDuplicateLink(t *testing.T) {
	store := openStore(t)
	_, current := seed(t, store)

	inTx(t, store, func(ctx context.Context, tx catalogs.Tx) {
		bill := &catalogs.Bill{Number: "C-3"}
		require.NoError(t, tx.SaveBill(ctx, bill))
		require.NoError(t, tx.SaveBillInSession(ctx, &catalogs.BillInSession{BillID: bill.ID, SessionID: current.ID}))

		err := tx.SaveBillInSession(ctx, &catalogs.BillInSession{BillID: bill.ID, SessionID: current.ID})
		require.Error(t, err)
		assert.True(t, errors.IsAlreadyExists(err))
	})
}

func TestRollback(t *testing.T) {
	store := openStore(t)
	seed(t, store)

	boom := stderrors.New("boom")
	err := store.InTx(context.Background(), func(ctx context.Context, tx catalogs.Tx) error {
		require.NoError(t, tx.SaveBill(ctx, &catalogs.Bill{Number: "C-4"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	inTx(t, store, func(ctx context.Context, tx catalogs.Tx) {
		bills, err := tx.ListBills(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, bills)
	})
}

func TestElectedMemberFor(t *testing.T) {
	store := openStore(t)
	previous, current := seed(t, store)

	inTx(t, store, func(ctx context.Context, tx catalogs.Tx) {
		member, err := tx.ElectedMemberFor(ctx, 1, current)
		require.NoError(t, err)
		assert.Equal(t, int64(2), member.ID)

		_, err = tx.ElectedMemberFor(ctx, 42, previous)
		assert.True(t, errors.IsNotFound(err))

		err = tx.SaveElectedMember(ctx, &catalogs.ElectedMember{PoliticianID: 42, Start: previous.Start})
		assert.True(t, errors.IsNotFound(err))

		p, err := tx.PoliticianByParlID(ctx, 105)
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.ID)

		_, err = tx.PoliticianByParlID(ctx, 999)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestRecordActivityOnce(t *testing.T) {
	store := openStore(t)
	seed(t, store)

	inTx(t, store, func(ctx context.Context, tx catalogs.Tx) {
		bill := &catalogs.Bill{Number: "C-5", SponsorPoliticianID: 1, Introduced: catalogs.TestDate(t, 2011, 9, 20)}
		require.NoError(t, tx.SaveBill(ctx, bill))

		created, err := tx.RecordActivity(ctx, catalogs.NewSponsorActivity(bill))
		require.NoError(t, err)
		assert.True(t, created)

		created, err = tx.RecordActivity(ctx, catalogs.NewSponsorActivity(bill))
		require.NoError(t, err)
		assert.False(t, created)

		activities, err := tx.Activities(ctx, 1)
		require.NoError(t, err)
		require.Len(t, activities, 1)
		assert.Equal(t, bill.Introduced, activities[0].Date)
		assert.Equal(t, catalogs.ActivityBillSponsor, activities[0].Variety)
	})
}

const billXML = `<Bill id="5123456">
  <BillNumber prefix="C" number="10" />
  <BillTitle>
    <Title language="en">An Act to enact the Justice for Victims of Terrorism Act</Title>
    <Title language="fr">Loi édictant la Loi sur la justice pour les victimes d'actes de terrorisme</Title>
  </BillTitle>
  <SponsorAffiliation id="105" />
  <BillIntroducedDate>2011-09-20T00:00:00</BillIntroducedDate>
  <Publications><Publication id="5120501" /></Publications>
</Bill>`

func TestReconcileIsIdempotent(t *testing.T) {
	store := openStore(t)
	_, current := seed(t, store)

	record, err := legisinfo.DecodeBill(strings.NewReader(billXML))
	require.NoError(t, err)
	rec, err := reconciler.New()
	require.NoError(t, err)

	reconcile := func() *reconciler.Result {
		var res *reconciler.Result
		require.NoError(t, store.InTx(context.Background(), func(ctx context.Context, tx catalogs.Tx) error {
			var err error
			res, err = rec.Reconcile(ctx, tx, record, current)
			return err
		}))
		return res
	}

	first := reconcile()
	assert.Equal(t, reconciler.OutcomeCreated, first.Outcome)
	assert.Equal(t, int64(1), first.Link.SponsorPoliticianID)
	assert.Equal(t, int64(2), first.Link.SponsorMemberID)
	require.NotNil(t, first.Activity)

	second := reconcile()
	assert.Equal(t, reconciler.OutcomeUnchanged, second.Outcome)
	assert.False(t, second.BillChanges.HasChanges())
	assert.False(t, second.LinkChanges.HasChanges())
	assert.Equal(t, first.Bill, second.Bill)
}

func TestReintroducedBillSpansSessions(t *testing.T) {
	store := openStore(t)
	previous, current := seed(t, store)

	rec, err := reconciler.New()
	require.NoError(t, err)

	reconcile := func(legisinfoID int64, session *catalogs.Session) *reconciler.Result {
		record, err := legisinfo.DecodeBill(strings.NewReader(billXML))
		require.NoError(t, err)
		record.ID = legisinfoID

		var res *reconciler.Result
		require.NoError(t, store.InTx(context.Background(), func(ctx context.Context, tx catalogs.Tx) error {
			var err error
			res, err = rec.Reconcile(ctx, tx, record, session)
			return err
		}))
		return res
	}

	earlier := reconcile(4001, previous)
	merged := reconcile(5123456, current)
	again := reconcile(5123456, current)

	assert.Equal(t, reconciler.OutcomeCreated, earlier.Outcome)
	assert.Equal(t, reconciler.OutcomeMerged, merged.Outcome)
	assert.Equal(t, reconciler.OutcomeUnchanged, again.Outcome)
	assert.Nil(t, again.Activity)

	inTx(t, store, func(ctx context.Context, tx catalogs.Tx) {
		all, err := tx.ListBills(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "40-3", all[0].OriginSessionID)

		for _, sessionID := range []string{previous.ID, current.ID} {
			bills, err := tx.BillsInSession(ctx, "C-10", sessionID)
			require.NoError(t, err)
			require.Len(t, bills, 1, sessionID)
			assert.Equal(t, earlier.Bill.ID, bills[0].ID, sessionID)
		}

		_, link, err := tx.FindBillInSession(ctx, "C-10", current.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5123456), link.LegisinfoID)
		assert.Equal(t, earlier.Bill.ID, link.BillID)
	})
}
