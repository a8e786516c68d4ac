// Package integration runs the importer against real infrastructure. The
// tests skip unless LEGISYNC_TEST_POSTGRES_DSN is set; LEGISYNC_TEST_REDIS_URL
// additionally switches the import lock to Redis.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/legisync"
	"github.com/agentstation/legisync/internal/catalogs/sqlstore"
	"github.com/agentstation/legisync/internal/lock"
	sourcelegisinfo "github.com/agentstation/legisync/internal/sources/legisinfo"
	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/reconciler"
)

const feedPage = `<Bills>
<Bill id="5123456">
  <BillNumber prefix="C" number="10" />
  <BillTitle><Title language="en">Safe Streets and Communities Act</Title></BillTitle>
  <SponsorAffiliation id="105" />
  <BillIntroducedDate>2011-09-20T00:00:00</BillIntroducedDate>
</Bill>
<Bill id="5124000">
  <BillNumber prefix="S" number="2" />
  <BillTitle><Title language="en">An Act respecting older records</Title></BillTitle>
</Bill>
</Bills>`

func postgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("LEGISYNC_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LEGISYNC_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

// reset empties every catalog table.
func reset(t *testing.T, dsn string) {
	t.Helper()
	db, err := sql.Open(sqlstore.DriverPostgres, dsn)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`TRUNCATE activities, bills_in_session, bills, elected_members, politicians, sessions RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func newClient(t *testing.T, dsn, feedURL string) (legisync.Client, *sqlstore.Store) {
	t.Helper()
	ctx := context.Background()

	store, err := sqlstore.Open(ctx, sqlstore.Config{Driver: sqlstore.DriverPostgres, DSN: dsn, AutoMigrate: true})
	require.NoError(t, err)
	reset(t, dsn)

	seed := &catalogs.Seed{
		Sessions: []*catalogs.Session{
			catalogs.TestSession(t, 40, 3, catalogs.TestDate(t, 2010, 3, 3), catalogs.TestDate(t, 2011, 3, 26)),
			catalogs.TestSession(t, 41, 1, catalogs.TestDate(t, 2011, 6, 2), civil.Date{}),
		},
		Politicians: []*catalogs.Politician{catalogs.TestPolitician(t, 1, 105)},
	}
	require.NoError(t, store.InTx(ctx, seed.Apply))

	opts := []legisync.Option{
		legisync.WithStore(store),
		legisync.WithFetcherOptions(sourcelegisinfo.WithListURL(feedURL + "/list?parl=%d&sess=%d&page=%d")),
	}
	if url := os.Getenv("LEGISYNC_TEST_REDIS_URL"); url != "" {
		locker, err := lock.NewRedisFromURL(url)
		require.NoError(t, err)
		opts = append(opts, legisync.WithLocker(locker))
	}

	client, err := legisync.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, store
}

func feed(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("parl") == "41" {
			_, _ = fmt.Fprint(w, feedPage)
			return
		}
		_, _ = fmt.Fprint(w, `<Bills></Bills>`)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestPostgresImport(t *testing.T) {
	dsn := postgresDSN(t)
	client, store := newClient(t, dsn, feed(t))
	ctx := context.Background()

	status, err := store.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.Version)

	summary, err := client.ImportSession(ctx, "41-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Counts[reconciler.OutcomeCreated])
	require.Len(t, summary.Activities, 1)

	summary, err = client.ImportSession(ctx, "41-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Counts[reconciler.OutcomeUnchanged])

	require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx catalogs.Tx) error {
		bill, link, err := tx.FindBillInSession(ctx, "C-10", "41-1")
		require.NoError(t, err)
		assert.Equal(t, "41-1", bill.OriginSessionID)
		assert.Equal(t, int64(5123456), link.LegisinfoID)
		assert.Equal(t, catalogs.TestDate(t, 2011, 9, 20), bill.Introduced)

		activities, err := tx.Activities(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, activities, 1)
		return nil
	}))
}

func TestPostgresDryRun(t *testing.T) {
	dsn := postgresDSN(t)
	client, store := newClient(t, dsn, feed(t))
	ctx := context.Background()

	_, err := client.ImportSession(ctx, "41-1", legisync.WithDryRun(true))
	require.NoError(t, err)

	require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx catalogs.Tx) error {
		bills, err := tx.ListBills(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, bills)
		return nil
	}))
}

func TestPostgresUnknownSession(t *testing.T) {
	dsn := postgresDSN(t)
	client, _ := newClient(t, dsn, feed(t))

	_, err := client.ImportSession(context.Background(), "39-2")
	assert.True(t, errors.IsNotFound(err))
}
