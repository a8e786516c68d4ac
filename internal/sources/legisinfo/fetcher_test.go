package legisinfo_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/legisync/internal/sources/legisinfo"
	"github.com/agentstation/legisync/pkg/errors"
)

// pageXML renders a list page holding n bills whose ids start at first.
func pageXML(first, n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?><Bills>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<Bill id="%d"><BillNumber prefix="C" number="%d"/></Bill>`, first+i, first+i)
	}
	b.WriteString(`</Bills>`)
	return b.String()
}

// feedServer serves list pages with the given record counts and counts requests.
func feedServer(t *testing.T, counts ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "41", r.URL.Query().Get("parl"))
		assert.Equal(t, "1", r.URL.Query().Get("ses"))
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		assert.NoError(t, err)
		if page < 1 || page > len(counts) {
			_, _ = w.Write([]byte(pageXML(0, 0)))
			return
		}
		_, _ = w.Write([]byte(pageXML(page*1000, counts[page-1])))
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func newFetcher(server *httptest.Server, opts ...legisinfo.Option) *legisinfo.Fetcher {
	opts = append([]legisinfo.Option{
		legisinfo.WithListURL(server.URL + "/list?parl=%d&ses=%d&page=%d"),
		legisinfo.WithBillURL(server.URL + "/bill?id=%d"),
	}, opts...)
	return legisinfo.New(opts...)
}

func collect(t *testing.T, f *legisinfo.Fetcher) int {
	t.Helper()
	n := 0
	for bill, err := range f.SessionBills(context.Background(), 41, 1) {
		require.NoError(t, err)
		require.NotNil(t, bill)
		n++
	}
	return n
}

func TestSessionBillsShortPageStops(t *testing.T) {
	server, requests := feedServer(t, 499)

	assert.Equal(t, 499, collect(t, newFetcher(server)))
	assert.Equal(t, int32(1), requests.Load())
}

func TestSessionBillsFullPageFetchesNext(t *testing.T) {
	server, requests := feedServer(t, 500, 12)

	assert.Equal(t, 512, collect(t, newFetcher(server)))
	assert.Equal(t, int32(2), requests.Load())
}

func TestSessionBillsFullPageThenEmpty(t *testing.T) {
	server, requests := feedServer(t, 500)

	assert.Equal(t, 500, collect(t, newFetcher(server)))
	assert.Equal(t, int32(2), requests.Load(), "exactly 500 records triggers one more fetch")
}

func TestSessionBillsObserver(t *testing.T) {
	server, _ := feedServer(t, 500, 3)

	var pages []int
	f := newFetcher(server, legisinfo.WithPageObserver(func(parliament, session, page, records int) {
		assert.Equal(t, 41, parliament)
		assert.Equal(t, 1, session)
		pages = append(pages, records)
	}))
	collect(t, f)
	assert.Equal(t, []int{500, 3}, pages)
}

func TestSessionBillsStopsWhenConsumerBreaks(t *testing.T) {
	server, requests := feedServer(t, 500, 500, 500)

	n := 0
	for _, err := range newFetcher(server).SessionBills(context.Background(), 41, 1) {
		require.NoError(t, err)
		n++
		if n == 10 {
			break
		}
	}
	assert.Equal(t, 10, n)
	assert.Equal(t, int32(1), requests.Load())
}

func TestSessionBillsYieldsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var errs []error
	for bill, err := range newFetcher(server).SessionBills(context.Background(), 41, 1) {
		assert.Nil(t, bill)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, errors.IsSourceUnavailable(errs[0]))
}

func TestSessionBillsCanceled(t *testing.T) {
	server, requests := feedServer(t, 499)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, err := range newFetcher(server).SessionBills(ctx, 41, 1) {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, int32(0), requests.Load())
}

func TestFetchBill(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "7" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<Bill id="7"><BillNumber prefix="C" number="7"/><ParliamentSession parliamentNumber="41" sessionNumber="1"/></Bill>`))
	}))
	defer server.Close()
	f := newFetcher(server)

	bill, err := f.FetchBill(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "C-7", bill.Number.String())

	_, err = f.FetchBill(context.Background(), 8)
	require.Error(t, err)
	var notFound *errors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "bill", notFound.Resource)
	assert.Equal(t, "8", notFound.ID)
}

func TestFetchBillServerErrorIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newFetcher(server).FetchBill(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
