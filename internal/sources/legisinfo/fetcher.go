// Package legisinfo fetches bill records from the LEGISinfo XML feed.
package legisinfo

import (
	"context"
	"fmt"
	"iter"
	"strconv"

	"github.com/agentstation/legisync/internal/transport"
	"github.com/agentstation/legisync/pkg/constants"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/legisinfo"
	"github.com/agentstation/legisync/pkg/logging"
)

// SourceName identifies the feed in errors and metrics.
const SourceName = "legisinfo"

// PageObserver is told about every list page fetched.
type PageObserver func(parliament, session, page, records int)

// Fetcher retrieves bill records from the feed.
type Fetcher struct {
	client   *transport.Client
	listURL  string
	billURL  string
	pageSize int
	observe  PageObserver
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the transport client.
func WithClient(c *transport.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithListURL sets the list endpoint template. It receives the parliament
// number, session number and page index as %d verbs, in that order.
func WithListURL(tmpl string) Option {
	return func(f *Fetcher) {
		if tmpl != "" {
			f.listURL = tmpl
		}
	}
}

// WithBillURL sets the single-bill endpoint template. It receives the
// legisinfo id as a %d verb.
func WithBillURL(tmpl string) Option {
	return func(f *Fetcher) {
		if tmpl != "" {
			f.billURL = tmpl
		}
	}
}

// WithPageObserver registers a callback for every fetched list page.
func WithPageObserver(fn PageObserver) Option {
	return func(f *Fetcher) {
		f.observe = fn
	}
}

// New creates a fetcher for the public LEGISinfo endpoints.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   transport.New(SourceName),
		listURL:  constants.SessionBillsURL,
		billURL:  constants.BillDetailsURL,
		pageSize: constants.FeedPageSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SessionBills lazily yields every bill in a session, one page at a time.
// A page holding fewer than the feed's page size ends the sequence; a full
// page always causes the next one to be requested, even if it turns out
// empty. A fetch or decode error is yielded once and ends the sequence.
func (f *Fetcher) SessionBills(ctx context.Context, parliament, session int) iter.Seq2[*legisinfo.Bill, error] {
	return func(yield func(*legisinfo.Bill, error) bool) {
		logger := logging.FromContext(ctx)
		for page := 1; ; page++ {
			bills, err := f.fetchPage(ctx, parliament, session, page)
			if err != nil {
				yield(nil, err)
				return
			}
			logger.Debug().
				Int("page", page).
				Int("records", len(bills)).
				Msg("Fetched bill list page")
			if f.observe != nil {
				f.observe(parliament, session, page, len(bills))
			}

			for _, bill := range bills {
				if !yield(bill, nil) {
					return
				}
			}
			if len(bills) < f.pageSize {
				return
			}
		}
	}
}

func (f *Fetcher) fetchPage(ctx context.Context, parliament, session, page int) ([]*legisinfo.Bill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	url := fmt.Sprintf(f.listURL, parliament, session, page)
	body, err := f.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	bills, err := legisinfo.DecodePage(body)
	if err != nil {
		return nil, fmt.Errorf("decoding page %d of session %d-%d: %w", page, parliament, session, err)
	}
	return bills, nil
}

// FetchBill retrieves one bill by its legisinfo id. Any HTTP failure is
// reported as the bill not being found.
func (f *Fetcher) FetchBill(ctx context.Context, legisinfoID int64) (*legisinfo.Bill, error) {
	url := fmt.Sprintf(f.billURL, legisinfoID)
	body, err := f.client.Get(ctx, url)
	if err != nil {
		return nil, &errors.NotFoundError{
			Resource: "bill",
			ID:       strconv.FormatInt(legisinfoID, 10),
			Err:      err,
		}
	}
	defer body.Close() //nolint:errcheck

	return legisinfo.DecodeBill(body)
}
