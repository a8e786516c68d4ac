// Package notify publishes sponsor activity recorded by committed imports.
package notify

import (
	"context"
	"time"

	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/logging"
)

// Event announces one sponsor activity entry.
type Event struct {
	RunID        string    `json:"run_id"`
	Session      string    `json:"session"`
	GUID         string    `json:"guid"`
	Variety      string    `json:"variety"`
	PoliticianID int64     `json:"politician_id"`
	BillID       int64     `json:"bill_id"`
	Date         string    `json:"date,omitempty"`
	Time         time.Time `json:"time"`
}

// NewEvent builds the event for an activity recorded during run.
func NewEvent(runID, session string, a *catalogs.Activity) Event {
	e := Event{
		RunID:        runID,
		Session:      session,
		GUID:         a.GUID,
		Variety:      a.Variety,
		PoliticianID: a.PoliticianID,
		BillID:       a.BillID,
		Time:         time.Now().UTC(),
	}
	if !a.Date.IsZero() {
		e.Date = a.Date.String()
	}
	return e
}

// Notifier delivers events. Delivery happens after the import committed,
// so a failure never rolls anything back.
type Notifier interface {
	Notify(ctx context.Context, events ...Event) error
	Close() error
}

// Log writes events to the context logger.
type Log struct{}

// Notify implements Notifier.
func (Log) Notify(ctx context.Context, events ...Event) error {
	logger := logging.FromContext(ctx)
	for _, e := range events {
		logger.Info().
			Str("guid", e.GUID).
			Str("variety", e.Variety).
			Int64("politician_id", e.PoliticianID).
			Int64("bill_id", e.BillID).
			Msg("Sponsor activity")
	}
	return nil
}

// Close implements Notifier.
func (Log) Close() error { return nil }

// Nop discards events.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, ...Event) error { return nil }

// Close implements Notifier.
func (Nop) Close() error { return nil }
