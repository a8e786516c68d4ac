package catalogs

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

// TestDate builds a civil.Date for tests.
func TestDate(t testing.TB, year, month, day int) civil.Date {
	t.Helper()
	return civil.Date{Year: year, Month: time.Month(month), Day: day}
}

// TestSession creates a test session starting on start. A zero end leaves
// the session active.
func TestSession(t testing.TB, parliament, session int, start civil.Date, end civil.Date) *Session {
	t.Helper()
	s := &Session{
		ID:               SessionID(parliament, session),
		Name:             SessionID(parliament, session),
		ParliamentNumber: parliament,
		SessionNumber:    session,
		Start:            start,
	}
	if !end.IsZero() {
		s.End = &end
	}
	return s
}

// TestPolitician creates a test politician with a feed identifier.
func TestPolitician(t testing.TB, id, parlID int64) *Politician {
	t.Helper()
	return &Politician{
		ID:     id,
		Name:   "Test Politician",
		ParlID: parlID,
	}
}
