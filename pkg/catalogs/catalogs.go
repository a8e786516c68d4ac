// Package catalogs defines the bill catalog: the entities the LEGISinfo
// importer reconciles into (bills, their per-session links, sessions and the
// people who sponsor bills) and the transactional store interfaces that
// persist them.
//
// Example usage:
//
//	err := store.InTx(ctx, func(ctx context.Context, tx catalogs.Tx) error {
//	    bill, link, err := tx.FindBillInSession(ctx, "C-10", "41-1")
//	    if errors.IsNotFound(err) {
//	        // first encounter of C-10 in this session
//	    }
//	    ...
//	})
package catalogs

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/agentstation/legisync/pkg/errors"
)

// ActivityBillSponsor is the activity variety recorded when a politician
// sponsors a newly introduced bill.
const ActivityBillSponsor = "billsponsor"

// Bill is a legislative initiative. Numbers are scoped to a session: the
// same number in a later session is only the same Bill when it was
// re-introduced and merged.
type Bill struct {
	ID     int64  `json:"id" yaml:"id"`
	Number string `json:"number" yaml:"number"`

	NameEN       string `json:"name_en,omitempty" yaml:"name_en,omitempty"`
	NameFR       string `json:"name_fr,omitempty" yaml:"name_fr,omitempty"`
	ShortTitleEN string `json:"short_title_en,omitempty" yaml:"short_title_en,omitempty"`
	ShortTitleFR string `json:"short_title_fr,omitempty" yaml:"short_title_fr,omitempty"`

	StatusEN   string     `json:"status_en,omitempty" yaml:"status_en,omitempty"`
	StatusFR   string     `json:"status_fr,omitempty" yaml:"status_fr,omitempty"`
	StatusDate civil.Date `json:"status_date,omitzero" yaml:"status_date,omitempty"`
	Introduced civil.Date `json:"introduced,omitzero" yaml:"introduced,omitempty"`

	SponsorPoliticianID int64 `json:"sponsor_politician_id,omitempty" yaml:"sponsor_politician_id,omitempty"`
	SponsorMemberID     int64 `json:"sponsor_member_id,omitempty" yaml:"sponsor_member_id,omitempty"`
	TextDocID           int64 `json:"text_docid,omitempty" yaml:"text_docid,omitempty"`

	// OriginSessionID is the session the bill was first seen in. It is
	// written only when the row is inserted.
	OriginSessionID string `json:"origin_session,omitempty" yaml:"origin_session,omitempty"`
}

// IsCommons reports whether the bill originated in the House of Commons.
func (b *Bill) IsCommons() bool {
	return strings.HasPrefix(b.Number, "C")
}

// Saved reports whether the bill has a store-assigned identity.
func (b *Bill) Saved() bool {
	return b.ID != 0
}

// BillInSession links a Bill to one session and carries the facts the feed
// reports for that session.
type BillInSession struct {
	ID          int64  `json:"id" yaml:"id"`
	BillID      int64  `json:"bill_id" yaml:"bill_id"`
	SessionID   string `json:"session_id" yaml:"session_id"`
	LegisinfoID int64  `json:"legisinfo_id,omitempty" yaml:"legisinfo_id,omitempty"`

	SponsorPoliticianID int64      `json:"sponsor_politician_id,omitempty" yaml:"sponsor_politician_id,omitempty"`
	SponsorMemberID     int64      `json:"sponsor_member_id,omitempty" yaml:"sponsor_member_id,omitempty"`
	Introduced          civil.Date `json:"introduced,omitzero" yaml:"introduced,omitempty"`
}

// Session is a legislative session such as the first session of the
// 41st Parliament ("41-1").
type Session struct {
	ID               string      `json:"id" yaml:"id"`
	Name             string      `json:"name,omitempty" yaml:"name,omitempty"`
	ParliamentNumber int         `json:"parliamentnum" yaml:"parliamentnum"`
	SessionNumber    int         `json:"sessnum" yaml:"sessnum"`
	Start            civil.Date  `json:"start" yaml:"start"`
	End              *civil.Date `json:"end,omitempty" yaml:"end,omitempty"`
}

// Active reports whether the session is still sitting.
func (s *Session) Active() bool {
	return s.End == nil
}

// Contains reports whether d falls within the session.
func (s *Session) Contains(d civil.Date) bool {
	if d.Before(s.Start) {
		return false
	}
	return s.End == nil || !d.After(*s.End)
}

// SessionID builds the canonical session identifier.
func SessionID(parliament, session int) string {
	return fmt.Sprintf("%d-%d", parliament, session)
}

// ParseSessionID splits "41-1" into its parliament and session numbers.
func ParseSessionID(id string) (parliament, session int, err error) {
	parl, sess, ok := strings.Cut(id, "-")
	if !ok {
		return 0, 0, errors.NewValidationError("session", id, "expected PARLIAMENT-SESSION")
	}
	if parliament, err = strconv.Atoi(parl); err != nil || parliament <= 0 {
		return 0, 0, errors.NewValidationError("session", id, "invalid parliament number")
	}
	if session, err = strconv.Atoi(sess); err != nil || session <= 0 {
		return 0, 0, errors.NewValidationError("session", id, "invalid session number")
	}
	return parliament, session, nil
}

// Politician is a person who can sponsor bills. ParlID is the identifier
// used by the LEGISinfo feed.
type Politician struct {
	ID     int64  `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	ParlID int64  `json:"parl_id,omitempty" yaml:"parl_id,omitempty"`
}

// ElectedMember is a politician's term representing a riding for a party.
type ElectedMember struct {
	ID           int64       `json:"id" yaml:"id"`
	PoliticianID int64       `json:"politician_id" yaml:"politician_id"`
	Party        string      `json:"party,omitempty" yaml:"party,omitempty"`
	Riding       string      `json:"riding,omitempty" yaml:"riding,omitempty"`
	Start        civil.Date  `json:"start" yaml:"start"`
	End          *civil.Date `json:"end,omitempty" yaml:"end,omitempty"`
}

// Overlaps reports whether the member's term intersects the session.
func (m *ElectedMember) Overlaps(s *Session) bool {
	if s.End != nil && m.Start.After(*s.End) {
		return false
	}
	return m.End == nil || !m.End.Before(s.Start)
}

// Activity is an entry in a politician's activity stream.
type Activity struct {
	ID           int64      `json:"id" yaml:"id"`
	PoliticianID int64      `json:"politician_id" yaml:"politician_id"`
	BillID       int64      `json:"bill_id" yaml:"bill_id"`
	Date         civil.Date `json:"date" yaml:"date"`
	Variety      string     `json:"variety" yaml:"variety"`
	GUID         string     `json:"guid" yaml:"guid"`
}

// NewSponsorActivity builds the activity entry recorded when a politician
// sponsors a newly imported bill.
func NewSponsorActivity(bill *Bill) *Activity {
	return &Activity{
		PoliticianID: bill.SponsorPoliticianID,
		BillID:       bill.ID,
		Date:         bill.Introduced,
		Variety:      ActivityBillSponsor,
		GUID:         fmt.Sprintf("bill_sponsor_%d", bill.ID),
	}
}
