// Package memory provides an in-memory bill catalog. Transactions work on a
// private copy of the catalog that replaces the shared one on commit, so a
// failed import leaves no trace.
package memory

import (
	"context"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/errors"
)

var _ catalogs.Store = (*Store)(nil)

// Store is an in-memory catalogs.Store.
type Store struct {
	mu     sync.Mutex
	state  *state
	writes int
}

// New creates an empty store.
func New() *Store {
	return &Store{state: newState()}
}

// InTx implements catalogs.Store. Transactions are serialized.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx catalogs.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	t := &tx{state: s.state.clone()}
	if err := fn(ctx, t); err != nil {
		return err
	}
	s.state = t.state
	s.writes += t.writes
	return nil
}

// Close implements catalogs.Store.
func (s *Store) Close() error {
	return nil
}

// Writes returns the number of rows written by committed transactions.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Counts returns the number of bills and bill-session links stored.
func (s *Store) Counts() (bills, links int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.bills), len(s.state.links)
}

type state struct {
	bills       map[int64]*catalogs.Bill
	links       map[int64]*catalogs.BillInSession
	sessions    map[string]*catalogs.Session
	politicians map[int64]*catalogs.Politician
	members     map[int64]*catalogs.ElectedMember
	activities  map[int64]*catalogs.Activity
	lastID      int64
}

func newState() *state {
	return &state{
		bills:       make(map[int64]*catalogs.Bill),
		links:       make(map[int64]*catalogs.BillInSession),
		sessions:    make(map[string]*catalogs.Session),
		politicians: make(map[int64]*catalogs.Politician),
		members:     make(map[int64]*catalogs.ElectedMember),
		activities:  make(map[int64]*catalogs.Activity),
	}
}

// clone copies the maps. Stored values are never mutated in place, so the
// pointers can be shared.
func (st *state) clone() *state {
	return &state{
		bills:       maps.Clone(st.bills),
		links:       maps.Clone(st.links),
		sessions:    maps.Clone(st.sessions),
		politicians: maps.Clone(st.politicians),
		members:     maps.Clone(st.members),
		activities:  maps.Clone(st.activities),
		lastID:      st.lastID,
	}
}

func (st *state) nextID() int64 {
	st.lastID++
	return st.lastID
}

// tx is a transaction over a private copy of the state.
type tx struct {
	state  *state
	writes int
}

func copyOf[T any](v *T) *T {
	c := *v
	return &c
}

func sortedKeys[K int64 | string, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

// FindBillInSession implements catalogs.BillReader.
func (t *tx) FindBillInSession(_ context.Context, number, sessionID string) (*catalogs.Bill, *catalogs.BillInSession, error) {
	for _, id := range sortedKeys(t.state.links) {
		link := t.state.links[id]
		if link.SessionID != sessionID {
			continue
		}
		bill, ok := t.state.bills[link.BillID]
		if ok && bill.Number == number {
			return copyOf(bill), copyOf(link), nil
		}
	}
	return nil, nil, errors.NewNotFoundError("bill", number+" in session "+sessionID)
}

// BillsInSession implements catalogs.BillReader.
func (t *tx) BillsInSession(_ context.Context, number, sessionID string) ([]*catalogs.Bill, error) {
	var bills []*catalogs.Bill
	for _, bill := range t.billsIn(sessionID) {
		if bill.Number == number {
			bills = append(bills, bill)
		}
	}
	return bills, nil
}

// ListBills implements catalogs.BillReader.
func (t *tx) ListBills(_ context.Context, sessionID string) ([]*catalogs.Bill, error) {
	if sessionID != "" {
		return t.billsIn(sessionID), nil
	}
	bills := make([]*catalogs.Bill, 0, len(t.state.bills))
	for _, id := range sortedKeys(t.state.bills) {
		bills = append(bills, copyOf(t.state.bills[id]))
	}
	return bills, nil
}

func (t *tx) billsIn(sessionID string) []*catalogs.Bill {
	seen := make(map[int64]bool)
	for _, link := range t.state.links {
		if link.SessionID == sessionID {
			seen[link.BillID] = true
		}
	}
	var bills []*catalogs.Bill
	for _, id := range sortedKeys(seen) {
		if bill, ok := t.state.bills[id]; ok {
			bills = append(bills, copyOf(bill))
		}
	}
	return bills
}

// SaveBill implements catalogs.BillWriter.
func (t *tx) SaveBill(_ context.Context, bill *catalogs.Bill) error {
	if bill.Number == "" {
		return errors.NewValidationError("number", bill.Number, "cannot be empty")
	}
	if bill.ID == 0 {
		bill.ID = t.state.nextID()
	} else if existing, ok := t.state.bills[bill.ID]; !ok {
		return errors.NewNotFoundError("bill", strconv.FormatInt(bill.ID, 10))
	} else {
		// The session hint is only written on insert.
		bill.OriginSessionID = existing.OriginSessionID
	}
	t.state.bills[bill.ID] = copyOf(bill)
	t.writes++
	return nil
}

// SaveBillInSession implements catalogs.BillWriter.
func (t *tx) SaveBillInSession(_ context.Context, link *catalogs.BillInSession) error {
	if _, ok := t.state.bills[link.BillID]; !ok {
		return errors.NewNotFoundError("bill", strconv.FormatInt(link.BillID, 10))
	}
	if _, ok := t.state.sessions[link.SessionID]; !ok {
		return errors.NewNotFoundError("session", link.SessionID)
	}
	for id, other := range t.state.links {
		if id != link.ID && other.BillID == link.BillID && other.SessionID == link.SessionID {
			return &errors.ResourceError{
				Operation: "save",
				Resource:  "bill_in_session",
				ID:        link.SessionID,
				Err:       errors.ErrAlreadyExists,
			}
		}
	}
	if link.ID == 0 {
		link.ID = t.state.nextID()
	} else if _, ok := t.state.links[link.ID]; !ok {
		return errors.NewNotFoundError("bill_in_session", strconv.FormatInt(link.ID, 10))
	}
	t.state.links[link.ID] = copyOf(link)
	t.writes++
	return nil
}

// Session implements catalogs.SessionReader.
func (t *tx) Session(_ context.Context, id string) (*catalogs.Session, error) {
	s, ok := t.state.sessions[id]
	if !ok {
		return nil, errors.NewNotFoundError("session", id)
	}
	return copyOf(s), nil
}

// SessionByNumber implements catalogs.SessionReader.
func (t *tx) SessionByNumber(_ context.Context, parliament, session int) (*catalogs.Session, error) {
	for _, s := range t.state.sessions {
		if s.ParliamentNumber == parliament && s.SessionNumber == session {
			return copyOf(s), nil
		}
	}
	return nil, errors.NewNotFoundError("session", catalogs.SessionID(parliament, session))
}

// Sessions implements catalogs.SessionReader.
func (t *tx) Sessions(_ context.Context) ([]*catalogs.Session, error) {
	sessions := make([]*catalogs.Session, 0, len(t.state.sessions))
	for _, s := range t.state.sessions {
		sessions = append(sessions, copyOf(s))
	}
	slices.SortFunc(sessions, func(a, b *catalogs.Session) int {
		switch {
		case a.Start.Before(b.Start):
			return -1
		case a.Start.After(b.Start):
			return 1
		}
		return 0
	})
	return sessions, nil
}

// PoliticianByParlID implements catalogs.PeopleReader.
func (t *tx) PoliticianByParlID(_ context.Context, parlID int64) (*catalogs.Politician, error) {
	for _, id := range sortedKeys(t.state.politicians) {
		if p := t.state.politicians[id]; p.ParlID == parlID {
			return copyOf(p), nil
		}
	}
	return nil, errors.NewNotFoundError("politician", strconv.FormatInt(parlID, 10))
}

// ElectedMemberFor implements catalogs.PeopleReader.
func (t *tx) ElectedMemberFor(_ context.Context, politicianID int64, session *catalogs.Session) (*catalogs.ElectedMember, error) {
	var found *catalogs.ElectedMember
	for _, id := range sortedKeys(t.state.members) {
		m := t.state.members[id]
		if m.PoliticianID != politicianID || !m.Overlaps(session) {
			continue
		}
		if found == nil || m.Start.After(found.Start) {
			found = m
		}
	}
	if found == nil {
		return nil, errors.NewNotFoundError("elected_member", strconv.FormatInt(politicianID, 10)+" in session "+session.ID)
	}
	return copyOf(found), nil
}

// RecordActivity implements catalogs.ActivityWriter.
func (t *tx) RecordActivity(_ context.Context, activity *catalogs.Activity) (bool, error) {
	for _, a := range t.state.activities {
		if a.GUID == activity.GUID {
			return false, nil
		}
	}
	activity.ID = t.state.nextID()
	t.state.activities[activity.ID] = copyOf(activity)
	t.writes++
	return true, nil
}

// Activities implements catalogs.ActivityWriter.
func (t *tx) Activities(_ context.Context, politicianID int64) ([]*catalogs.Activity, error) {
	var activities []*catalogs.Activity
	for _, id := range sortedKeys(t.state.activities) {
		if a := t.state.activities[id]; a.PoliticianID == politicianID {
			activities = append(activities, copyOf(a))
		}
	}
	return activities, nil
}

// SaveSession implements catalogs.SeedWriter.
func (t *tx) SaveSession(_ context.Context, session *catalogs.Session) error {
	if session.ID == "" {
		session.ID = catalogs.SessionID(session.ParliamentNumber, session.SessionNumber)
	}
	stored := copyOf(session)
	if session.End != nil {
		end := *session.End
		stored.End = &end
	}
	t.state.sessions[session.ID] = stored
	t.writes++
	return nil
}

// SavePolitician implements catalogs.SeedWriter.
func (t *tx) SavePolitician(_ context.Context, politician *catalogs.Politician) error {
	if politician.ID == 0 {
		politician.ID = t.state.nextID()
	} else if politician.ID > t.state.lastID {
		t.state.lastID = politician.ID
	}
	t.state.politicians[politician.ID] = copyOf(politician)
	t.writes++
	return nil
}

// SaveElectedMember implements catalogs.SeedWriter.
func (t *tx) SaveElectedMember(_ context.Context, member *catalogs.ElectedMember) error {
	if _, ok := t.state.politicians[member.PoliticianID]; !ok {
		return errors.NewNotFoundError("politician", strconv.FormatInt(member.PoliticianID, 10))
	}
	if member.ID == 0 {
		member.ID = t.state.nextID()
	} else if member.ID > t.state.lastID {
		t.state.lastID = member.ID
	}
	stored := copyOf(member)
	if member.End != nil {
		end := *member.End
		stored.End = &end
	}
	t.state.members[member.ID] = stored
	t.writes++
	return nil
}
