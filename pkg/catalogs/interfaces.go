package catalogs

import "context"

// BillReader provides read access to bills.
type BillReader interface {
	// FindBillInSession returns the bill numbered number that is linked to
	// the session, together with that link. A NotFoundError is returned
	// when the session has no such bill.
	FindBillInSession(ctx context.Context, number, sessionID string) (*Bill, *BillInSession, error)

	// BillsInSession returns every bill numbered number linked to the session.
	BillsInSession(ctx context.Context, number, sessionID string) ([]*Bill, error)

	// ListBills returns bills linked to the session, or all bills when
	// sessionID is empty, ordered by id.
	ListBills(ctx context.Context, sessionID string) ([]*Bill, error)
}

// BillWriter persists bills. Saving a Bill assigns its ID on insert; a
// BillInSession can only be saved once its Bill has an identity.
type BillWriter interface {
	SaveBill(ctx context.Context, bill *Bill) error
	SaveBillInSession(ctx context.Context, link *BillInSession) error
}

// SessionReader provides read access to sessions.
type SessionReader interface {
	// Session returns the session with the given id.
	Session(ctx context.Context, id string) (*Session, error)
	// SessionByNumber resolves a session from its parliament and session numbers.
	SessionByNumber(ctx context.Context, parliament, session int) (*Session, error)
	// Sessions returns all sessions ordered by start date.
	Sessions(ctx context.Context) ([]*Session, error)
}

// PeopleReader resolves bill sponsors.
type PeopleReader interface {
	PoliticianByParlID(ctx context.Context, parlID int64) (*Politician, error)
	// ElectedMemberFor returns the politician's term that overlaps the session.
	ElectedMemberFor(ctx context.Context, politicianID int64, session *Session) (*ElectedMember, error)
}

// ActivityWriter records politician activity.
type ActivityWriter interface {
	// RecordActivity stores the activity unless one with the same GUID
	// exists, and reports whether it was stored.
	RecordActivity(ctx context.Context, activity *Activity) (bool, error)
	Activities(ctx context.Context, politicianID int64) ([]*Activity, error)
}

// SeedWriter loads reference data the importer only reads.
type SeedWriter interface {
	SaveSession(ctx context.Context, session *Session) error
	SavePolitician(ctx context.Context, politician *Politician) error
	SaveElectedMember(ctx context.Context, member *ElectedMember) error
}

// Tx is the unit of work the reconciler runs in. Everything written
// through a Tx commits or rolls back together.
type Tx interface {
	BillReader
	BillWriter
	SessionReader
	PeopleReader
	ActivityWriter
	SeedWriter
}

// Store is a transactional bill catalog.
type Store interface {
	// InTx runs fn in a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Close releases the store's resources.
	Close() error
}
