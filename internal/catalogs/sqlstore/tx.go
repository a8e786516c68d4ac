package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/errors"
)

const billColumns = `b.id, b.number, b.name_en, b.name_fr, b.short_title_en, b.short_title_fr,
	b.status_en, b.status_fr, b.status_date, b.introduced,
	b.sponsor_politician_id, b.sponsor_member_id, b.text_docid, b.origin_session_id`

const linkColumns = `l.id, l.bill_id, l.session_id, l.legisinfo_id,
	l.sponsor_politician_id, l.sponsor_member_id, l.introduced`

const sessionColumns = `id, name, parliamentnum, sessnum, start_date, end_date`

const memberColumns = `id, politician_id, party, riding, start_date, end_date`

// tx implements catalogs.Tx over a database transaction.
type tx struct {
	tx     *sql.Tx
	driver string
}

type scanner interface {
	Scan(dest ...any) error
}

// rebind rewrites ? placeholders for drivers that number them.
func (t *tx) rebind(query string) string {
	if t.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (t *tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.rebind(query), args...)
}

func (t *tx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.rebind(query), args...)
}

func (t *tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.rebind(query), args...)
}

// Null handling. Zero IDs and zero dates are stored as NULL.

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullDate(d civil.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func nullDatePtr(d *civil.Date) any {
	if d == nil {
		return nil
	}
	return nullDate(*d)
}

func parseDate(s sql.NullString) (civil.Date, error) {
	if !s.Valid || s.String == "" {
		return civil.Date{}, nil
	}
	// Drivers that return DATE columns as timestamps format them as RFC 3339.
	text := s.String
	if len(text) > 10 {
		text = text[:10]
	}
	d, err := civil.ParseDate(text)
	if err != nil {
		return civil.Date{}, errors.WrapParse("date", s.String, err)
	}
	return d, nil
}

func parseDatePtr(s sql.NullString) (*civil.Date, error) {
	d, err := parseDate(s)
	if err != nil || d.IsZero() {
		return nil, err
	}
	return &d, nil
}

func scanBill(row scanner, extra ...any) (*catalogs.Bill, error) {
	var (
		b                      catalogs.Bill
		statusDate, introduced sql.NullString
		sponsor, member, docID sql.NullInt64
		origin                 sql.NullString
	)
	dest := []any{
		&b.ID, &b.Number, &b.NameEN, &b.NameFR, &b.ShortTitleEN, &b.ShortTitleFR,
		&b.StatusEN, &b.StatusFR, &statusDate, &introduced,
		&sponsor, &member, &docID, &origin,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	var err error
	if b.StatusDate, err = parseDate(statusDate); err != nil {
		return nil, err
	}
	if b.Introduced, err = parseDate(introduced); err != nil {
		return nil, err
	}
	b.SponsorPoliticianID = sponsor.Int64
	b.SponsorMemberID = member.Int64
	b.TextDocID = docID.Int64
	b.OriginSessionID = origin.String
	return &b, nil
}

type linkRow struct {
	link            catalogs.BillInSession
	legisinfoID     sql.NullInt64
	sponsor, member sql.NullInt64
	introduced      sql.NullString
}

func (r *linkRow) dest() []any {
	return []any{
		&r.link.ID, &r.link.BillID, &r.link.SessionID, &r.legisinfoID,
		&r.sponsor, &r.member, &r.introduced,
	}
}

func (r *linkRow) result() (*catalogs.BillInSession, error) {
	introduced, err := parseDate(r.introduced)
	if err != nil {
		return nil, err
	}
	link := r.link
	link.LegisinfoID = r.legisinfoID.Int64
	link.SponsorPoliticianID = r.sponsor.Int64
	link.SponsorMemberID = r.member.Int64
	link.Introduced = introduced
	return &link, nil
}

func scanSession(row scanner) (*catalogs.Session, error) {
	var (
		s          catalogs.Session
		start, end sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &s.ParliamentNumber, &s.SessionNumber, &start, &end); err != nil {
		return nil, err
	}
	var err error
	if s.Start, err = parseDate(start); err != nil {
		return nil, err
	}
	if s.End, err = parseDatePtr(end); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanMember(row scanner) (*catalogs.ElectedMember, error) {
	var (
		m          catalogs.ElectedMember
		start, end sql.NullString
	)
	if err := row.Scan(&m.ID, &m.PoliticianID, &m.Party, &m.Riding, &start, &end); err != nil {
		return nil, err
	}
	var err error
	if m.Start, err = parseDate(start); err != nil {
		return nil, err
	}
	if m.End, err = parseDatePtr(end); err != nil {
		return nil, err
	}
	return &m, nil
}

// notFound maps sql.ErrNoRows to a NotFoundError and wraps everything else.
func notFound(err error, resource, id string) error {
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NewNotFoundError(resource, id)
	}
	return errors.WrapResource("fetch", resource, id, err)
}

// FindBillInSession implements catalogs.BillReader.
func (t *tx) FindBillInSession(ctx context.Context, number, sessionID string) (*catalogs.Bill, *catalogs.BillInSession, error) {
	var lr linkRow
	row := t.queryRow(ctx, `SELECT `+billColumns+`, `+linkColumns+`
		FROM bills b JOIN bills_in_session l ON l.bill_id = b.id
		WHERE b.number = ? AND l.session_id = ?
		ORDER BY l.id LIMIT 1`, number, sessionID)
	bill, err := scanBill(row, lr.dest()...)
	if err != nil {
		return nil, nil, notFound(err, "bill", number+" in session "+sessionID)
	}
	link, err := lr.result()
	if err != nil {
		return nil, nil, err
	}
	return bill, link, nil
}

// BillsInSession implements catalogs.BillReader.
func (t *tx) BillsInSession(ctx context.Context, number, sessionID string) ([]*catalogs.Bill, error) {
	return t.bills(ctx, `SELECT DISTINCT `+billColumns+`
		FROM bills b JOIN bills_in_session l ON l.bill_id = b.id
		WHERE b.number = ? AND l.session_id = ?
		ORDER BY b.id`, number, sessionID)
}

// ListBills implements catalogs.BillReader.
func (t *tx) ListBills(ctx context.Context, sessionID string) ([]*catalogs.Bill, error) {
	if sessionID == "" {
		return t.bills(ctx, `SELECT `+billColumns+` FROM bills b ORDER BY b.id`)
	}
	return t.bills(ctx, `SELECT DISTINCT `+billColumns+`
		FROM bills b JOIN bills_in_session l ON l.bill_id = b.id
		WHERE l.session_id = ?
		ORDER BY b.id`, sessionID)
}

func (t *tx) bills(ctx context.Context, query string, args ...any) ([]*catalogs.Bill, error) {
	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapResource("list", "bills", "", err)
	}
	defer rows.Close()

	var bills []*catalogs.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, errors.WrapResource("list", "bills", "", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapResource("list", "bills", "", err)
	}
	return bills, nil
}

// SaveBill implements catalogs.BillWriter.
func (t *tx) SaveBill(ctx context.Context, bill *catalogs.Bill) error {
	if bill.Number == "" {
		return errors.NewValidationError("number", bill.Number, "cannot be empty")
	}
	args := []any{
		bill.Number, bill.NameEN, bill.NameFR, bill.ShortTitleEN, bill.ShortTitleFR,
		bill.StatusEN, bill.StatusFR, nullDate(bill.StatusDate), nullDate(bill.Introduced),
		nullID(bill.SponsorPoliticianID), nullID(bill.SponsorMemberID), nullID(bill.TextDocID),
	}

	if bill.ID == 0 {
		var origin any
		if bill.OriginSessionID != "" {
			origin = bill.OriginSessionID
		}
		err := t.queryRow(ctx, `INSERT INTO bills (number, name_en, name_fr, short_title_en, short_title_fr,
			status_en, status_fr, status_date, introduced,
			sponsor_politician_id, sponsor_member_id, text_docid, origin_session_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			append(args, origin)...).Scan(&bill.ID)
		return errors.WrapResource("create", "bill", bill.Number, err)
	}

	// origin_session_id is only written on insert.
	res, err := t.exec(ctx, `UPDATE bills SET number = ?, name_en = ?, name_fr = ?,
		short_title_en = ?, short_title_fr = ?, status_en = ?, status_fr = ?,
		status_date = ?, introduced = ?,
		sponsor_politician_id = ?, sponsor_member_id = ?, text_docid = ?
		WHERE id = ?`, append(args, bill.ID)...)
	if err != nil {
		return errors.WrapResource("update", "bill", bill.Number, err)
	}
	return expectRow(res, "bill", strconv.FormatInt(bill.ID, 10))
}

// SaveBillInSession implements catalogs.BillWriter.
func (t *tx) SaveBillInSession(ctx context.Context, link *catalogs.BillInSession) error {
	if link.BillID == 0 {
		return errors.NewValidationError("bill_id", link.BillID, "bill must be saved first")
	}
	id := link.SessionID
	var existing int64
	err := t.queryRow(ctx, `SELECT id FROM bills_in_session WHERE bill_id = ? AND session_id = ?`,
		link.BillID, link.SessionID).Scan(&existing)
	switch {
	case err == nil && existing != link.ID:
		return &errors.ResourceError{
			Operation: "save",
			Resource:  "bill_in_session",
			ID:        id,
			Err:       errors.ErrAlreadyExists,
		}
	case err != nil && !stderrors.Is(err, sql.ErrNoRows):
		return errors.WrapResource("fetch", "bill_in_session", id, err)
	}

	args := []any{
		link.BillID, link.SessionID, nullID(link.LegisinfoID),
		nullID(link.SponsorPoliticianID), nullID(link.SponsorMemberID), nullDate(link.Introduced),
	}
	if link.ID == 0 {
		err := t.queryRow(ctx, `INSERT INTO bills_in_session (bill_id, session_id, legisinfo_id,
			sponsor_politician_id, sponsor_member_id, introduced)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`, args...).Scan(&link.ID)
		return errors.WrapResource("create", "bill_in_session", id, err)
	}

	res, err := t.exec(ctx, `UPDATE bills_in_session SET bill_id = ?, session_id = ?, legisinfo_id = ?,
		sponsor_politician_id = ?, sponsor_member_id = ?, introduced = ?
		WHERE id = ?`, append(args, link.ID)...)
	if err != nil {
		return errors.WrapResource("update", "bill_in_session", id, err)
	}
	return expectRow(res, "bill_in_session", strconv.FormatInt(link.ID, 10))
}

func expectRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WrapResource("update", resource, id, err)
	}
	if n == 0 {
		return errors.NewNotFoundError(resource, id)
	}
	return nil
}

// Session implements catalogs.SessionReader.
func (t *tx) Session(ctx context.Context, id string) (*catalogs.Session, error) {
	s, err := scanSession(t.queryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "session", id)
	}
	return s, nil
}

// SessionByNumber implements catalogs.SessionReader.
func (t *tx) SessionByNumber(ctx context.Context, parliament, session int) (*catalogs.Session, error) {
	s, err := scanSession(t.queryRow(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE parliamentnum = ? AND sessnum = ?`, parliament, session))
	if err != nil {
		return nil, notFound(err, "session", catalogs.SessionID(parliament, session))
	}
	return s, nil
}

// Sessions implements catalogs.SessionReader.
func (t *tx) Sessions(ctx context.Context) ([]*catalogs.Session, error) {
	rows, err := t.query(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY start_date`)
	if err != nil {
		return nil, errors.WrapResource("list", "sessions", "", err)
	}
	defer rows.Close()

	var sessions []*catalogs.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, errors.WrapResource("list", "sessions", "", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapResource("list", "sessions", "", err)
	}
	return sessions, nil
}

// PoliticianByParlID implements catalogs.PeopleReader.
func (t *tx) PoliticianByParlID(ctx context.Context, parlID int64) (*catalogs.Politician, error) {
	var (
		p  catalogs.Politician
		id sql.NullInt64
	)
	err := t.queryRow(ctx, `SELECT id, name, parl_id FROM politicians WHERE parl_id = ?`, parlID).
		Scan(&p.ID, &p.Name, &id)
	if err != nil {
		return nil, notFound(err, "politician", strconv.FormatInt(parlID, 10))
	}
	p.ParlID = id.Int64
	return &p, nil
}

// ElectedMemberFor implements catalogs.PeopleReader.
func (t *tx) ElectedMemberFor(ctx context.Context, politicianID int64, session *catalogs.Session) (*catalogs.ElectedMember, error) {
	query := `SELECT ` + memberColumns + ` FROM elected_members
		WHERE politician_id = ? AND (end_date IS NULL OR end_date >= ?)`
	args := []any{politicianID, session.Start.String()}
	if session.End != nil {
		query += ` AND start_date <= ?`
		args = append(args, session.End.String())
	}
	query += ` ORDER BY start_date DESC, id LIMIT 1`

	m, err := scanMember(t.queryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "elected_member", strconv.FormatInt(politicianID, 10)+" in session "+session.ID)
	}
	return m, nil
}

// RecordActivity implements catalogs.ActivityWriter.
func (t *tx) RecordActivity(ctx context.Context, activity *catalogs.Activity) (bool, error) {
	err := t.queryRow(ctx, `INSERT INTO activities (politician_id, bill_id, date, variety, guid)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (guid) DO NOTHING RETURNING id`,
		activity.PoliticianID, nullID(activity.BillID), nullDate(activity.Date), activity.Variety, activity.GUID).
		Scan(&activity.ID)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, errors.WrapResource("create", "activity", activity.GUID, err)
	}
	return true, nil
}

// Activities implements catalogs.ActivityWriter.
func (t *tx) Activities(ctx context.Context, politicianID int64) ([]*catalogs.Activity, error) {
	rows, err := t.query(ctx, `SELECT id, politician_id, bill_id, date, variety, guid
		FROM activities WHERE politician_id = ? ORDER BY id`, politicianID)
	if err != nil {
		return nil, errors.WrapResource("list", "activities", "", err)
	}
	defer rows.Close()

	var activities []*catalogs.Activity
	for rows.Next() {
		var (
			a      catalogs.Activity
			billID sql.NullInt64
			date   sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.PoliticianID, &billID, &date, &a.Variety, &a.GUID); err != nil {
			return nil, errors.WrapResource("list", "activities", "", err)
		}
		a.BillID = billID.Int64
		if a.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		activities = append(activities, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapResource("list", "activities", "", err)
	}
	return activities, nil
}

// SaveSession implements catalogs.SeedWriter.
func (t *tx) SaveSession(ctx context.Context, session *catalogs.Session) error {
	if session.ID == "" {
		session.ID = catalogs.SessionID(session.ParliamentNumber, session.SessionNumber)
	}
	_, err := t.exec(ctx, `INSERT INTO sessions (id, name, parliamentnum, sessnum, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name,
			parliamentnum = excluded.parliamentnum, sessnum = excluded.sessnum,
			start_date = excluded.start_date, end_date = excluded.end_date`,
		session.ID, session.Name, session.ParliamentNumber, session.SessionNumber,
		session.Start.String(), nullDatePtr(session.End))
	return errors.WrapResource("save", "session", session.ID, err)
}

// SavePolitician implements catalogs.SeedWriter.
func (t *tx) SavePolitician(ctx context.Context, politician *catalogs.Politician) error {
	if politician.ID == 0 {
		err := t.queryRow(ctx, `INSERT INTO politicians (name, parl_id) VALUES (?, ?) RETURNING id`,
			politician.Name, nullID(politician.ParlID)).Scan(&politician.ID)
		return errors.WrapResource("create", "politician", politician.Name, err)
	}
	id := strconv.FormatInt(politician.ID, 10)
	_, err := t.exec(ctx, `INSERT INTO politicians (id, name, parl_id) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, parl_id = excluded.parl_id`,
		politician.ID, politician.Name, nullID(politician.ParlID))
	if err != nil {
		return errors.WrapResource("save", "politician", id, err)
	}
	return t.syncSequence(ctx, "politicians")
}

// SaveElectedMember implements catalogs.SeedWriter.
func (t *tx) SaveElectedMember(ctx context.Context, member *catalogs.ElectedMember) error {
	var exists int
	err := t.queryRow(ctx, `SELECT 1 FROM politicians WHERE id = ?`, member.PoliticianID).Scan(&exists)
	if err != nil {
		return notFound(err, "politician", strconv.FormatInt(member.PoliticianID, 10))
	}

	if member.ID == 0 {
		err := t.queryRow(ctx, `INSERT INTO elected_members (politician_id, party, riding, start_date, end_date)
			VALUES (?, ?, ?, ?, ?) RETURNING id`,
			member.PoliticianID, member.Party, member.Riding,
			member.Start.String(), nullDatePtr(member.End)).Scan(&member.ID)
		return errors.WrapResource("create", "elected_member", strconv.FormatInt(member.PoliticianID, 10), err)
	}
	id := strconv.FormatInt(member.ID, 10)
	_, err = t.exec(ctx, `INSERT INTO elected_members (id, politician_id, party, riding, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET politician_id = excluded.politician_id,
			party = excluded.party, riding = excluded.riding,
			start_date = excluded.start_date, end_date = excluded.end_date`,
		member.ID, member.PoliticianID, member.Party, member.Riding,
		member.Start.String(), nullDatePtr(member.End))
	if err != nil {
		return errors.WrapResource("save", "elected_member", id, err)
	}
	return t.syncSequence(ctx, "elected_members")
}

// syncSequence moves a PostgreSQL serial past explicitly inserted ids.
// SQLite's AUTOINCREMENT already does this.
func (t *tx) syncSequence(ctx context.Context, table string) error {
	if t.driver != DriverPostgres {
		return nil
	}
	_, err := t.tx.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('`+table+`', 'id'),
		(SELECT MAX(id) FROM `+table+`))`)
	return errors.WrapResource("sync", "sequence", table, err)
}
