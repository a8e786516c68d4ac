package reconciler

import (
	"context"

	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/errors"
)

// PreviousSession returns the session that started most recently before
// session did, or nil when session is the earliest one known.
func PreviousSession(ctx context.Context, tx catalogs.SessionReader, session *catalogs.Session) (*catalogs.Session, error) {
	sessions, err := tx.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	var previous *catalogs.Session
	for _, s := range sessions {
		if !s.Start.Before(session.Start) {
			continue
		}
		if previous == nil || s.Start.After(previous.Start) {
			previous = s
		}
	}
	return previous, nil
}

// CurrentSession returns the session with the latest start date.
func CurrentSession(ctx context.Context, tx catalogs.SessionReader) (*catalogs.Session, error) {
	sessions, err := tx.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	var current *catalogs.Session
	for _, s := range sessions {
		if current == nil || s.Start.After(current.Start) {
			current = s
		}
	}
	if current == nil {
		return nil, errors.NewNotFoundError("session", "current")
	}
	return current, nil
}
