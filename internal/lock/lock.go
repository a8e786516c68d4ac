// Package lock keeps two importers from writing the same session at once.
package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/agentstation/legisync/pkg/constants"
	"github.com/agentstation/legisync/pkg/errors"
)

// Locker hands out exclusive leases on keys.
type Locker interface {
	// Acquire takes the lock on key without waiting. When another holder
	// has it the error is a *errors.LockError matching errors.ErrLocked.
	Acquire(ctx context.Context, key string) (*Lease, error)
}

// Lease is a held lock.
type Lease struct {
	key     string
	token   string
	release func(ctx context.Context, key, token string) error
	once    sync.Once
	err     error
}

// Key returns the locked key.
func (l *Lease) Key() string {
	return l.key
}

// Release gives the lock up. Releasing twice is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.err = l.release(ctx, l.key, l.token)
	})
	return l.err
}

// SessionKey returns the lock key guarding imports of a session.
func SessionKey(sessionID string) string {
	return constants.LockKeyPrefix + sessionID
}

func newToken() string {
	return uuid.NewString()
}

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	held map[string]string
}

var _ Locker = (*Local)(nil)

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]string)}
}

// Acquire implements Locker.
func (l *Local) Acquire(_ context.Context, key string) (*Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, &errors.LockError{Key: key}
	}
	token := newToken()
	l.held[key] = token
	return &Lease{key: key, token: token, release: l.release}, nil
}

func (l *Local) release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] != token {
		return &errors.LockError{Key: key, Err: errNotHeld}
	}
	delete(l.held, key)
	return nil
}

var errNotHeld = errors.New("lock not held by this lease")
