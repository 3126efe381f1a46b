package hostctx

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrSessionLocked is returned when another process owns the session.
var ErrSessionLocked = errors.New("session is locked by another process")

// Session is an exclusively locked SQLite store.
type Session struct {
	*SQLite
	lock *flock.Flock
}

// OpenSession locks <path>.lock and opens the store at path. The lock is
// released by Close.
func OpenSession(ctx context.Context, path string) (*Session, error) {
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionLocked, path)
	}
	store, err := OpenSQLite(ctx, path)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return &Session{SQLite: store, lock: lock}, nil
}

// LockPath returns the lock file path.
func (s *Session) LockPath() string { return s.lock.Path() }

// Close closes the store and releases the lock.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	return errors.Join(s.SQLite.Close(), s.lock.Unlock())
}
