// Package distlock guards against two bot instances answering for the same
// account. The holder takes a lease at startup and renews it every cycle.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another instance already owns the lease.
var ErrHeld = errors.New("distlock: lease held by another instance")

// ErrLost is returned by Renew once the lease has expired or been taken.
var ErrLost = errors.New("distlock: lease lost")

// Lease is an exclusive, renewable claim on a key.
type Lease interface {
	// Acquire returns ErrHeld if someone else owns the key.
	Acquire(ctx context.Context) error
	// Renew extends the claim. It returns ErrLost only when another holder
	// owns the key; any other error is transient and the claim may recover.
	Renew(ctx context.Context) error
	// Release gives the claim up if still owned.
	Release(ctx context.Context) error
}

// New picks Redis when a client is given, then Postgres, and otherwise a
// lease that always succeeds.
func New(rdb *redis.Client, db *sql.DB, key string, ttl time.Duration) Lease {
	switch {
	case rdb != nil:
		return NewRedisLease(rdb, key, ttl)
	case db != nil:
		return NewPGLease(db, key)
	default:
		return noLease{}
	}
}

type noLease struct{}

func (noLease) Acquire(context.Context) error { return nil }
func (noLease) Renew(context.Context) error   { return nil }
func (noLease) Release(context.Context) error { return nil }

// PGLease uses a session-scoped advisory lock. Postgres drops it when the
// holding connection goes away, so the lease pins one pooled connection.
type PGLease struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGLease derives a stable advisory lock id from key.
func NewPGLease(db *sql.DB, key string) *PGLease {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGLease{db: db, lockID: int64(h.Sum64())}
}

// Acquire pins a connection and takes the advisory lock on it.
func (l *PGLease) Acquire(ctx context.Context) error {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return err
	}
	var ok bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&ok); err != nil {
		conn.Close()
		return err
	}
	if !ok {
		conn.Close()
		return ErrHeld
	}
	l.conn = conn
	return nil
}

// Renew checks that the pinned connection is still alive. A dropped
// connection takes the advisory lock with it, so Renew tries to take it
// again and returns ErrLost only if another session got there first.
func (l *PGLease) Renew(ctx context.Context) error {
	if l.conn != nil {
		if err := l.conn.PingContext(ctx); err == nil {
			return nil
		}
		l.conn.Close()
		l.conn = nil
	}
	err := l.Acquire(ctx)
	if errors.Is(err, ErrHeld) {
		return ErrLost
	}
	if err != nil {
		return fmt.Errorf("distlock: reacquire advisory lock: %w", err)
	}
	return nil
}

func (l *PGLease) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	l.conn.Close()
	l.conn = nil
	return err
}
