// Package distlock serializes one-off jobs, such as schema migrations,
// across processes.
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

// ErrNotAcquired is returned by Run when another process holds the lock.
var ErrNotAcquired = errors.New("lock held by another process")

// DistLock is the interface for distributed locking. A lock instance is
// owned by one goroutine at a time.
type DistLock interface {
	// Acquire tries to acquire the lock without blocking.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// NewLock picks Redis when a client is given and falls back to a
// PostgreSQL advisory lock otherwise.
func NewLock(redisClient redis.Cmdable, db *sql.DB, key string, ttl time.Duration) DistLock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	return NewPGAdvisoryLock(db, key)
}

// Extender is implemented by locks that expire unless renewed.
type Extender interface {
	TTL() time.Duration
	Extend(ctx context.Context, ttl time.Duration) (bool, error)
}

// Run acquires lock, runs fn and releases the lock. It returns
// ErrNotAcquired without calling fn when the lock is taken. Expiring locks
// are renewed every third of their TTL while fn runs; if renewal finds the
// lock lost, fn's context is cancelled.
func Run(ctx context.Context, lock DistLock, fn func(ctx context.Context) error) error {
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}

	jobCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	if ext, ok := lock.(Extender); ok && ext.TTL() > 0 {
		go keepAlive(jobCtx, cancel, ext, done)
	} else {
		close(done)
	}

	runErr := fn(jobCtx)
	cancel()
	<-done

	// Release on a fresh context so a cancelled job still unlocks.
	releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer releaseCancel()
	if err := lock.Release(releaseCtx); err != nil && runErr == nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return runErr
}

func keepAlive(ctx context.Context, cancel context.CancelFunc, lock Extender, done chan<- struct{}) {
	defer close(done)
	ttl := lock.TTL()
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := lock.Extend(ctx, ttl)
			if err != nil && ctx.Err() != nil {
				return
			}
			// A transient error is retried on the next tick; the TTL still
			// covers two more attempts.
			if err == nil && !ok {
				cancel()
				return
			}
		}
	}
}

// PGAdvisoryLock uses pg_try_advisory_lock. Advisory locks belong to a
// session, so the lock pins one pooled connection from Acquire until
// Release. The lock is dropped by Postgres if that connection dies.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock derives a stable 64-bit lock id from key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	if l.conn != nil {
		return false, errors.New("advisory lock already acquired by this instance")
	}
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("advisory lock conn: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("advisory lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	if _, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	return nil
}
