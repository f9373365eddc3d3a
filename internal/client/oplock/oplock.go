// Package oplock provides the single-flight gate that lets at most one
// user-triggered operation run at a time. Contenders are turned away, never
// queued.
package oplock

import "sync/atomic"

// Lock is a non-blocking, non-reentrant flag. The zero value is unlocked.
//
// There is no hold timeout: an operation that never settles keeps the lock.
type Lock struct {
	held atomic.Bool
}

// TryAcquire takes the lock and reports true, or reports false without
// changing anything if it is already held.
func (l *Lock) TryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

// Release frees the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() {
	l.held.Store(false)
}

// Held reports whether an operation is in flight.
func (l *Lock) Held() bool {
	return l.held.Load()
}
