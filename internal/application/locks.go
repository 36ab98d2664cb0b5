// Package application contains use-case orchestration services: the
// publisher implementations, the background task runner, and the admin
// control surface.
package application

import "github.com/puzpuzpuz/xsync/v3"

// DeliveryLocks is the process-wide mutual-exclusion set keyed by
// submission URI. It prevents two concurrent deliveries of the same
// submission within one process; it is not persisted, so a process
// restart implicitly clears in-flight locks.
//
// One instance is created at the composition root and injected into
// every component that delivers submissions.
type DeliveryLocks struct {
	held *xsync.MapOf[string, struct{}]
}

// NewDeliveryLocks creates an empty lock set.
func NewDeliveryLocks() *DeliveryLocks {
	return &DeliveryLocks{held: xsync.NewMapOf[string, struct{}]()}
}

// TryAcquire attempts to take the lock for a submission URI. It is a
// single atomic test-and-set: false means another delivery already holds
// it and the caller should skip the submission.
func (l *DeliveryLocks) TryAcquire(submissionURI string) bool {
	_, loaded := l.held.LoadOrStore(submissionURI, struct{}{})
	return !loaded
}

// Release unconditionally drops the lock for a submission URI. Callers
// must release on every exit path so a fault mid-delivery never leaves a
// submission locked out for the life of the process.
func (l *DeliveryLocks) Release(submissionURI string) {
	l.held.Delete(submissionURI)
}
