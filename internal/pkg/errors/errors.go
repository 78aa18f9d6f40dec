package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied marks cross-tenant access attempts.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLockUnavailable means the lock coordinator could not grant a lease.
	// Discovery treats it as non-fatal and proceeds without mutual exclusion.
	ErrLockUnavailable = errors.New("lock unavailable")
)
