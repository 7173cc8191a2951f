package calendar

import (
	"errors"
	"fmt"
)

// ErrSyncInProgress is returned when a sync pass for a connection started
// less than the advisory interval ago. Batch callers treat it as a skip,
// not a failure.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrInvalidDateRange is returned when an end date does not fall after
// its start date.
var ErrInvalidDateRange = errors.New("end date must be after start date")

// NotFoundError marks a missing resource, or one the caller's access may
// not touch. The API maps it to 404.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConflictError marks a write that would violate a uniqueness or
// availability constraint. The API maps it to 409.
type ConflictError struct {
	Resource string
	Key      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Key)
}
