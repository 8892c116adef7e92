package wallet

import "errors"

var (
	// ErrCapacityExceeded is returned when an operation would push the active
	// photo count above the capacity ceiling. State is left unchanged.
	ErrCapacityExceeded = errors.New("wallet is full")
	// ErrNotFound is returned for an id that is not in the relevant list.
	ErrNotFound = errors.New("photo not found")
	// ErrInvalidPermutation is returned when a reorder list is not a
	// permutation of the active photo ids.
	ErrInvalidPermutation = errors.New("order must list every active photo exactly once")
	// ErrViewerClosed is returned when setting the viewer index while the
	// viewer is closed.
	ErrViewerClosed = errors.New("viewer is not open")
	// ErrQueueStopped is reported for uploads submitted to a stopped queue.
	ErrQueueStopped = errors.New("import queue stopped")
)
