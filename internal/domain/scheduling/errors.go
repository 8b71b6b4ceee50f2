package scheduling

import "errors"

// Common errors returned by the scheduling domain.
var (
	// ErrNotFound is returned when a referenced request or appointment does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a state-machine method is invoked
	// from a status that does not permit it. The precondition will not change,
	// so callers should not retry.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNoAvailability is returned when the slot search exhausts its attempt
	// budget without finding a free slot. Callers should offer a different
	// window or doctor, never a conflicting slot.
	ErrNoAvailability = errors.New("no available slot")

	// ErrConflict is returned when a booking attempt overlaps an existing
	// scheduled appointment, including when it lost a race to a concurrent
	// booking. Callers should search again rather than retry the same slot.
	ErrConflict = errors.New("slot conflicts with an existing appointment")

	// ErrCancellationClosed is returned when an appointment starts too soon
	// for the cancellation lead-time policy. Unlike ErrInvalidTransition this
	// is time-dependent, not status-dependent.
	ErrCancellationClosed = errors.New("cancellation window has closed")
)
