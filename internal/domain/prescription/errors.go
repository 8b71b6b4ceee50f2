package prescription

import "errors"

var (
	// ErrNotFound is returned when the requested prescription does not exist.
	ErrNotFound = errors.New("prescription not found")

	// ErrAppointmentNotCompleted is returned when a prescription is issued
	// against an appointment that has not taken place.
	ErrAppointmentNotCompleted = errors.New("appointment not completed")
)
