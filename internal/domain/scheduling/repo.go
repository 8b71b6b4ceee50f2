package scheduling

import "context"

type AppointmentRequestRepository interface {
	Create(ctx context.Context, r *AppointmentRequest) error
	GetByID(ctx context.Context, id int64) (*AppointmentRequest, error)
	Update(ctx context.Context, r *AppointmentRequest) error
	ListByPatient(ctx context.Context, patientProfileID int64, limit, offset int) ([]*AppointmentRequest, int, error)
	ListByStatus(ctx context.Context, status RequestStatus, limit, offset int) ([]*AppointmentRequest, int, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	ListByPatient(ctx context.Context, patientProfileID int64, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorProfileID int64, limit, offset int) ([]*Appointment, int, error)

	// ListDoctorIntervals returns the [start, end) windows of the doctor's
	// appointments in the given status that overlap the window. It feeds the
	// availability search and the conflict check.
	ListDoctorIntervals(ctx context.Context, doctorProfileID int64, window Interval, status AppointmentStatus) ([]Interval, error)

	// LockDoctorCalendar serializes concurrent bookings against one doctor's
	// calendar for the duration of the surrounding transaction.
	LockDoctorCalendar(ctx context.Context, doctorProfileID int64) error
}

// PrescriptionPurger removes the prescriptions linked to an appointment. It
// is implemented by the prescription repository; the miss cascade is the only
// thing this domain needs from that subsystem.
type PrescriptionPurger interface {
	DeleteByAppointment(ctx context.Context, appointmentID int64) (int64, error)
}
