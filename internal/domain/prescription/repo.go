package prescription

import "context"

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id int64) (*Prescription, error)
	ListByPatient(ctx context.Context, patientProfileID int64, limit, offset int) ([]*Prescription, int, error)
	ListByAppointment(ctx context.Context, appointmentID int64) ([]*Prescription, error)

	// DeleteByAppointment removes every prescription linked to the
	// appointment and returns how many were deleted. The scheduling domain
	// calls this inside the miss transaction.
	DeleteByAppointment(ctx context.Context, appointmentID int64) (int64, error)
}
