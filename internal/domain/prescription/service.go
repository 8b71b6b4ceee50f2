package prescription

import (
	"context"
	"fmt"
	"time"

	"github.com/hms/hms/internal/domain/scheduling"
	"github.com/hms/hms/internal/platform/db"
)

// AppointmentReader is the slice of the scheduling domain this package needs:
// looking up the appointment a prescription is issued against.
type AppointmentReader interface {
	GetByID(ctx context.Context, id int64) (*scheduling.Appointment, error)
}

type Service struct {
	repo         Repository
	appointments AppointmentReader
	tx           db.Runner
}

func NewService(repo Repository, appointments AppointmentReader, tx db.Runner) *Service {
	return &Service{repo: repo, appointments: appointments, tx: tx}
}

type CreateParams struct {
	AppointmentID int64              `json:"appointment_id"`
	Notes         *string            `json:"notes,omitempty"`
	Items         []PrescriptionItem `json:"items"`
}

// Create issues a prescription for a completed appointment. The patient and
// doctor are taken from the appointment, not from the caller.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Prescription, error) {
	var created *Prescription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		appt, err := s.appointments.GetByID(ctx, p.AppointmentID)
		if err != nil {
			return err
		}
		if appt.Status != scheduling.AppointmentCompleted {
			return fmt.Errorf("%w: appointment %d is %q", ErrAppointmentNotCompleted, appt.ID, appt.Status)
		}

		created = &Prescription{
			AppointmentID:    appt.ID,
			PatientProfileID: appt.PatientProfileID,
			DoctorProfileID:  appt.DoctorProfileID,
			Notes:            p.Notes,
			CreatedAt:        time.Now(),
			Items:            p.Items,
		}
		if err := created.Validate(); err != nil {
			return err
		}
		return s.repo.Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientProfileID int64, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.ListByPatient(ctx, patientProfileID, limit, offset)
}

func (s *Service) ListByAppointment(ctx context.Context, appointmentID int64) ([]*Prescription, error) {
	return s.repo.ListByAppointment(ctx, appointmentID)
}
