package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/hms/hms/internal/platform/db"
)

// Config carries the booking policy settings the host application supplies.
type Config struct {
	// SlotIntervalMinutes is the booking grid all start times snap to.
	SlotIntervalMinutes int
	// SlotSearchMaxAttempts bounds the randomized slot search.
	SlotSearchMaxAttempts int
	// PreferredDateMaxDays is how far ahead a request's preferred time may be.
	PreferredDateMaxDays int
	// CancelLeadDays is the minimum lead time for cancelling an appointment.
	CancelLeadDays int
}

// DefaultConfig returns the clinic's default booking policy.
func DefaultConfig() Config {
	return Config{
		SlotIntervalMinutes:   10,
		SlotSearchMaxAttempts: 100,
		PreferredDateMaxDays:  180,
		CancelLeadDays:        2,
	}
}

// Service orchestrates the appointment lifecycle: it creates requests and
// appointments and drives the guarded status transitions, persisting through
// the repositories. Each transition executes inside one transaction.
type Service struct {
	requests      AppointmentRequestRepository
	appointments  AppointmentRepository
	prescriptions PrescriptionPurger
	tx            db.Runner
	cfg           Config
}

func NewService(requests AppointmentRequestRepository, appointments AppointmentRepository, prescriptions PrescriptionPurger, tx db.Runner, cfg Config) *Service {
	return &Service{
		requests:      requests,
		appointments:  appointments,
		prescriptions: prescriptions,
		tx:            tx,
		cfg:           cfg,
	}
}

// -- Appointment requests --

type CreateRequestParams struct {
	PatientProfileID         int64      `json:"patient_profile_id"`
	SpecialtyID              int64      `json:"specialty_id"`
	Reason                   string     `json:"reason"`
	PreferredDoctorProfileID *int64     `json:"preferred_doctor_profile_id,omitempty"`
	PreferredAt              *time.Time `json:"preferred_at,omitempty"`
}

// CreateAppointmentRequest records a patient's ask for care. A request
// expresses intent, not a reservation, so no conflict checking happens here.
func (s *Service) CreateAppointmentRequest(ctx context.Context, p CreateRequestParams) (*AppointmentRequest, error) {
	if p.Reason == "" {
		return nil, fmt.Errorf("reason is required")
	}
	if p.PreferredAt != nil {
		snapped, err := s.normalizePreferred(*p.PreferredAt)
		if err != nil {
			return nil, err
		}
		p.PreferredAt = &snapped
	}

	req := NewAppointmentRequest(p.PatientProfileID, p.SpecialtyID, p.Reason,
		p.PreferredDoctorProfileID, p.PreferredAt)
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateRequestPreferredTime changes the preferred time of a still-pending
// request. The only mutation permitted before a terminal transition.
func (s *Service) UpdateRequestPreferredTime(ctx context.Context, requestID int64, preferred time.Time) (*AppointmentRequest, error) {
	snapped, err := s.normalizePreferred(preferred)
	if err != nil {
		return nil, err
	}

	var req *AppointmentRequest
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		req, err = s.requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := req.SetPreferredTime(snapped); err != nil {
			return err
		}
		return s.requests.Update(ctx, req)
	})
	return req, err
}

func (s *Service) normalizePreferred(preferred time.Time) (time.Time, error) {
	horizon := time.Now().AddDate(0, 0, s.cfg.PreferredDateMaxDays)
	if preferred.After(horizon) {
		return time.Time{}, fmt.Errorf("preferred time is more than %d days out", s.cfg.PreferredDateMaxDays)
	}
	return RoundDownToInterval(preferred, s.cfg.SlotIntervalMinutes), nil
}

// ApproveRequest links an already-created appointment to a pending request.
// See ScheduleRequest for the flow that books the appointment as well.
func (s *Service) ApproveRequest(ctx context.Context, requestID, appointmentID, handledByProfileID int64, handlingNotes *string) (*AppointmentRequest, error) {
	var req *AppointmentRequest
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if _, err := s.appointments.GetByID(ctx, appointmentID); err != nil {
			return err
		}
		if err := req.Approve(appointmentID, handledByProfileID, handlingNotes); err != nil {
			return err
		}
		return s.requests.Update(ctx, req)
	})
	return req, err
}

// RejectRequest turns down a pending request. Handling notes are mandatory.
func (s *Service) RejectRequest(ctx context.Context, requestID, handledByProfileID int64, handlingNotes string) (*AppointmentRequest, error) {
	var req *AppointmentRequest
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := req.Reject(handledByProfileID, handlingNotes); err != nil {
			return err
		}
		return s.requests.Update(ctx, req)
	})
	return req, err
}

// CancelRequest withdraws a pending request. Self-service, so no handler is
// recorded.
func (s *Service) CancelRequest(ctx context.Context, requestID int64) (*AppointmentRequest, error) {
	var req *AppointmentRequest
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := req.Cancel(); err != nil {
			return err
		}
		return s.requests.Update(ctx, req)
	})
	return req, err
}

func (s *Service) GetRequest(ctx context.Context, id int64) (*AppointmentRequest, error) {
	return s.requests.GetByID(ctx, id)
}

func (s *Service) ListRequestsByPatient(ctx context.Context, patientProfileID int64, limit, offset int) ([]*AppointmentRequest, int, error) {
	return s.requests.ListByPatient(ctx, patientProfileID, limit, offset)
}

func (s *Service) ListRequestsByStatus(ctx context.Context, status RequestStatus, limit, offset int) ([]*AppointmentRequest, int, error) {
	return s.requests.ListByStatus(ctx, status, limit, offset)
}

// -- Appointments --

type CreateAppointmentParams struct {
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	PatientProfileID   int64     `json:"patient_profile_id"`
	DoctorProfileID    int64     `json:"doctor_profile_id"`
	SpecialtyID        int64     `json:"specialty_id"`
	RoomName           string    `json:"room_name"`
	Reason             string    `json:"reason"`
	CreatedByProfileID int64     `json:"created_by_profile_id"`
}

// CreateAppointment books a doctor directly at the given window. The
// check-then-create runs under a per-doctor lock inside one transaction so a
// concurrent booking against the same calendar serializes; an overlap with a
// scheduled appointment fails with ErrConflict.
func (s *Service) CreateAppointment(ctx context.Context, p CreateAppointmentParams) (*Appointment, error) {
	a, err := NewAppointment(p.StartTime, p.EndTime, p.PatientProfileID, p.DoctorProfileID,
		p.SpecialtyID, p.RoomName, p.Reason, p.CreatedByProfileID)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.appointments.LockDoctorCalendar(ctx, p.DoctorProfileID); err != nil {
			return err
		}
		busy, err := s.appointments.ListDoctorIntervals(ctx, p.DoctorProfileID, a.Interval(), AppointmentScheduled)
		if err != nil {
			return err
		}
		if len(busy) > 0 {
			return fmt.Errorf("%w: doctor %d is booked from %s to %s",
				ErrConflict, p.DoctorProfileID,
				busy[0].Start.Format(time.RFC3339), busy[0].End.Format(time.RFC3339))
		}
		return s.appointments.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// FindAvailability returns the earliest grid-aligned slot of the given
// duration in the window that does not overlap any of the doctor's scheduled
// appointments. Exhaustion is ErrNoAvailability, not a failure.
func (s *Service) FindAvailability(ctx context.Context, doctorProfileID int64, window Interval, duration time.Duration) (Interval, error) {
	busy, err := s.appointments.ListDoctorIntervals(ctx, doctorProfileID, window, AppointmentScheduled)
	if err != nil {
		return Interval{}, err
	}
	slot, ok := FirstFitSlot(busy, window, duration, s.cfg.SlotIntervalMinutes)
	if !ok {
		return Interval{}, fmt.Errorf("%w: doctor %d between %s and %s",
			ErrNoAvailability, doctorProfileID,
			window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))
	}
	return slot, nil
}

type ScheduleRequestParams struct {
	// DoctorProfileID overrides the request's preferred doctor when set.
	DoctorProfileID    *int64    `json:"doctor_profile_id,omitempty"`
	Window             Interval  `json:"window"`
	DurationMinutes    int       `json:"duration_minutes"`
	RoomName           string    `json:"room_name"`
	HandledByProfileID int64     `json:"handled_by_profile_id"`
	HandlingNotes      *string   `json:"handling_notes,omitempty"`
}

// ScheduleRequest approves a pending request by booking an appointment at a
// free slot in the given window and linking it back. Booking and approval
// commit atomically.
func (s *Service) ScheduleRequest(ctx context.Context, requestID int64, p ScheduleRequestParams) (*Appointment, error) {
	if p.DurationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d minutes", p.DurationMinutes)
	}
	duration := time.Duration(p.DurationMinutes) * time.Minute

	var appt *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.IsPending() {
			return req.transitionError("approve")
		}

		doctorID := p.DoctorProfileID
		if doctorID == nil {
			doctorID = req.PreferredDoctorProfileID
		}
		if doctorID == nil {
			return fmt.Errorf("request %d has no preferred doctor and none was given", requestID)
		}

		if err := s.appointments.LockDoctorCalendar(ctx, *doctorID); err != nil {
			return err
		}
		busy, err := s.appointments.ListDoctorIntervals(ctx, *doctorID, p.Window, AppointmentScheduled)
		if err != nil {
			return err
		}
		slot, ok := FirstFitSlot(busy, p.Window, duration, s.cfg.SlotIntervalMinutes)
		if !ok {
			return fmt.Errorf("%w: doctor %d between %s and %s",
				ErrNoAvailability, *doctorID,
				p.Window.Start.Format(time.RFC3339), p.Window.End.Format(time.RFC3339))
		}

		appt, err = NewAppointment(slot.Start, slot.End, req.PatientProfileID, *doctorID,
			req.SpecialtyID, p.RoomName, req.Reason, p.HandledByProfileID)
		if err != nil {
			return err
		}
		if err := s.appointments.Create(ctx, appt); err != nil {
			return err
		}
		if err := req.Approve(appt.ID, p.HandledByProfileID, p.HandlingNotes); err != nil {
			return err
		}
		return s.requests.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// CompleteAppointment marks the visit as having taken place.
func (s *Service) CompleteAppointment(ctx context.Context, appointmentID int64, doctorNotes *string) (*Appointment, error) {
	var appt *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = s.appointments.GetByID(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := appt.Complete(doctorNotes); err != nil {
			return err
		}
		return s.appointments.Update(ctx, appt)
	})
	return appt, err
}

// CancelAppointment calls a booking off. Besides the status guard, the
// cancellation lead-time policy applies: the appointment must start at least
// CancelLeadDays days from now, otherwise ErrCancellationClosed.
func (s *Service) CancelAppointment(ctx context.Context, appointmentID, cancelledByProfileID int64, cancellationReason string) (*Appointment, error) {
	var appt *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = s.appointments.GetByID(ctx, appointmentID)
		if err != nil {
			return err
		}
		if appt.IsScheduled() && !appt.CancellableAt(time.Now(), s.cfg.CancelLeadDays) {
			return fmt.Errorf("%w: appointment %d starts %s, needs %d days notice",
				ErrCancellationClosed, appointmentID,
				appt.StartTime.Format(time.RFC3339), s.cfg.CancelLeadDays)
		}
		if err := appt.Cancel(cancelledByProfileID, cancellationReason); err != nil {
			return err
		}
		return s.appointments.Update(ctx, appt)
	})
	return appt, err
}

// MissAppointment records a no-show. Prescriptions linked to the appointment
// are deleted in the same transaction: a missed visit cannot have produced
// medication orders.
func (s *Service) MissAppointment(ctx context.Context, appointmentID int64) (*Appointment, error) {
	var appt *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = s.appointments.GetByID(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := appt.Miss(); err != nil {
			return err
		}
		if _, err := s.prescriptions.DeleteByAppointment(ctx, appointmentID); err != nil {
			return err
		}
		return s.appointments.Update(ctx, appt)
	})
	return appt, err
}

func (s *Service) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientProfileID int64, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientProfileID, limit, offset)
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorProfileID int64, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByDoctor(ctx, doctorProfileID, limit, offset)
}
