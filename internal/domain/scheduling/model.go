package scheduling

import (
	"fmt"
	"time"
)

// RequestStatus is the closed set of appointment request states. Pending is
// the only non-terminal status; approved, rejected and cancelled are all
// terminal.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
)

// AppointmentStatus is the closed set of appointment states. Scheduled is the
// only non-terminal status.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentMissed    AppointmentStatus = "missed"
)

// AppointmentRequest is a patient's unconfirmed ask for care, pending staff
// action. People are referenced by opaque numeric profile ids owned by the
// identity subsystem.
type AppointmentRequest struct {
	ID                       int64         `db:"id" json:"id"`
	PatientProfileID         int64         `db:"patient_profile_id" json:"patient_profile_id"`
	SpecialtyID              int64         `db:"specialty_id" json:"specialty_id"`
	Reason                   string        `db:"reason" json:"reason"`
	PreferredDoctorProfileID *int64        `db:"preferred_doctor_profile_id" json:"preferred_doctor_profile_id,omitempty"`
	PreferredAt              *time.Time    `db:"preferred_at" json:"preferred_at,omitempty"`
	Status                   RequestStatus `db:"status" json:"status"`
	AppointmentID            *int64        `db:"appointment_id" json:"appointment_id,omitempty"`
	HandledByProfileID       *int64        `db:"handled_by_profile_id" json:"handled_by_profile_id,omitempty"`
	HandledAt                *time.Time    `db:"handled_at" json:"handled_at,omitempty"`
	HandlingNotes            *string       `db:"handling_notes" json:"handling_notes,omitempty"`
	CreatedAt                time.Time     `db:"created_at" json:"created_at"`
}

// NewAppointmentRequest constructs a pending request.
func NewAppointmentRequest(patientProfileID, specialtyID int64, reason string, preferredDoctorProfileID *int64, preferredAt *time.Time) *AppointmentRequest {
	return &AppointmentRequest{
		PatientProfileID:         patientProfileID,
		SpecialtyID:              specialtyID,
		Reason:                   reason,
		PreferredDoctorProfileID: preferredDoctorProfileID,
		PreferredAt:              preferredAt,
		Status:                   RequestPending,
		CreatedAt:                time.Now(),
	}
}

func (r *AppointmentRequest) IsPending() bool { return r.Status == RequestPending }

// Approve links the appointment created for this request and stamps the
// handler. Legal only from pending.
func (r *AppointmentRequest) Approve(appointmentID, handledByProfileID int64, handlingNotes *string) error {
	if r.Status != RequestPending {
		return r.transitionError("approve")
	}
	now := time.Now()
	r.Status = RequestApproved
	r.AppointmentID = &appointmentID
	r.HandledByProfileID = &handledByProfileID
	r.HandlingNotes = handlingNotes
	r.HandledAt = &now
	return nil
}

// Reject marks the request rejected. A rejection always carries a reason, so
// handlingNotes is mandatory. Legal only from pending.
func (r *AppointmentRequest) Reject(handledByProfileID int64, handlingNotes string) error {
	if r.Status != RequestPending {
		return r.transitionError("reject")
	}
	if handlingNotes == "" {
		return fmt.Errorf("handling notes are required to reject a request")
	}
	now := time.Now()
	r.Status = RequestRejected
	r.HandledByProfileID = &handledByProfileID
	r.HandlingNotes = &handlingNotes
	r.HandledAt = &now
	return nil
}

// Cancel marks the request cancelled. Self-service: no handler is recorded,
// only the handled timestamp. Legal only from pending.
func (r *AppointmentRequest) Cancel() error {
	if r.Status != RequestPending {
		return r.transitionError("cancel")
	}
	now := time.Now()
	r.Status = RequestCancelled
	r.HandledAt = &now
	return nil
}

// SetPreferredTime updates the preferred time. The preferred time is the only
// field a patient may edit, and only while the request is still pending.
func (r *AppointmentRequest) SetPreferredTime(t time.Time) error {
	if r.Status != RequestPending {
		return r.transitionError("edit")
	}
	r.PreferredAt = &t
	return nil
}

func (r *AppointmentRequest) transitionError(action string) error {
	return fmt.Errorf("%w: cannot %s appointment request %d in status %q",
		ErrInvalidTransition, action, r.ID, r.Status)
}

// Appointment is a confirmed, time-boxed booking of a patient with a doctor.
// The [StartTime, EndTime) window is half-open: an appointment ending at
// 10:00 does not conflict with one starting at 10:00.
type Appointment struct {
	ID                   int64             `db:"id" json:"id"`
	StartTime            time.Time         `db:"start_time" json:"start_time"`
	EndTime              time.Time         `db:"end_time" json:"end_time"`
	PatientProfileID     int64             `db:"patient_profile_id" json:"patient_profile_id"`
	DoctorProfileID      int64             `db:"doctor_profile_id" json:"doctor_profile_id"`
	SpecialtyID          int64             `db:"specialty_id" json:"specialty_id"`
	RoomName             string            `db:"room_name" json:"room_name"`
	Reason               string            `db:"reason" json:"reason"`
	DoctorNotes          *string           `db:"doctor_notes" json:"doctor_notes,omitempty"`
	Status               AppointmentStatus `db:"status" json:"status"`
	CreatedByProfileID   int64             `db:"created_by_profile_id" json:"created_by_profile_id"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
	CancelledByProfileID *int64            `db:"cancelled_by_profile_id" json:"cancelled_by_profile_id,omitempty"`
	CancelledAt          *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason   *string           `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
}

// NewAppointment constructs a scheduled appointment. Start must precede end.
func NewAppointment(start, end time.Time, patientProfileID, doctorProfileID, specialtyID int64, roomName, reason string, createdByProfileID int64) (*Appointment, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("appointment start %s must precede end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return &Appointment{
		StartTime:          start,
		EndTime:            end,
		PatientProfileID:   patientProfileID,
		DoctorProfileID:    doctorProfileID,
		SpecialtyID:        specialtyID,
		RoomName:           roomName,
		Reason:             reason,
		Status:             AppointmentScheduled,
		CreatedByProfileID: createdByProfileID,
		CreatedAt:          time.Now(),
	}, nil
}

func (a *Appointment) IsScheduled() bool { return a.Status == AppointmentScheduled }

// Interval returns the appointment's [start, end) window.
func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.EndTime}
}

// Complete marks the visit as having taken place. Legal only from scheduled.
func (a *Appointment) Complete(doctorNotes *string) error {
	if a.Status != AppointmentScheduled {
		return a.transitionError("complete")
	}
	a.Status = AppointmentCompleted
	if doctorNotes != nil {
		a.DoctorNotes = doctorNotes
	}
	return nil
}

// Cancel records who called the booking off and why. Legal only from
// scheduled. The lead-time policy is enforced by the service layer, not here.
func (a *Appointment) Cancel(cancelledByProfileID int64, cancellationReason string) error {
	if a.Status != AppointmentScheduled {
		return a.transitionError("cancel")
	}
	now := time.Now()
	a.Status = AppointmentCancelled
	a.CancelledByProfileID = &cancelledByProfileID
	a.CancellationReason = &cancellationReason
	a.CancelledAt = &now
	return nil
}

// Miss marks a no-show. Legal only from scheduled. Callers must delete any
// prescriptions linked to the appointment in the same transaction.
func (a *Appointment) Miss() error {
	if a.Status != AppointmentScheduled {
		return a.transitionError("miss")
	}
	a.Status = AppointmentMissed
	return nil
}

// CancellableAt reports whether the cancellation lead-time policy still
// permits cancelling: the appointment must start at least leadDays days after
// now.
func (a *Appointment) CancellableAt(now time.Time, leadDays int) bool {
	return !a.StartTime.Before(now.Add(time.Duration(leadDays) * 24 * time.Hour))
}

func (a *Appointment) transitionError(action string) error {
	return fmt.Errorf("%w: cannot %s appointment %d in status %q",
		ErrInvalidTransition, action, a.ID, a.Status)
}
