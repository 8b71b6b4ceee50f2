package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hms/hms/internal/domain/prescription"
	"github.com/hms/hms/internal/domain/scheduling"
	"github.com/hms/hms/internal/platform/db"
)

func newSchedulingService() (*scheduling.Service, prescription.Repository) {
	prescriptionRepo := prescription.NewRepoPG(globalDB.Pool)
	svc := scheduling.NewService(
		scheduling.NewAppointmentRequestRepoPG(globalDB.Pool),
		scheduling.NewAppointmentRepoPG(globalDB.Pool),
		prescriptionRepo,
		db.NewTxRunner(globalDB.Pool),
		scheduling.DefaultConfig(),
	)
	return svc, prescriptionRepo
}

// futureSlot returns a grid-aligned time the given number of days ahead.
func futureSlot(days int) time.Time {
	return scheduling.RoundDownToInterval(time.Now().AddDate(0, 0, days), 10).Add(time.Hour)
}

func TestRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	svc, _ := newSchedulingService()

	preferred := futureSlot(20)
	req, err := svc.CreateAppointmentRequest(ctx, scheduling.CreateRequestParams{
		PatientProfileID:         101,
		SpecialtyID:              3,
		Reason:                   "persistent headaches",
		PreferredDoctorProfileID: ptrInt64(201),
		PreferredAt:              &preferred,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if req.ID == 0 || req.Status != scheduling.RequestPending {
		t.Fatalf("unexpected request after create: %+v", req)
	}

	got, err := svc.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if got.PreferredAt == nil || !got.PreferredAt.Equal(preferred) {
		t.Errorf("preferred time not round-tripped: %v", got.PreferredAt)
	}

	rejected, err := svc.RejectRequest(ctx, req.ID, 301, "no capacity this month")
	if err != nil {
		t.Fatalf("reject request: %v", err)
	}
	if rejected.Status != scheduling.RequestRejected || rejected.HandlingNotes == nil {
		t.Errorf("rejection not recorded: %+v", rejected)
	}

	// Terminal states stay terminal.
	if _, err := svc.CancelRequest(ctx, req.ID); !errors.Is(err, scheduling.ErrInvalidTransition) {
		t.Errorf("cancel after reject = %v, want ErrInvalidTransition", err)
	}

	if _, err := svc.GetRequest(ctx, 99999); !errors.Is(err, scheduling.ErrNotFound) {
		t.Errorf("get missing request = %v, want ErrNotFound", err)
	}
}

func TestScheduleRequestBooksAtomically(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	svc, _ := newSchedulingService()

	windowStart := futureSlot(10)
	window := scheduling.Interval{Start: windowStart, End: windowStart.Add(4 * time.Hour)}

	var appointments []*scheduling.Appointment
	for i := 0; i < 3; i++ {
		req, err := svc.CreateAppointmentRequest(ctx, scheduling.CreateRequestParams{
			PatientProfileID:         int64(101 + i),
			SpecialtyID:              3,
			Reason:                   "follow-up",
			PreferredDoctorProfileID: ptrInt64(201),
		})
		if err != nil {
			t.Fatalf("create request %d: %v", i, err)
		}

		appt, err := svc.ScheduleRequest(ctx, req.ID, scheduling.ScheduleRequestParams{
			Window:             window,
			DurationMinutes:    30,
			RoomName:           "A.01.012",
			HandledByProfileID: 301,
		})
		if err != nil {
			t.Fatalf("schedule request %d: %v", i, err)
		}
		appointments = append(appointments, appt)

		updated, err := svc.GetRequest(ctx, req.ID)
		if err != nil {
			t.Fatalf("get request after schedule: %v", err)
		}
		if updated.Status != scheduling.RequestApproved {
			t.Errorf("request %d status = %s, want approved", req.ID, updated.Status)
		}
		if updated.AppointmentID == nil || *updated.AppointmentID != appt.ID {
			t.Errorf("request %d not linked to appointment %d", req.ID, appt.ID)
		}
	}

	// Three bookings in the same window against one doctor must not overlap.
	for i := 0; i < len(appointments); i++ {
		for j := i + 1; j < len(appointments); j++ {
			if appointments[i].Interval().Overlaps(appointments[j].Interval()) {
				t.Errorf("appointments %d and %d overlap", appointments[i].ID, appointments[j].ID)
			}
		}
	}
}

func TestDoubleBookingRejected(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	svc, _ := newSchedulingService()

	start := futureSlot(10)
	params := scheduling.CreateAppointmentParams{
		StartTime:          start,
		EndTime:            start.Add(30 * time.Minute),
		PatientProfileID:   101,
		DoctorProfileID:    201,
		SpecialtyID:        3,
		RoomName:           "B.02.034",
		Reason:             "checkup",
		CreatedByProfileID: 301,
	}

	if _, err := svc.CreateAppointment(ctx, params); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// Overlapping booking for the same doctor is refused.
	params.PatientProfileID = 102
	params.StartTime = start.Add(10 * time.Minute)
	params.EndTime = start.Add(40 * time.Minute)
	if _, err := svc.CreateAppointment(ctx, params); !errors.Is(err, scheduling.ErrConflict) {
		t.Errorf("overlapping booking = %v, want ErrConflict", err)
	}

	// Back-to-back is fine: intervals are half-open.
	params.StartTime = start.Add(30 * time.Minute)
	params.EndTime = start.Add(60 * time.Minute)
	if _, err := svc.CreateAppointment(ctx, params); err != nil {
		t.Errorf("adjacent booking: %v", err)
	}

	// Another doctor's calendar is unaffected.
	params.DoctorProfileID = 202
	params.StartTime = start
	params.EndTime = start.Add(30 * time.Minute)
	if _, err := svc.CreateAppointment(ctx, params); err != nil {
		t.Errorf("booking other doctor: %v", err)
	}
}

func TestCancelAppointmentLeadTime(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	svc, _ := newSchedulingService()

	book := func(days int, doctorID int64) *scheduling.Appointment {
		t.Helper()
		start := futureSlot(days)
		appt, err := svc.CreateAppointment(ctx, scheduling.CreateAppointmentParams{
			StartTime:          start,
			EndTime:            start.Add(30 * time.Minute),
			PatientProfileID:   101,
			DoctorProfileID:    doctorID,
			SpecialtyID:        3,
			RoomName:           "A.01.012",
			Reason:             "checkup",
			CreatedByProfileID: 301,
		})
		if err != nil {
			t.Fatalf("book: %v", err)
		}
		return appt
	}

	soon := book(1, 201)
	if _, err := svc.CancelAppointment(ctx, soon.ID, 101, "can't make it"); !errors.Is(err, scheduling.ErrCancellationClosed) {
		t.Errorf("cancel inside lead time = %v, want ErrCancellationClosed", err)
	}

	far := book(7, 202)
	cancelled, err := svc.CancelAppointment(ctx, far.ID, 101, "conflict at work")
	if err != nil {
		t.Fatalf("cancel outside lead time: %v", err)
	}
	if cancelled.Status != scheduling.AppointmentCancelled || cancelled.CancelledByProfileID == nil {
		t.Errorf("cancellation not recorded: %+v", cancelled)
	}

	// A cancelled appointment frees the slot for rebooking.
	if _, err := svc.CreateAppointment(ctx, scheduling.CreateAppointmentParams{
		StartTime:          far.StartTime,
		EndTime:            far.EndTime,
		PatientProfileID:   102,
		DoctorProfileID:    202,
		SpecialtyID:        3,
		RoomName:           "A.01.012",
		Reason:             "checkup",
		CreatedByProfileID: 301,
	}); err != nil {
		t.Errorf("rebooking freed slot: %v", err)
	}
}

func TestMissAppointmentPurgesPrescriptions(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	svc, prescriptionRepo := newSchedulingService()

	start := futureSlot(5)
	appt, err := svc.CreateAppointment(ctx, scheduling.CreateAppointmentParams{
		StartTime:          start,
		EndTime:            start.Add(30 * time.Minute),
		PatientProfileID:   101,
		DoctorProfileID:    201,
		SpecialtyID:        3,
		RoomName:           "A.01.012",
		Reason:             "checkup",
		CreatedByProfileID: 301,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	// A prescription recorded against a still-scheduled appointment must not
	// survive a no-show.
	err = prescriptionRepo.Create(ctx, &prescription.Prescription{
		AppointmentID:    appt.ID,
		PatientProfileID: appt.PatientProfileID,
		DoctorProfileID:  appt.DoctorProfileID,
		CreatedAt:        time.Now(),
		Items: []prescription.PrescriptionItem{
			{MedicationName: "amoxicillin", Dosage: "500mg", Frequency: "3x daily", DurationDays: 7},
		},
	})
	if err != nil {
		t.Fatalf("create prescription: %v", err)
	}

	missed, err := svc.MissAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("miss: %v", err)
	}
	if missed.Status != scheduling.AppointmentMissed {
		t.Errorf("status = %s, want missed", missed.Status)
	}

	remaining, err := prescriptionRepo.ListByAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("list prescriptions: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("%d prescriptions survive a missed visit, want 0", len(remaining))
	}

	if _, err := svc.MissAppointment(ctx, appt.ID); !errors.Is(err, scheduling.ErrInvalidTransition) {
		t.Errorf("second miss = %v, want ErrInvalidTransition", err)
	}
}

func TestPrescriptionFlow(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	svc, prescriptionRepo := newSchedulingService()
	prescriptionSvc := prescription.NewService(prescriptionRepo,
		scheduling.NewAppointmentRepoPG(globalDB.Pool), db.NewTxRunner(globalDB.Pool))

	start := futureSlot(5)
	appt, err := svc.CreateAppointment(ctx, scheduling.CreateAppointmentParams{
		StartTime:          start,
		EndTime:            start.Add(30 * time.Minute),
		PatientProfileID:   101,
		DoctorProfileID:    201,
		SpecialtyID:        3,
		RoomName:           "A.01.012",
		Reason:             "sore throat",
		CreatedByProfileID: 301,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	items := []prescription.PrescriptionItem{
		{MedicationName: "amoxicillin", Dosage: "500mg", Frequency: "3x daily", DurationDays: 7},
		{MedicationName: "ibuprofen", Dosage: "200mg", Frequency: "as needed", DurationDays: 5, Instructions: ptrStr("with food")},
	}

	// Only completed visits yield prescriptions.
	if _, err := prescriptionSvc.Create(ctx, prescription.CreateParams{AppointmentID: appt.ID, Items: items}); !errors.Is(err, prescription.ErrAppointmentNotCompleted) {
		t.Errorf("prescription on scheduled visit = %v, want ErrAppointmentNotCompleted", err)
	}

	if _, err := svc.CompleteAppointment(ctx, appt.ID, ptrStr("strep confirmed")); err != nil {
		t.Fatalf("complete: %v", err)
	}

	created, err := prescriptionSvc.Create(ctx, prescription.CreateParams{
		AppointmentID: appt.ID,
		Notes:         ptrStr("full course even if symptoms clear"),
		Items:         items,
	})
	if err != nil {
		t.Fatalf("create prescription: %v", err)
	}
	if created.PatientProfileID != appt.PatientProfileID || created.DoctorProfileID != appt.DoctorProfileID {
		t.Errorf("prescription parties not taken from appointment: %+v", created)
	}

	got, err := prescriptionSvc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get prescription: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(got.Items))
	}
	if got.Items[1].Instructions == nil || *got.Items[1].Instructions != "with food" {
		t.Errorf("item instructions not round-tripped: %+v", got.Items[1])
	}

	byPatient, total, err := prescriptionSvc.ListByPatient(ctx, 101, 20, 0)
	if err != nil {
		t.Fatalf("list by patient: %v", err)
	}
	if total != 1 || len(byPatient) != 1 {
		t.Errorf("list by patient returned %d/%d, want 1/1", len(byPatient), total)
	}
}
