// Package seeder generates a synthetic but internally consistent appointment
// history for demo and development databases: patients file requests, staff
// handle them, appointments get booked into conflict-free calendars, and past
// visits resolve into completions, no-shows and prescriptions.
package seeder

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/prescription"
	"github.com/hms/hms/internal/domain/scheduling"
	"github.com/hms/hms/internal/platform/db"
)

// Config controls the volume and shape of the generated history.
type Config struct {
	PatientCount      int
	DoctorCount       int
	ReceptionistCount int
	SpecialtyCount    int

	// RequestPeak is the most common number of requests per patient; the
	// count per patient is drawn from a distribution that falls off around
	// it, bounded by RequestMax.
	RequestPeak int
	RequestMax  int

	// HistoryDays is how far in the past request creation times reach.
	HistoryDays int
	// PreferredHorizonDays bounds how far after creation a preferred time
	// may fall.
	PreferredHorizonDays int

	SlotIntervalMinutes int
	CancelLeadDays      int

	// Seed fixes the rng for reproducible output; 0 picks a time-based seed.
	Seed int64
}

// DefaultConfig mirrors the shape of a mid-size clinic's backlog.
func DefaultConfig() Config {
	return Config{
		PatientCount:         50,
		DoctorCount:          10,
		ReceptionistCount:    4,
		SpecialtyCount:       8,
		RequestPeak:          8,
		RequestMax:           80,
		HistoryDays:          365,
		PreferredHorizonDays: 180,
		SlotIntervalMinutes:  10,
		CancelLeadDays:       2,
		Seed:                 0,
	}
}

// Result summarizes one seeding run.
type Result struct {
	Requests          int           `json:"requests"`
	Approved          int           `json:"approved"`
	Rejected          int           `json:"rejected"`
	CancelledRequests int           `json:"cancelled_requests"`
	Appointments      int           `json:"appointments"`
	Completed         int           `json:"completed"`
	Missed            int           `json:"missed"`
	Cancelled         int           `json:"cancelled"`
	Prescriptions     int           `json:"prescriptions"`
	Duration          time.Duration `json:"duration"`
}

// Profile id pools. The identity subsystem owns the actual profiles; the
// seeder just needs disjoint numeric ranges per role.
const (
	patientProfileBase      = 1000
	doctorProfileBase       = 2000
	receptionistProfileBase = 3000
)

type Seeder struct {
	rng           *rand.Rand
	cfg           Config
	requests      scheduling.AppointmentRequestRepository
	appointments  scheduling.AppointmentRepository
	prescriptions prescription.Repository
	tx            db.Runner
	logger        zerolog.Logger

	// busy tracks each doctor's scheduled windows so generated bookings
	// never overlap.
	busy map[int64][]scheduling.Interval
}

func New(cfg Config, requests scheduling.AppointmentRequestRepository, appointments scheduling.AppointmentRepository, prescriptions prescription.Repository, tx db.Runner, logger zerolog.Logger) *Seeder {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{
		rng:           rand.New(rand.NewSource(seed)),
		cfg:           cfg,
		requests:      requests,
		appointments:  appointments,
		prescriptions: prescriptions,
		tx:            tx,
		logger:        logger,
		busy:          make(map[int64][]scheduling.Interval),
	}
}

// Run generates the full history: requests, then request handling, then
// appointment outcomes. Each phase commits as one transaction.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	var requests []*scheduling.AppointmentRequest
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		requests, err = s.generateRequests(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("generating requests: %w", err)
	}
	result.Requests = len(requests)

	var appointments []*scheduling.Appointment
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		appointments, err = s.handleRequests(ctx, requests, result)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("handling requests: %w", err)
	}
	result.Appointments = len(appointments)

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.resolveAppointments(ctx, appointments, result)
	})
	if err != nil {
		return nil, fmt.Errorf("resolving appointments: %w", err)
	}

	result.Duration = time.Since(start)
	s.logger.Info().
		Int("requests", result.Requests).
		Int("appointments", result.Appointments).
		Int("completed", result.Completed).
		Int("missed", result.Missed).
		Int("prescriptions", result.Prescriptions).
		Dur("duration", result.Duration).
		Msg("seeding complete")
	return result, nil
}

// -- Phase 1: requests --

func (s *Seeder) generateRequests(ctx context.Context) ([]*scheduling.AppointmentRequest, error) {
	now := time.Now()
	var out []*scheduling.AppointmentRequest

	for p := 0; p < s.cfg.PatientCount; p++ {
		patientID := int64(patientProfileBase + p)
		count := s.biasedInt(s.cfg.RequestPeak, 0, s.cfg.RequestMax, 2.0)

		for i := 0; i < count; i++ {
			doctorID := s.randomDoctor()
			specialtyID := int64(1 + s.rng.Intn(s.cfg.SpecialtyCount))

			created := now.Add(-time.Duration(s.rng.Int63n(int64(s.cfg.HistoryDays)*24*3600)) * time.Second)
			preferred := created.Add(time.Duration(s.rng.Int63n(int64(s.cfg.PreferredHorizonDays)*24*3600)) * time.Second)
			preferred = scheduling.RoundDownToInterval(preferred, s.cfg.SlotIntervalMinutes)

			req := scheduling.NewAppointmentRequest(patientID, specialtyID, s.pick(visitReasons), &doctorID, &preferred)
			req.CreatedAt = created
			if err := s.requests.Create(ctx, req); err != nil {
				return nil, err
			}
			out = append(out, req)
		}
	}
	return out, nil
}

// -- Phase 2: request handling --

const (
	handleWindowDays  = 7
	shortLeadDays     = 21
	bookingWindowDays = 2
)

func (s *Seeder) handleRequests(ctx context.Context, requests []*scheduling.AppointmentRequest, result *Result) ([]*scheduling.Appointment, error) {
	now := time.Now()
	var appointments []*scheduling.Appointment

	for _, req := range requests {
		// Requests still inside their handling window stay pending.
		handleBy := req.CreatedAt.AddDate(0, 0, handleWindowDays)
		if now.Before(handleBy) {
			continue
		}

		action := s.pickAction(req)
		switch action {
		case "approve":
			appt, err := s.bookForRequest(ctx, req, now, handleBy)
			if err != nil {
				return nil, err
			}
			if appt == nil {
				// No free slot found; the clinic gave up and the patient
				// withdrew.
				if err := s.cancelRequest(ctx, req, now, handleBy); err != nil {
					return nil, err
				}
				result.CancelledRequests++
				continue
			}
			appointments = append(appointments, appt)
			result.Approved++

		case "cancel":
			if err := s.cancelRequest(ctx, req, now, handleBy); err != nil {
				return nil, err
			}
			result.CancelledRequests++

		case "reject":
			receptionist := s.randomReceptionist()
			if err := req.Reject(receptionist, s.pick(handlingNotes)); err != nil {
				return nil, err
			}
			handled := s.timeBetween(req.CreatedAt, minTime(now, handleBy))
			req.HandledAt = &handled
			if err := s.requests.Update(ctx, req); err != nil {
				return nil, err
			}
			result.Rejected++
		}
	}
	return appointments, nil
}

// pickAction decides how staff dealt with the request. Requests whose
// preferred time left little lead from creation skew heavily toward
// rejection, scaling from roughly 90% at zero days down to 30% near the
// threshold.
func (s *Seeder) pickAction(req *scheduling.AppointmentRequest) string {
	if req.PreferredAt != nil {
		leadDays := int(req.PreferredAt.Sub(req.CreatedAt).Hours() / 24)
		if leadDays < shortLeadDays {
			rejectProb := math.Max(0.3, 0.9-float64(leadDays)/float64(shortLeadDays)*0.6)
			rejectWeight := int(rejectProb * 100)
			return s.pickWeighted([]weightedString{
				{"reject", rejectWeight},
				{"approve", 100 - rejectWeight},
			})
		}
	}
	return s.pickWeighted([]weightedString{
		{"approve", 60},
		{"cancel", 20},
		{"reject", 20},
	})
}

func (s *Seeder) bookForRequest(ctx context.Context, req *scheduling.AppointmentRequest, now, handleBy time.Time) (*scheduling.Appointment, error) {
	doctorID := s.pickDoctorFor(req)

	var windowStart time.Time
	if req.PreferredAt != nil {
		windowStart = *req.PreferredAt
	} else {
		offset := s.biasedInt(240, 24, 960, 2.0)
		windowStart = req.CreatedAt.Add(time.Duration(offset) * time.Hour)
	}
	window := scheduling.Interval{Start: windowStart, End: windowStart.AddDate(0, 0, bookingWindowDays)}
	duration := time.Duration(s.pickDuration()) * time.Minute

	slot, ok := scheduling.RandomSlot(s.rng, s.busy[doctorID], window, duration, s.cfg.SlotIntervalMinutes, 100)
	if !ok {
		return nil, nil
	}

	receptionist := s.randomReceptionist()
	appt, err := scheduling.NewAppointment(slot.Start, slot.End, req.PatientProfileID, doctorID,
		req.SpecialtyID, s.roomName(), req.Reason, receptionist)
	if err != nil {
		return nil, err
	}
	appt.CreatedAt = s.timeBetween(req.CreatedAt, minTime(now, handleBy))
	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, err
	}
	s.busy[doctorID] = append(s.busy[doctorID], slot)

	if err := req.Approve(appt.ID, receptionist, nil); err != nil {
		return nil, err
	}
	req.HandledAt = &appt.CreatedAt
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}
	return appt, nil
}

// pickDoctorFor books the preferred doctor most of the time, someone else
// otherwise.
func (s *Seeder) pickDoctorFor(req *scheduling.AppointmentRequest) int64 {
	if req.PreferredDoctorProfileID != nil && s.rng.Intn(100) < 80 {
		return *req.PreferredDoctorProfileID
	}
	return s.randomDoctor()
}

func (s *Seeder) pickDuration() int {
	return s.pickWeightedInt([]weightedInt{
		{10, 5}, {20, 15}, {30, 40}, {40, 10}, {50, 10}, {60, 20},
	})
}

func (s *Seeder) cancelRequest(ctx context.Context, req *scheduling.AppointmentRequest, now, handleBy time.Time) error {
	if err := req.Cancel(); err != nil {
		return err
	}
	handled := s.timeBetween(req.CreatedAt, minTime(now, handleBy))
	req.HandledAt = &handled
	return s.requests.Update(ctx, req)
}

// -- Phase 3: appointment outcomes --

func (s *Seeder) resolveAppointments(ctx context.Context, appointments []*scheduling.Appointment, result *Result) error {
	now := time.Now()

	for _, appt := range appointments {
		var outcome string
		if now.After(appt.StartTime) {
			outcome = s.pickWeighted([]weightedString{
				{"completed", 85},
				{"missed", 15},
			})
		} else if appt.StartTime.Sub(now) <= time.Duration(s.cfg.CancelLeadDays)*24*time.Hour {
			outcome = s.pickWeighted([]weightedString{
				{"completed", 60},
				{"cancelled", 30},
				{"pending", 10},
			})
		} else {
			outcome = "pending"
		}

		switch outcome {
		case "pending":
			continue

		case "completed":
			notes := s.pick(doctorNoteLines)
			if err := appt.Complete(&notes); err != nil {
				return err
			}
			if err := s.appointments.Update(ctx, appt); err != nil {
				return err
			}
			if err := s.writePrescription(ctx, appt, now); err != nil {
				return err
			}
			result.Completed++
			result.Prescriptions++

		case "missed":
			if err := appt.Miss(); err != nil {
				return err
			}
			// Keep the miss invariant even for synthetic data.
			if _, err := s.prescriptions.DeleteByAppointment(ctx, appt.ID); err != nil {
				return err
			}
			if err := s.appointments.Update(ctx, appt); err != nil {
				return err
			}
			result.Missed++

		case "cancelled":
			cancelledBy := appt.PatientProfileID
			if s.rng.Intn(100) < 30 {
				cancelledBy = appt.DoctorProfileID
			}
			if err := appt.Cancel(cancelledBy, s.pick(cancellationReasons)); err != nil {
				return err
			}
			cancelledAt := s.timeBetween(appt.CreatedAt, minTime(now, appt.StartTime.Add(-time.Hour)))
			appt.CancelledAt = &cancelledAt
			if err := s.appointments.Update(ctx, appt); err != nil {
				return err
			}
			result.Cancelled++
		}
	}
	return nil
}

func (s *Seeder) writePrescription(ctx context.Context, appt *scheduling.Appointment, now time.Time) error {
	itemCount := s.pickWeightedInt([]weightedInt{
		{1, 30}, {2, 40}, {3, 20}, {4, 10},
	})

	items := make([]prescription.PrescriptionItem, 0, itemCount)
	for _, med := range s.pickMedications(itemCount) {
		instructions := s.pick(instructionLines)
		items = append(items, prescription.PrescriptionItem{
			MedicationName: med.name,
			Dosage:         med.dosage,
			Frequency:      s.pick(frequencies),
			DurationDays:   1 + s.rng.Intn(30),
			Instructions:   &instructions,
		})
	}

	created := appt.EndTime
	if now.After(appt.EndTime) {
		maxOffset := now.Sub(appt.EndTime)
		if maxOffset > 24*time.Hour {
			maxOffset = 24 * time.Hour
		}
		created = appt.EndTime.Add(time.Duration(s.rng.Int63n(int64(maxOffset) + 1)))
	}
	if created.After(now) {
		created = now
	}

	return s.prescriptions.Create(ctx, &prescription.Prescription{
		AppointmentID:    appt.ID,
		PatientProfileID: appt.PatientProfileID,
		DoctorProfileID:  appt.DoctorProfileID,
		CreatedAt:        created,
		Items:            items,
	})
}

// -- Random helpers --

type weightedString struct {
	value  string
	weight int
}

type weightedInt struct {
	value  int
	weight int
}

func (s *Seeder) pickWeighted(choices []weightedString) string {
	total := 0
	for _, c := range choices {
		total += c.weight
	}
	n := s.rng.Intn(total)
	for _, c := range choices {
		n -= c.weight
		if n < 0 {
			return c.value
		}
	}
	return choices[len(choices)-1].value
}

func (s *Seeder) pickWeightedInt(choices []weightedInt) int {
	total := 0
	for _, c := range choices {
		total += c.weight
	}
	n := s.rng.Intn(total)
	for _, c := range choices {
		n -= c.weight
		if n < 0 {
			return c.value
		}
	}
	return choices[len(choices)-1].value
}

// biasedInt draws an integer from [min, max] with weights that fall off the
// farther a value is from peak.
func (s *Seeder) biasedInt(peak, min, max int, steepness float64) int {
	weights := make([]float64, max-min+1)
	total := 0.0
	for i := range weights {
		v := min + i
		w := math.Max(1.0/math.Pow(float64(abs(v-peak))+1, steepness), 0.01)
		weights[i] = w
		total += w
	}
	n := s.rng.Float64() * total
	for i, w := range weights {
		n -= w
		if n < 0 {
			return min + i
		}
	}
	return max
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (s *Seeder) pick(pool []string) string {
	return pool[s.rng.Intn(len(pool))]
}

func (s *Seeder) randomDoctor() int64 {
	return int64(doctorProfileBase + s.rng.Intn(s.cfg.DoctorCount))
}

func (s *Seeder) randomReceptionist() int64 {
	return int64(receptionistProfileBase + s.rng.Intn(s.cfg.ReceptionistCount))
}

// timeBetween draws a uniform instant in [from, to]; if the bounds are
// inverted it returns from.
func (s *Seeder) timeBetween(from, to time.Time) time.Time {
	if !to.After(from) {
		return from
	}
	return from.Add(time.Duration(s.rng.Int63n(int64(to.Sub(from)) + 1)))
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// roomName formats rooms as block.floor.room, e.g. A.01.012.
func (s *Seeder) roomName() string {
	block := rune('A' + s.rng.Intn(6))
	floor := 1 + s.rng.Intn(20)
	room := 1 + s.rng.Intn(400)
	return fmt.Sprintf("%c.%02d.%03d", block, floor, room)
}

type medication struct {
	name   string
	dosage string
}

// pickMedications returns count distinct medications.
func (s *Seeder) pickMedications(count int) []medication {
	if count > len(medications) {
		count = len(medications)
	}
	perm := s.rng.Perm(len(medications))
	out := make([]medication, count)
	for i := 0; i < count; i++ {
		out[i] = medications[perm[i]]
	}
	return out
}

var medications = []medication{
	{"Metformin", "500mg"},
	{"Lisinopril", "10mg"},
	{"Atorvastatin", "20mg"},
	{"Omeprazole", "20mg"},
	{"Amoxicillin", "500mg"},
	{"Levothyroxine", "50mcg"},
	{"Amlodipine", "5mg"},
	{"Hydrochlorothiazide", "25mg"},
	{"Sertraline", "50mg"},
	{"Albuterol", "90mcg"},
	{"Losartan", "50mg"},
	{"Gabapentin", "300mg"},
	{"Acetaminophen", "500mg"},
	{"Montelukast", "10mg"},
	{"Furosemide", "40mg"},
	{"Prednisone", "10mg"},
}

var frequencies = []string{
	"once daily",
	"twice daily",
	"three times daily",
	"every 6 hours",
	"as needed",
	"at bedtime",
}

var visitReasons = []string{
	"Persistent cough and mild fever for the past week",
	"Follow-up on blood pressure medication",
	"Recurring lower back pain after lifting",
	"Annual physical examination",
	"Skin rash that has not improved",
	"Headaches increasing in frequency",
	"Shortness of breath during light exercise",
	"Joint stiffness in the morning",
	"Stomach pain after meals",
	"Trouble sleeping for several weeks",
	"Dizziness when standing up quickly",
	"Review of recent laboratory results",
}

var handlingNotes = []string{
	"Requested specialty has no capacity in the preferred period",
	"Preferred time too soon to arrange, please re-file with more notice",
	"Referral from a general practitioner is required first",
	"Patient asked to reschedule through the front desk",
	"Duplicate of an earlier request",
}

var doctorNoteLines = []string{
	"Symptoms consistent with a mild viral infection, rest advised",
	"Blood pressure within target range, continue current dosage",
	"Referred for imaging, follow up in two weeks",
	"Prescribed a short course of antibiotics",
	"No acute findings, routine follow-up in six months",
	"Adjusted medication, monitor for side effects",
}

var instructionLines = []string{
	"Take with food",
	"Take on an empty stomach",
	"Avoid alcohol while on this medication",
	"Complete the full course even if symptoms improve",
	"Do not exceed the stated dose",
	"Store below 25 degrees",
}

var cancellationReasons = []string{
	"Patient is travelling and cannot attend",
	"Symptoms resolved before the visit",
	"Doctor unavailable, to be rebooked",
	"Scheduling conflict with work",
	"Patient admitted elsewhere",
}
