package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== AppointmentRequest Repository ===========

type requestRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRequestRepoPG(pool *pgxpool.Pool) AppointmentRequestRepository {
	return &requestRepoPG{pool: pool}
}

func (r *requestRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const requestCols = `id, patient_profile_id, specialty_id, reason, preferred_doctor_profile_id,
	preferred_at, status, appointment_id, handled_by_profile_id, handled_at, handling_notes, created_at`

func scanRequest(row pgx.Row) (*AppointmentRequest, error) {
	var req AppointmentRequest
	err := row.Scan(&req.ID, &req.PatientProfileID, &req.SpecialtyID, &req.Reason,
		&req.PreferredDoctorProfileID, &req.PreferredAt, &req.Status, &req.AppointmentID,
		&req.HandledByProfileID, &req.HandledAt, &req.HandlingNotes, &req.CreatedAt)
	return &req, err
}

func (r *requestRepoPG) Create(ctx context.Context, req *AppointmentRequest) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment_request (patient_profile_id, specialty_id, reason,
			preferred_doctor_profile_id, preferred_at, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		req.PatientProfileID, req.SpecialtyID, req.Reason,
		req.PreferredDoctorProfileID, req.PreferredAt, req.Status, req.CreatedAt,
	).Scan(&req.ID)
}

func (r *requestRepoPG) GetByID(ctx context.Context, id int64) (*AppointmentRequest, error) {
	req, err := scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM appointment_request WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: appointment request %d", ErrNotFound, id)
	}
	return req, err
}

func (r *requestRepoPG) Update(ctx context.Context, req *AppointmentRequest) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment_request SET preferred_doctor_profile_id=$2, preferred_at=$3,
			status=$4, appointment_id=$5, handled_by_profile_id=$6, handled_at=$7, handling_notes=$8
		WHERE id = $1`,
		req.ID, req.PreferredDoctorProfileID, req.PreferredAt,
		req.Status, req.AppointmentID, req.HandledByProfileID, req.HandledAt, req.HandlingNotes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: appointment request %d", ErrNotFound, req.ID)
	}
	return nil
}

func (r *requestRepoPG) ListByPatient(ctx context.Context, patientProfileID int64, limit, offset int) ([]*AppointmentRequest, int, error) {
	return r.list(ctx,
		`patient_profile_id = $1`, patientProfileID, limit, offset)
}

func (r *requestRepoPG) ListByStatus(ctx context.Context, status RequestStatus, limit, offset int) ([]*AppointmentRequest, int, error) {
	return r.list(ctx, `status = $1`, status, limit, offset)
}

func (r *requestRepoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*AppointmentRequest, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment_request WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+requestCols+` FROM appointment_request WHERE `+where+
			` ORDER BY created_at DESC LIMIT $2 OFFSET $3`, arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*AppointmentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, rows.Err()
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const appointmentCols = `id, start_time, end_time, patient_profile_id, doctor_profile_id,
	specialty_id, room_name, reason, doctor_notes, status, created_by_profile_id, created_at,
	cancelled_by_profile_id, cancelled_at, cancellation_reason`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.StartTime, &a.EndTime, &a.PatientProfileID, &a.DoctorProfileID,
		&a.SpecialtyID, &a.RoomName, &a.Reason, &a.DoctorNotes, &a.Status, &a.CreatedByProfileID,
		&a.CreatedAt, &a.CancelledByProfileID, &a.CancelledAt, &a.CancellationReason)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (start_time, end_time, patient_profile_id, doctor_profile_id,
			specialty_id, room_name, reason, doctor_notes, status, created_by_profile_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id`,
		a.StartTime, a.EndTime, a.PatientProfileID, a.DoctorProfileID,
		a.SpecialtyID, a.RoomName, a.Reason, a.DoctorNotes, a.Status, a.CreatedByProfileID, a.CreatedAt,
	).Scan(&a.ID)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: appointment %d", ErrNotFound, id)
	}
	return a, err
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET start_time=$2, end_time=$3, room_name=$4, reason=$5,
			doctor_notes=$6, status=$7, cancelled_by_profile_id=$8, cancelled_at=$9,
			cancellation_reason=$10
		WHERE id = $1`,
		a.ID, a.StartTime, a.EndTime, a.RoomName, a.Reason,
		a.DoctorNotes, a.Status, a.CancelledByProfileID, a.CancelledAt, a.CancellationReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: appointment %d", ErrNotFound, a.ID)
	}
	return nil
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientProfileID int64, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, `patient_profile_id = $1`, patientProfileID, limit, offset)
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorProfileID int64, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, `doctor_profile_id = $1`, doctorProfileID, limit, offset)
}

func (r *appointmentRepoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE `+where+
			` ORDER BY start_time DESC LIMIT $2 OFFSET $3`, arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) ListDoctorIntervals(ctx context.Context, doctorProfileID int64, window Interval, status AppointmentStatus) ([]Interval, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT start_time, end_time FROM appointment
		WHERE doctor_profile_id = $1 AND status = $2
		  AND start_time < $4 AND end_time > $3
		ORDER BY start_time`,
		doctorProfileID, status, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var intervals []Interval
	for rows.Next() {
		var iv Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

func (r *appointmentRepoPG) LockDoctorCalendar(ctx context.Context, doctorProfileID int64) error {
	return db.AcquireDoctorLock(ctx, doctorProfileID)
}
