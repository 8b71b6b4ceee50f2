package prescription

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	q := r.conn(ctx)
	err := q.QueryRow(ctx, `
		INSERT INTO prescription (appointment_id, patient_profile_id, doctor_profile_id, notes, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		p.AppointmentID, p.PatientProfileID, p.DoctorProfileID, p.Notes, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return err
	}
	for i := range p.Items {
		item := &p.Items[i]
		item.PrescriptionID = p.ID
		err := q.QueryRow(ctx, `
			INSERT INTO prescription_item (prescription_id, medication_name, dosage, frequency, duration_days, instructions)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id`,
			item.PrescriptionID, item.MedicationName, item.Dosage, item.Frequency, item.DurationDays, item.Instructions,
		).Scan(&item.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

const prescriptionCols = `id, appointment_id, patient_profile_id, doctor_profile_id, notes, created_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.AppointmentID, &p.PatientProfileID, &p.DoctorProfileID, &p.Notes, &p.CreatedAt)
	return &p, err
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Prescription, error) {
	p, err := scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: prescription %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, []*Prescription{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientProfileID int64, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM prescription WHERE patient_profile_id = $1`, patientProfileID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE patient_profile_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientProfileID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.loadItems(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) ListByAppointment(ctx context.Context, appointmentID int64) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE appointment_id = $1 ORDER BY id`, appointmentID)
	if err != nil {
		return nil, err
	}
	items, err := collect(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteByAppointment relies on prescription_item's ON DELETE CASCADE to take
// the items out with the parent rows.
func (r *repoPG) DeleteByAppointment(ctx context.Context, appointmentID int64) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM prescription WHERE appointment_id = $1`, appointmentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collect(rows pgx.Rows) ([]*Prescription, error) {
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) loadItems(ctx context.Context, prescriptions []*Prescription) error {
	byID := make(map[int64]*Prescription, len(prescriptions))
	ids := make([]int64, 0, len(prescriptions))
	for _, p := range prescriptions {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, prescription_id, medication_name, dosage, frequency, duration_days, instructions
		FROM prescription_item WHERE prescription_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var item PrescriptionItem
		if err := rows.Scan(&item.ID, &item.PrescriptionID, &item.MedicationName,
			&item.Dosage, &item.Frequency, &item.DurationDays, &item.Instructions); err != nil {
			return err
		}
		if p, ok := byID[item.PrescriptionID]; ok {
			p.Items = append(p.Items, item)
		}
	}
	return rows.Err()
}
