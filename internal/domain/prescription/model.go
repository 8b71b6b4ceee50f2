// Package prescription manages the medication orders a doctor issues after a
// completed visit. Prescriptions stay linked to the appointment they came
// from; when an appointment is marked missed the scheduling domain deletes
// the linked prescriptions through this package's repository.
package prescription

import (
	"fmt"
	"time"
)

type Prescription struct {
	ID               int64              `db:"id" json:"id"`
	AppointmentID    int64              `db:"appointment_id" json:"appointment_id"`
	PatientProfileID int64              `db:"patient_profile_id" json:"patient_profile_id"`
	DoctorProfileID  int64              `db:"doctor_profile_id" json:"doctor_profile_id"`
	Notes            *string            `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	Items            []PrescriptionItem `json:"items"`
}

type PrescriptionItem struct {
	ID             int64   `db:"id" json:"id"`
	PrescriptionID int64   `db:"prescription_id" json:"prescription_id"`
	MedicationName string  `db:"medication_name" json:"medication_name"`
	Dosage         string  `db:"dosage" json:"dosage"`
	Frequency      string  `db:"frequency" json:"frequency"`
	DurationDays   int     `db:"duration_days" json:"duration_days"`
	Instructions   *string `db:"instructions" json:"instructions,omitempty"`
}

// Validate checks the prescription is well formed: at least one item, each
// with a medication name and a positive duration.
func (p *Prescription) Validate() error {
	if p.AppointmentID == 0 {
		return fmt.Errorf("prescription must reference an appointment")
	}
	if len(p.Items) == 0 {
		return fmt.Errorf("prescription must contain at least one item")
	}
	for i, item := range p.Items {
		if item.MedicationName == "" {
			return fmt.Errorf("item %d: medication name is required", i)
		}
		if item.DurationDays <= 0 {
			return fmt.Errorf("item %d: duration must be positive, got %d days", i, item.DurationDays)
		}
	}
	return nil
}
