package history

import (
	"time"

	"github.com/google/uuid"
)

// Record maps to the medical_history table. A record always belongs to
// a patient and may reference the visit it was produced in.
type Record struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	VisitID      *uuid.UUID `db:"visit_id" json:"visit_id,omitempty"`
	RecordDate   time.Time  `db:"record_date" json:"record_date"`
	Diagnosis    string     `db:"diagnosis" json:"diagnosis"`
	Treatment    string     `db:"treatment" json:"treatment"`
	Prescription *string    `db:"prescription" json:"prescription,omitempty"`
	DoctorNotes  *string    `db:"doctor_notes" json:"doctor_notes,omitempty"`
	FollowUpDate *time.Time `db:"follow_up_date" json:"follow_up_date,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
