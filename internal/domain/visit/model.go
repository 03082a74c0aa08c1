package visit

import (
	"time"

	"github.com/google/uuid"
)

// Visit types.
const (
	TypeWalkIn      = "WALKIN"
	TypeAppointment = "APPOINTMENT"
	TypeEmergency   = "EMERGENCY"
	TypeFollowUp    = "FOLLOWUP"
)

var validVisitTypes = map[string]bool{
	TypeWalkIn:      true,
	TypeAppointment: true,
	TypeEmergency:   true,
	TypeFollowUp:    true,
}

// Visit maps to the visit table.
type Visit struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	VisitType       string     `db:"visit_type" json:"visit_type"`
	VisitDate       time.Time  `db:"visit_date" json:"visit_date"`
	AppointmentTime *time.Time `db:"appointment_time" json:"appointment_time,omitempty"`
	ReasonForVisit  string     `db:"reason_for_visit" json:"reason_for_visit"`
	DoctorAssigned  *string    `db:"doctor_assigned" json:"doctor_assigned,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	Flags
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TypeCounts is the distribution of visits across types.
type TypeCounts struct {
	WalkIn      int `json:"walkin"`
	Appointment int `json:"appointment"`
	Emergency   int `json:"emergency"`
	FollowUp    int `json:"followup"`
}
