package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient statuses.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
	StatusDeceased = "DECEASED"
)

var validStatuses = map[string]bool{
	StatusActive:   true,
	StatusInactive: true,
	StatusDeceased: true,
}

// Genders: male, female, other.
var validGenders = map[string]bool{
	"M": true,
	"F": true,
	"O": true,
}

var validInsuranceProviders = map[string]bool{
	"NHIF":    true,
	"AAR":     true,
	"BRITAM":  true,
	"JUBILEE": true,
	"MADISON": true,
	"OTHER":   true,
	"NONE":    true,
}

// Patient maps to the patient table.
type Patient struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientIdentifier string     `db:"patient_identifier" json:"patient_identifier"`
	FirstName         string     `db:"first_name" json:"first_name"`
	LastName          string     `db:"last_name" json:"last_name"`
	DateOfBirth       time.Time  `db:"date_of_birth" json:"date_of_birth"`
	Gender            string     `db:"gender" json:"gender"`
	PhoneNumber       string     `db:"phone_number" json:"phone_number"`
	Email             *string    `db:"email" json:"email,omitempty"`
	Address           *string    `db:"address" json:"address,omitempty"`
	InsuranceProvider string     `db:"insurance_provider" json:"insurance_provider"`
	InsuranceNumber   *string    `db:"insurance_number" json:"insurance_number,omitempty"`
	EmergencyName     *string    `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyPhone    *string    `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	EmergencyRelation *string    `db:"emergency_contact_relationship" json:"emergency_contact_relationship,omitempty"`
	BloodGroup        *string    `db:"blood_group" json:"blood_group,omitempty"`
	Allergies         *string    `db:"allergies" json:"allergies,omitempty"`
	ChronicConditions *string    `db:"chronic_conditions" json:"chronic_conditions,omitempty"`
	CurrentMedication *string    `db:"current_medications" json:"current_medications,omitempty"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	Status            string     `db:"status" json:"status"`
	RegisteredAt      time.Time  `db:"registered_at" json:"registered_at"`
	LastVisitDate     *time.Time `db:"last_visit_date" json:"last_visit_date,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns the patient's display name.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Age returns the patient's age in whole years as of the given instant.
// The year difference is reduced by one if the birthday has not yet
// occurred in the asOf year, comparing (month, day) pairs so leap days
// behave correctly.
func (p *Patient) Age(asOf time.Time) int {
	years := asOf.Year() - p.DateOfBirth.Year()
	bm, bd := p.DateOfBirth.Month(), p.DateOfBirth.Day()
	am, ad := asOf.Month(), asOf.Day()
	if am < bm || (am == bm && ad < bd) {
		years--
	}
	return years
}

// Stats is the patient registry summary.
type Stats struct {
	TotalPatients       int `json:"total_patients"`
	ActivePatients      int `json:"active_patients"`
	InactivePatients    int `json:"inactive_patients"`
	RecentRegistrations int `json:"recent_registrations"`
	MalePatients        int `json:"male_patients"`
	FemalePatients      int `json:"female_patients"`
	OtherGenderPatients int `json:"other_gender_patients"`
}
