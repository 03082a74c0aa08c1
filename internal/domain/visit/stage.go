package visit

import "github.com/clinic/clinic/internal/platform/errs"

// Stage is one of the six settable workflow flags. Completion itself is
// derived, never set directly.
type Stage int

const (
	StageCheckedIn Stage = iota
	StageTriage
	StageConsultation
	StageLab
	StagePharmacy
	StageBilling
)

var stageNames = map[Stage]string{
	StageCheckedIn:    "checked_in",
	StageTriage:       "triage_completed",
	StageConsultation: "consultation_completed",
	StageLab:          "lab_completed",
	StagePharmacy:     "pharmacy_completed",
	StageBilling:      "billing_completed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStage resolves a stage by its wire name. Unknown names, and
// visit_completed in particular, are rejected.
func ParseStage(name string) (Stage, error) {
	for s, n := range stageNames {
		if n == name {
			return s, nil
		}
	}
	return 0, errs.InvalidStage(name)
}

// Flags is the workflow progress of a single visit.
type Flags struct {
	CheckedIn             bool `db:"checked_in" json:"checked_in"`
	TriageCompleted       bool `db:"triage_completed" json:"triage_completed"`
	ConsultationCompleted bool `db:"consultation_completed" json:"consultation_completed"`
	LabCompleted          bool `db:"lab_completed" json:"lab_completed"`
	PharmacyCompleted     bool `db:"pharmacy_completed" json:"pharmacy_completed"`
	BillingCompleted      bool `db:"billing_completed" json:"billing_completed"`
	VisitCompleted        bool `db:"visit_completed" json:"visit_completed"`
}

// Apply returns the flags after setting the given stage. The visit
// auto-completes once check-in, triage, consultation and billing are all
// done; lab and pharmacy do not gate completion. A completed visit never
// reverts, even if a gating stage is later cleared.
func (f Flags) Apply(stage Stage, value bool) (Flags, bool) {
	switch stage {
	case StageCheckedIn:
		f.CheckedIn = value
	case StageTriage:
		f.TriageCompleted = value
	case StageConsultation:
		f.ConsultationCompleted = value
	case StageLab:
		f.LabCompleted = value
	case StagePharmacy:
		f.PharmacyCompleted = value
	case StageBilling:
		f.BillingCompleted = value
	}

	completedNow := false
	if !f.VisitCompleted && f.CheckedIn && f.TriageCompleted && f.ConsultationCompleted && f.BillingCompleted {
		f.VisitCompleted = true
		completedNow = true
	}
	return f, completedNow
}
