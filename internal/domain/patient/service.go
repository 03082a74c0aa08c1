package patient

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/errs"
)

// phoneRE matches canonical international phone numbers: a leading plus
// followed by 9 to 15 digits.
var phoneRE = regexp.MustCompile(`^\+[0-9]{9,15}$`)

// recentWindow is the look-back window for the recent-registrations count.
const recentWindow = 30 * 24 * time.Hour

// VisitCreator opens an initial visit for a freshly registered patient.
// The visit package provides the implementation; the indirection keeps
// this package from importing it.
type VisitCreator interface {
	CheckIn(ctx context.Context, patientID uuid.UUID, visitType, reason string) error
}

// VisitDraft describes the optional initial visit that can accompany a
// registration.
type VisitDraft struct {
	VisitType string `json:"visit_type"`
	Reason    string `json:"reason_for_visit"`
}

type Service struct {
	repo    Repository
	alloc   *Allocator
	visits  VisitCreator
	log     zerolog.Logger
	timeout time.Duration
}

func NewService(repo Repository, alloc *Allocator, log zerolog.Logger, timeout time.Duration) *Service {
	return &Service{repo: repo, alloc: alloc, log: log, timeout: timeout}
}

// SetVisitCreator attaches the workflow engine used for initial visits.
func (s *Service) SetVisitCreator(vc VisitCreator) {
	s.visits = vc
}

func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Create registers a patient, allocating its identifier exactly once.
// When a visit draft accompanies the registration, the initial visit is
// opened after the patient is persisted; a failure there is logged and
// reported through the return value but does not undo the registration.
func (s *Service) Create(ctx context.Context, p *Patient, draft *VisitDraft) (visitCreated bool, err error) {
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.InsuranceProvider == "" {
		p.InsuranceProvider = "NONE"
	}
	if err := validate(p); err != nil {
		return false, err
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	p.RegisteredAt = time.Now().UTC()

	err = s.alloc.Allocate(ctx, func(identifier string) error {
		p.PatientIdentifier = identifier
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		if errs.IsConflict(err) || errs.IsIdentifierGeneration(err) {
			return false, err
		}
		return false, errs.FromStore(err, "create patient")
	}

	if draft == nil || s.visits == nil {
		return false, nil
	}
	if err := s.visits.CheckIn(ctx, p.ID, draft.VisitType, draft.Reason); err != nil {
		s.log.Warn().
			Err(err).
			Str("patient_id", p.ID.String()).
			Str("patient_identifier", p.PatientIdentifier).
			Msg("patient registered but initial visit creation failed")
		return false, nil
	}
	return true, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errs.FromStore(err, "get patient")
	}
	return p, nil
}

func (s *Service) GetByIdentifier(ctx context.Context, identifier string) (*Patient, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	p, err := s.repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, errs.FromStore(err, "get patient by identifier")
	}
	return p, nil
}

// Update replaces the mutable fields of a patient. The identifier,
// surrogate id, and registration instant always carry over from the
// stored record.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p *Patient) (*Patient, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errs.FromStore(err, "get patient")
	}

	p.ID = existing.ID
	p.PatientIdentifier = existing.PatientIdentifier
	p.RegisteredAt = existing.RegisteredAt
	if p.Status == "" {
		p.Status = existing.Status
	}
	if p.InsuranceProvider == "" {
		p.InsuranceProvider = existing.InsuranceProvider
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errs.FromStore(err, "update patient")
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Patient, int, error) {
	if filter.Status != "" && !validStatuses[filter.Status] {
		return nil, 0, errs.Validation("status", "unknown status "+filter.Status)
	}
	if filter.Gender != "" && !validGenders[filter.Gender] {
		return nil, 0, errs.Validation("gender", "unknown gender "+filter.Gender)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	patients, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, errs.FromStore(err, "list patients")
	}
	return patients, total, nil
}

// Statistics summarizes the registry: totals by status and gender plus
// registrations over the trailing thirty days.
func (s *Service) Statistics(ctx context.Context) (*Stats, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	stats, err := s.repo.Stats(ctx, time.Now().UTC().Add(-recentWindow))
	if err != nil {
		return nil, errs.FromStore(err, "patient statistics")
	}
	return stats, nil
}

// TouchLastVisit stamps the patient's last visit instant. Used by the
// workflow engine on check-in.
func (s *Service) TouchLastVisit(ctx context.Context, id uuid.UUID, at time.Time) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.repo.TouchLastVisit(ctx, id, at); err != nil {
		return errs.FromStore(err, "touch last visit")
	}
	return nil
}

// Exists reports whether a patient with the given id is registered.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.Get(ctx, id)
	if err != nil {
		if errs.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func validate(p *Patient) error {
	if p.FirstName == "" {
		return errs.Validation("first_name", "is required")
	}
	if p.LastName == "" {
		return errs.Validation("last_name", "is required")
	}
	if p.DateOfBirth.IsZero() {
		return errs.Validation("date_of_birth", "is required")
	}
	if p.DateOfBirth.After(time.Now()) {
		return errs.Validation("date_of_birth", "cannot be in the future")
	}
	if !validGenders[p.Gender] {
		return errs.Validation("gender", "must be one of M, F, O")
	}
	if !phoneRE.MatchString(p.PhoneNumber) {
		return errs.Validation("phone_number", "must match +<9-15 digits>")
	}
	if p.EmergencyPhone != nil && *p.EmergencyPhone != "" && !phoneRE.MatchString(*p.EmergencyPhone) {
		return errs.Validation("emergency_contact_phone", "must match +<9-15 digits>")
	}
	if !validInsuranceProviders[p.InsuranceProvider] {
		return errs.Validation("insurance_provider", "unknown provider "+p.InsuranceProvider)
	}
	if !validStatuses[p.Status] {
		return errs.Validation("status", "unknown status "+p.Status)
	}
	return nil
}
