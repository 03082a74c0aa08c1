package visit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/errs"
)

// PatientRegistry is the slice of the patient service the workflow
// engine needs: existence checks and last-visit stamping.
type PatientRegistry interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	TouchLastVisit(ctx context.Context, id uuid.UUID, at time.Time) error
}

type Service struct {
	repo     Repository
	patients PatientRegistry
	loc      *time.Location
	timeout  time.Duration
}

// NewService builds the workflow engine. loc is the clinic's timezone,
// used to bound "today" queries.
func NewService(repo Repository, patients PatientRegistry, loc *time.Location, timeout time.Duration) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, patients: patients, loc: loc, timeout: timeout}
}

func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// CheckIn opens a visit for the patient with checked_in already set and
// stamps the patient's last visit instant.
func (s *Service) CheckIn(ctx context.Context, patientID uuid.UUID, visitType, reason string) (*Visit, error) {
	if reason == "" {
		return nil, errs.Validation("reason_for_visit", "is required")
	}
	if visitType == "" {
		visitType = TypeWalkIn
	}
	if !validVisitTypes[visitType] {
		return nil, errs.Validation("visit_type", "unknown visit type "+visitType)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	ok, err := s.patients.Exists(ctx, patientID)
	if err != nil {
		return nil, errs.FromStore(err, "resolve patient")
	}
	if !ok {
		return nil, errs.NotFound("patient", patientID)
	}

	now := time.Now().UTC()
	v := &Visit{
		PatientID:      patientID,
		VisitType:      visitType,
		VisitDate:      now,
		ReasonForVisit: reason,
		Flags:          Flags{CheckedIn: true},
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, errs.FromStore(err, "create visit")
	}

	if err := s.patients.TouchLastVisit(ctx, patientID, now); err != nil {
		return nil, errs.FromStore(err, "stamp last visit")
	}
	return v, nil
}

// SetStage applies one stage transition. The stage name is validated
// here; the atomic read-modify-write lives in the repository.
func (s *Service) SetStage(ctx context.Context, id uuid.UUID, stageName string, value bool) (*Visit, error) {
	stage, err := ParseStage(stageName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	v, err := s.repo.SetStage(ctx, id, stage, value)
	if err != nil {
		return nil, errs.FromStore(err, "set visit stage")
	}
	return v, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Visit, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errs.FromStore(err, "get visit")
	}
	return v, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	visits, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, errs.FromStore(err, "list visits")
	}
	return visits, total, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	visits, total, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, errs.FromStore(err, "list visits by patient")
	}
	return visits, total, nil
}

// ListToday returns visits whose visit_date falls inside the current
// clinic-timezone day. The bounds are half-open: the previous day's
// closing instant is excluded, the next day's opening instant too.
func (s *Service) ListToday(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	from, to := s.todayBounds(time.Now())
	visits, total, err := s.repo.ListBetween(ctx, from, to, limit, offset)
	if err != nil {
		return nil, 0, errs.FromStore(err, "list today's visits")
	}
	return visits, total, nil
}

func (s *Service) ListActive(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	visits, total, err := s.repo.ListActive(ctx, limit, offset)
	if err != nil {
		return nil, 0, errs.FromStore(err, "list active visits")
	}
	return visits, total, nil
}

// CountToday is the facade's view of today's traffic.
func (s *Service) CountToday(ctx context.Context) (int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	from, to := s.todayBounds(time.Now())
	n, err := s.repo.CountBetween(ctx, from, to)
	if err != nil {
		return 0, errs.FromStore(err, "count today's visits")
	}
	return n, nil
}

func (s *Service) CountActive(ctx context.Context) (int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	n, err := s.repo.CountActive(ctx)
	if err != nil {
		return 0, errs.FromStore(err, "count active visits")
	}
	return n, nil
}

func (s *Service) CountByType(ctx context.Context) (*TypeCounts, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	counts, err := s.repo.CountByType(ctx)
	if err != nil {
		return nil, errs.FromStore(err, "count visits by type")
	}
	return counts, nil
}

// todayBounds returns the half-open [start, end) interval of the clinic
// day containing now.
func (s *Service) todayBounds(now time.Time) (time.Time, time.Time) {
	local := now.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}
