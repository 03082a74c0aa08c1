package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/errs"
)

// PatientResolver reports whether a patient exists.
type PatientResolver interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// VisitResolver returns the owning patient of a visit.
type VisitResolver interface {
	PatientOf(ctx context.Context, visitID uuid.UUID) (uuid.UUID, error)
}

type Service struct {
	repo     Repository
	patients PatientResolver
	visits   VisitResolver
	timeout  time.Duration
}

func NewService(repo Repository, patients PatientResolver, visits VisitResolver, timeout time.Duration) *Service {
	return &Service{repo: repo, patients: patients, visits: visits, timeout: timeout}
}

func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Create stores a history record. The patient must resolve; a linked
// visit must resolve and belong to the same patient. Nothing is written
// when any check fails.
func (s *Service) Create(ctx context.Context, rec *Record) error {
	if rec.Diagnosis == "" {
		return errs.Validation("diagnosis", "is required")
	}
	if rec.Treatment == "" {
		return errs.Validation("treatment", "is required")
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	ok, err := s.patients.Exists(ctx, rec.PatientID)
	if err != nil {
		return errs.FromStore(err, "resolve patient")
	}
	if !ok {
		return errs.NotFound("patient", rec.PatientID)
	}

	if rec.VisitID != nil {
		owner, err := s.visits.PatientOf(ctx, *rec.VisitID)
		if err != nil {
			return errs.FromStore(err, "resolve visit")
		}
		if owner != rec.PatientID {
			return errs.NotFound("visit", *rec.VisitID)
		}
	}

	rec.RecordDate = time.Now().UTC()
	if err := s.repo.Create(ctx, rec); err != nil {
		return errs.FromStore(err, "create history record")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errs.FromStore(err, "get history record")
	}
	return rec, nil
}

// ListByPatient returns the patient's records, newest record date first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	recs, total, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, errs.FromStore(err, "list history records")
	}
	return recs, total, nil
}

// Count is the total number of records across all patients.
func (s *Service) Count(ctx context.Context) (int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, errs.FromStore(err, "count history records")
	}
	return n, nil
}
