// Package stats aggregates read-only clinic metrics from the patient,
// visit and history services. It owns no storage and performs no writes.
package stats

import (
	"context"

	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/domain/visit"
)

// PatientStats is the registry summary slice of the patient service.
type PatientStats interface {
	Statistics(ctx context.Context) (*patient.Stats, error)
}

// VisitStats covers the workflow engine's counters.
type VisitStats interface {
	CountToday(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
	CountByType(ctx context.Context) (*visit.TypeCounts, error)
}

// HistoryStats covers the history store's counter.
type HistoryStats interface {
	Count(ctx context.Context) (int, error)
}

// Overview is the clinic-wide snapshot.
type Overview struct {
	Patients       *patient.Stats    `json:"patients"`
	VisitsToday    int               `json:"visits_today"`
	ActiveVisits   int               `json:"active_visits"`
	VisitsByType   *visit.TypeCounts `json:"visits_by_type"`
	HistoryRecords int               `json:"history_records"`
}

type Service struct {
	patients PatientStats
	visits   VisitStats
	history  HistoryStats
}

func NewService(patients PatientStats, visits VisitStats, history HistoryStats) *Service {
	return &Service{patients: patients, visits: visits, history: history}
}

// Overview gathers the snapshot. Each underlying call honors the caller's
// context, so cancellation stops the aggregation partway with no side
// effects.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	ps, err := s.patients.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	today, err := s.visits.CountToday(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.visits.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	byType, err := s.visits.CountByType(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.history.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &Overview{
		Patients:       ps,
		VisitsToday:    today,
		ActiveVisits:   active,
		VisitsByType:   byType,
		HistoryRecords: records,
	}, nil
}
