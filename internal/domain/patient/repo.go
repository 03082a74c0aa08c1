package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows List results. Empty fields match everything.
type ListFilter struct {
	Status string
	Gender string
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByIdentifier(ctx context.Context, identifier string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Patient, int, error)

	// LastIdentifier returns the identifier of the most recently created
	// patient, or "" when the registry is empty.
	LastIdentifier(ctx context.Context) (string, error)

	// TouchLastVisit stamps the patient's last_visit_date.
	TouchLastVisit(ctx context.Context, id uuid.UUID, at time.Time) error

	Stats(ctx context.Context, since time.Time) (*Stats, error)
}
