package visit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)

	// SetStage applies the transition atomically: the flags are read,
	// transformed through Flags.Apply, and written back without another
	// writer interleaving.
	SetStage(ctx context.Context, id uuid.UUID, stage Stage, value bool) (*Visit, error)

	List(ctx context.Context, limit, offset int) ([]*Visit, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error)

	// ListBetween returns visits whose visit_date falls in [from, to).
	ListBetween(ctx context.Context, from, to time.Time, limit, offset int) ([]*Visit, int, error)

	// ListActive returns visits not yet completed.
	ListActive(ctx context.Context, limit, offset int) ([]*Visit, int, error)

	CountBetween(ctx context.Context, from, to time.Time) (int, error)
	CountActive(ctx context.Context) (int, error)
	CountByType(ctx context.Context) (*TypeCounts, error)
}
