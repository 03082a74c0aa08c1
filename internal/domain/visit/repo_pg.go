package visit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/errs"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const visitCols = `id, patient_id, visit_type, visit_date, appointment_time,
	reason_for_visit, doctor_assigned, notes,
	checked_in, triage_completed, consultation_completed, lab_completed,
	pharmacy_completed, billing_completed, visit_completed,
	created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO visit (
			id, patient_id, visit_type, visit_date, appointment_time,
			reason_for_visit, doctor_assigned, notes,
			checked_in, triage_completed, consultation_completed, lab_completed,
			pharmacy_completed, billing_completed, visit_completed
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
		)`,
		v.ID, v.PatientID, v.VisitType, v.VisitDate, v.AppointmentTime,
		v.ReasonForVisit, v.DoctorAssigned, v.Notes,
		v.CheckedIn, v.TriageCompleted, v.ConsultationCompleted, v.LabCompleted,
		v.PharmacyCompleted, v.BillingCompleted, v.VisitCompleted,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := scanVisit(r.pool.QueryRow(ctx, `SELECT `+visitCols+` FROM visit WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("visit", id)
	}
	return v, err
}

// SetStage reads the row under FOR UPDATE, applies the transition, and
// writes the new flags back in the same transaction.
func (r *repoPG) SetStage(ctx context.Context, id uuid.UUID, stage Stage, value bool) (*Visit, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	v, err := scanVisit(tx.QueryRow(ctx,
		`SELECT `+visitCols+` FROM visit WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("visit", id)
	}
	if err != nil {
		return nil, err
	}

	v.Flags, _ = v.Flags.Apply(stage, value)

	_, err = tx.Exec(ctx, `
		UPDATE visit SET
			checked_in=$2, triage_completed=$3, consultation_completed=$4,
			lab_completed=$5, pharmacy_completed=$6, billing_completed=$7,
			visit_completed=$8, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.CheckedIn, v.TriageCompleted, v.ConsultationCompleted,
		v.LabCompleted, v.PharmacyCompleted, v.BillingCompleted,
		v.VisitCompleted,
	)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	v.UpdatedAt = time.Now().UTC()
	return v, nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM visit`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+visitCols+` FROM visit ORDER BY visit_date DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectVisits(rows, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM visit WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+visitCols+` FROM visit WHERE patient_id = $1 ORDER BY visit_date DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectVisits(rows, total)
}

func (r *repoPG) ListBetween(ctx context.Context, from, to time.Time, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM visit WHERE visit_date >= $1 AND visit_date < $2`, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+visitCols+` FROM visit WHERE visit_date >= $1 AND visit_date < $2
		 ORDER BY visit_date DESC LIMIT $3 OFFSET $4`,
		from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectVisits(rows, total)
}

func (r *repoPG) ListActive(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM visit WHERE NOT visit_completed`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+visitCols+` FROM visit WHERE NOT visit_completed
		 ORDER BY visit_date DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectVisits(rows, total)
}

func (r *repoPG) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM visit WHERE visit_date >= $1 AND visit_date < $2`, from, to).Scan(&n)
	return n, err
}

func (r *repoPG) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM visit WHERE NOT visit_completed`).Scan(&n)
	return n, err
}

func (r *repoPG) CountByType(ctx context.Context) (*TypeCounts, error) {
	var tc TypeCounts
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE visit_type = 'WALKIN'),
			COUNT(*) FILTER (WHERE visit_type = 'APPOINTMENT'),
			COUNT(*) FILTER (WHERE visit_type = 'EMERGENCY'),
			COUNT(*) FILTER (WHERE visit_type = 'FOLLOWUP')
		FROM visit`,
	).Scan(&tc.WalkIn, &tc.Appointment, &tc.Emergency, &tc.FollowUp)
	if err != nil {
		return nil, err
	}
	return &tc, nil
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(
		&v.ID, &v.PatientID, &v.VisitType, &v.VisitDate, &v.AppointmentTime,
		&v.ReasonForVisit, &v.DoctorAssigned, &v.Notes,
		&v.CheckedIn, &v.TriageCompleted, &v.ConsultationCompleted, &v.LabCompleted,
		&v.PharmacyCompleted, &v.BillingCompleted, &v.VisitCompleted,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVisits(rows pgx.Rows, total int) ([]*Visit, int, error) {
	var visits []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		visits = append(visits, v)
	}
	return visits, total, rows.Err()
}
