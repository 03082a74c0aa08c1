package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/errs"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `id, patient_identifier, first_name, last_name, date_of_birth, gender,
	phone_number, email, address, insurance_provider, insurance_number,
	emergency_contact_name, emergency_contact_phone, emergency_contact_relationship,
	blood_group, allergies, chronic_conditions, current_medications, notes,
	status, registered_at, last_visit_date, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient (
			id, patient_identifier, first_name, last_name, date_of_birth, gender,
			phone_number, email, address, insurance_provider, insurance_number,
			emergency_contact_name, emergency_contact_phone, emergency_contact_relationship,
			blood_group, allergies, chronic_conditions, current_medications, notes,
			status, registered_at, last_visit_date
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,
			$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22
		)`,
		p.ID, p.PatientIdentifier, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.PhoneNumber, p.Email, p.Address, p.InsuranceProvider, p.InsuranceNumber,
		p.EmergencyName, p.EmergencyPhone, p.EmergencyRelation,
		p.BloodGroup, p.Allergies, p.ChronicConditions, p.CurrentMedication, p.Notes,
		p.Status, p.RegisteredAt, p.LastVisitDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errs.Conflict("patient identifier " + p.PatientIdentifier + " already taken")
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("patient", id)
	}
	return p, err
}

func (r *repoPG) GetByIdentifier(ctx context.Context, identifier string) (*Patient, error) {
	p, err := scanPatient(r.pool.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE patient_identifier = $1`, identifier))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("patient", identifier)
	}
	return p, err
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient SET
			first_name=$2, last_name=$3, date_of_birth=$4, gender=$5,
			phone_number=$6, email=$7, address=$8,
			insurance_provider=$9, insurance_number=$10,
			emergency_contact_name=$11, emergency_contact_phone=$12,
			emergency_contact_relationship=$13,
			blood_group=$14, allergies=$15, chronic_conditions=$16,
			current_medications=$17, notes=$18, status=$19,
			last_visit_date=$20, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.PhoneNumber, p.Email, p.Address,
		p.InsuranceProvider, p.InsuranceNumber,
		p.EmergencyName, p.EmergencyPhone, p.EmergencyRelation,
		p.BloodGroup, p.Allergies, p.ChronicConditions,
		p.CurrentMedication, p.Notes, p.Status,
		p.LastVisitDate,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("patient", p.ID)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Patient, int, error) {
	where := ` WHERE ($1 = '' OR status = $1) AND ($2 = '' OR gender = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient`+where,
		filter.Status, filter.Gender).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+patientCols+` FROM patient`+where+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		filter.Status, filter.Gender, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *repoPG) LastIdentifier(ctx context.Context) (string, error) {
	var identifier string
	err := r.pool.QueryRow(ctx,
		`SELECT patient_identifier FROM patient ORDER BY created_at DESC, patient_identifier DESC LIMIT 1`,
	).Scan(&identifier)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return identifier, nil
}

func (r *repoPG) TouchLastVisit(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE patient SET last_visit_date = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("patient", id)
	}
	return nil
}

func (r *repoPG) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	var st Stats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'ACTIVE'),
			COUNT(*) FILTER (WHERE status = 'INACTIVE'),
			COUNT(*) FILTER (WHERE registered_at >= $1),
			COUNT(*) FILTER (WHERE gender = 'M'),
			COUNT(*) FILTER (WHERE gender = 'F'),
			COUNT(*) FILTER (WHERE gender = 'O')
		FROM patient`, since,
	).Scan(
		&st.TotalPatients, &st.ActivePatients, &st.InactivePatients,
		&st.RecentRegistrations,
		&st.MalePatients, &st.FemalePatients, &st.OtherGenderPatients,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.PatientIdentifier, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
		&p.PhoneNumber, &p.Email, &p.Address, &p.InsuranceProvider, &p.InsuranceNumber,
		&p.EmergencyName, &p.EmergencyPhone, &p.EmergencyRelation,
		&p.BloodGroup, &p.Allergies, &p.ChronicConditions, &p.CurrentMedication, &p.Notes,
		&p.Status, &p.RegisteredAt, &p.LastVisitDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
