package postgres

import (
	"context"

	"github.com/samudrap/carelink/internal/core/domain"
)

// PatientRepo implements ports.PatientRepository with pgx.
type PatientRepo struct {
	db *DB
}

// NewPatientRepo creates a new PatientRepo.
func NewPatientRepo(db *DB) *PatientRepo {
	return &PatientRepo{db: db}
}

func (r *PatientRepo) Create(ctx context.Context, p *domain.Patient) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO patients (name, date_of_birth, address, condition, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, p.Name, p.DateOfBirth, p.Address, p.Condition, p.Metadata).Scan(&p.ID, &p.CreatedAt)
}

func (r *PatientRepo) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	var p domain.Patient
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, date_of_birth, COALESCE(address, ''), COALESCE(condition, ''),
		       COALESCE(metadata, '{}'), created_at
		FROM patients WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.DateOfBirth, &p.Address, &p.Condition, &p.Metadata, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PatientRepo) List(ctx context.Context) ([]domain.Patient, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, date_of_birth, COALESCE(address, ''), COALESCE(condition, ''),
		       COALESCE(metadata, '{}'), created_at
		FROM patients ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Patient
	for rows.Next() {
		var p domain.Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.DateOfBirth, &p.Address, &p.Condition, &p.Metadata, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PatientRepo) Update(ctx context.Context, p *domain.Patient) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE patients SET name = $2, date_of_birth = $3, address = $4, condition = $5, metadata = $6
		WHERE id = $1
	`, p.ID, p.Name, p.DateOfBirth, p.Address, p.Condition, p.Metadata)
	return err
}

func (r *PatientRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return err
}
