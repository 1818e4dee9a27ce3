package postgres

import (
	"context"

	"github.com/samudrap/carelink/internal/core/domain"
)

// CaregiverRepo implements ports.CaregiverRepository with pgx.
type CaregiverRepo struct {
	db *DB
}

// NewCaregiverRepo creates a new CaregiverRepo.
func NewCaregiverRepo(db *DB) *CaregiverRepo {
	return &CaregiverRepo{db: db}
}

func (r *CaregiverRepo) Create(ctx context.Context, c *domain.Caregiver) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO caregivers (name, email, phone, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, c.Name, c.Email, c.Phone, c.Role).Scan(&c.ID, &c.CreatedAt)
}

func (r *CaregiverRepo) GetByID(ctx context.Context, id string) (*domain.Caregiver, error) {
	var c domain.Caregiver
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, email, COALESCE(phone, ''), role, created_at
		FROM caregivers WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Role, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CaregiverRepo) List(ctx context.Context) ([]domain.Caregiver, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, email, COALESCE(phone, ''), role, created_at
		FROM caregivers ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Caregiver
	for rows.Next() {
		var c domain.Caregiver
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Role, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CaregiverRepo) Update(ctx context.Context, c *domain.Caregiver) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE caregivers SET name = $2, email = $3, phone = $4, role = $5
		WHERE id = $1
	`, c.ID, c.Name, c.Email, c.Phone, c.Role)
	return err
}

func (r *CaregiverRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM caregivers WHERE id = $1`, id)
	return err
}
