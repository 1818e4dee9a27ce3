package postgres

import (
	"context"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
)

// ScheduleRepo implements ports.ScheduleRepository with pgx.
type ScheduleRepo struct {
	db *DB
}

// NewScheduleRepo creates a new ScheduleRepo.
func NewScheduleRepo(db *DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO visit_schedules (caregiver_id, patient_id, starts_at, ends_at, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, s.CaregiverID, s.PatientID, s.StartsAt, s.EndsAt, s.Notes).Scan(&s.ID, &s.CreatedAt)
}

func (r *ScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	var s domain.Schedule
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, caregiver_id, patient_id, starts_at, ends_at, COALESCE(notes, ''), created_at
		FROM visit_schedules WHERE id = $1
	`, id).Scan(&s.ID, &s.CaregiverID, &s.PatientID, &s.StartsAt, &s.EndsAt, &s.Notes, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ScheduleRepo) ListByCaregiver(ctx context.Context, caregiverID string, from, to time.Time) ([]domain.Schedule, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, caregiver_id, patient_id, starts_at, ends_at, COALESCE(notes, ''), created_at
		FROM visit_schedules
		WHERE caregiver_id = $1 AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at
	`, caregiverID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Schedule
	for rows.Next() {
		var s domain.Schedule
		if err := rows.Scan(&s.ID, &s.CaregiverID, &s.PatientID, &s.StartsAt, &s.EndsAt, &s.Notes, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ScheduleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM visit_schedules WHERE id = $1`, id)
	return err
}
