package postgres

import (
	"context"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
)

// AssignmentRepo implements ports.AssignmentRepository with pgx.
type AssignmentRepo struct {
	db *DB
}

// NewAssignmentRepo creates a new AssignmentRepo.
func NewAssignmentRepo(db *DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

func (r *AssignmentRepo) Create(ctx context.Context, a *domain.Assignment) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO device_assignments (device_id, patient_id, caregiver_id, live_tracked)
		VALUES ($1, $2, $3, $4)
		RETURNING id, assigned_at
	`, a.DeviceID, a.PatientID, a.CaregiverID, a.LiveTracked).Scan(&a.ID, &a.AssignedAt)
}

func (r *AssignmentRepo) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	var a domain.Assignment
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, device_id, patient_id, caregiver_id, live_tracked, assigned_at, released_at
		FROM device_assignments WHERE id = $1
	`, id).Scan(&a.ID, &a.DeviceID, &a.PatientID, &a.CaregiverID, &a.LiveTracked, &a.AssignedAt, &a.ReleasedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetLiveTracked returns the single active assignment the proximity
// pipeline follows.
func (r *AssignmentRepo) GetLiveTracked(ctx context.Context) (*domain.Assignment, error) {
	var a domain.Assignment
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, device_id, patient_id, caregiver_id, live_tracked, assigned_at, released_at
		FROM device_assignments
		WHERE live_tracked AND released_at IS NULL
		ORDER BY assigned_at DESC
		LIMIT 1
	`).Scan(&a.ID, &a.DeviceID, &a.PatientID, &a.CaregiverID, &a.LiveTracked, &a.AssignedAt, &a.ReleasedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssignmentRepo) ListByPatient(ctx context.Context, patientID string) ([]domain.Assignment, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, device_id, patient_id, caregiver_id, live_tracked, assigned_at, released_at
		FROM device_assignments
		WHERE patient_id = $1
		ORDER BY assigned_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.ID, &a.DeviceID, &a.PatientID, &a.CaregiverID, &a.LiveTracked, &a.AssignedAt, &a.ReleasedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Release closes an assignment; released assignments keep their history row.
func (r *AssignmentRepo) Release(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE device_assignments SET released_at = $2, live_tracked = FALSE
		WHERE id = $1 AND released_at IS NULL
	`, id, at)
	return err
}
