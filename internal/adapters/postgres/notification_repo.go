package postgres

import (
	"context"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
)

// NotificationRepo implements ports.NotificationRepository with pgx.
type NotificationRepo struct {
	db *DB
}

// NewNotificationRepo creates a new NotificationRepo.
func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO notifications (caregiver_id, subject_id, title, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, n.CaregiverID, n.SubjectID, n.Title, n.Body).Scan(&n.ID, &n.CreatedAt)
}

func (r *NotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, caregiver_id, COALESCE(subject_id, ''), title, body, sent_at, read_at, created_at
		FROM notifications WHERE id = $1
	`, id).Scan(&n.ID, &n.CaregiverID, &n.SubjectID, &n.Title, &n.Body, &n.SentAt, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepo) ListByCaregiver(ctx context.Context, caregiverID string, limit int) ([]domain.Notification, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, caregiver_id, COALESCE(subject_id, ''), title, body, sent_at, read_at, created_at
		FROM notifications
		WHERE caregiver_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, caregiverID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.CaregiverID, &n.SubjectID, &n.Title, &n.Body, &n.SentAt, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepo) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE notifications SET sent_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE notifications SET read_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *NotificationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	return err
}
