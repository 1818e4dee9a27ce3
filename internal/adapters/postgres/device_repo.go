package postgres

import (
	"context"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
)

// DeviceRepo implements ports.DeviceRepository with pgx.
type DeviceRepo struct {
	db *DB
}

// NewDeviceRepo creates a new DeviceRepo.
func NewDeviceRepo(db *DB) *DeviceRepo {
	return &DeviceRepo{db: db}
}

func (r *DeviceRepo) Create(ctx context.Context, d *domain.Device) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO devices (device_id, label, stream_url, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, d.DeviceID, d.Label, d.StreamURL, d.Active).Scan(&d.ID, &d.CreatedAt)
}

func (r *DeviceRepo) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetByDeviceID looks a device up by its hardware identifier, the value
// telemetry frames carry.
func (r *DeviceRepo) GetByDeviceID(ctx context.Context, deviceID string) (*domain.Device, error) {
	return r.get(ctx, `WHERE device_id = $1`, deviceID)
}

func (r *DeviceRepo) get(ctx context.Context, where string, arg any) (*domain.Device, error) {
	var d domain.Device
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, device_id, COALESCE(label, ''), COALESCE(stream_url, ''), active, last_seen_at, created_at
		FROM devices `+where, arg).Scan(
		&d.ID, &d.DeviceID, &d.Label, &d.StreamURL, &d.Active, &d.LastSeenAt, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceRepo) List(ctx context.Context) ([]domain.Device, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, device_id, COALESCE(label, ''), COALESCE(stream_url, ''), active, last_seen_at, created_at
		FROM devices ORDER BY device_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.ID, &d.DeviceID, &d.Label, &d.StreamURL, &d.Active, &d.LastSeenAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TouchLastSeen records telemetry liveness without rewriting the device row.
func (r *DeviceRepo) TouchLastSeen(ctx context.Context, deviceID string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE devices SET last_seen_at = $2 WHERE device_id = $1
	`, deviceID, at)
	return err
}

func (r *DeviceRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	return err
}
