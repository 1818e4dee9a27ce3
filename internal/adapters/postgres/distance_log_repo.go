package postgres

import (
	"context"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
)

// DistanceLogRepo implements ports.DistanceLogRepository with pgx. The log
// stores subject positions as PostGIS geography so later analysis can run
// spatial queries over them.
type DistanceLogRepo struct {
	db *DB
}

// NewDistanceLogRepo creates a new DistanceLogRepo.
func NewDistanceLogRepo(db *DB) *DistanceLogRepo {
	return &DistanceLogRepo{db: db}
}

func (r *DistanceLogRepo) Insert(ctx context.Context, e *domain.DistanceLogEntry) error {
	if e.Location != nil {
		return r.db.Pool.QueryRow(ctx, `
			INSERT INTO distance_log (subject_id, meters, location, recorded_at)
			VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5)
			RETURNING id
		`, e.SubjectID, e.Meters, e.Location.Lon, e.Location.Lat, e.Time).Scan(&e.ID)
	}
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO distance_log (subject_id, meters, recorded_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, e.SubjectID, e.Meters, e.Time).Scan(&e.ID)
}

func (r *DistanceLogRepo) ListBySubject(ctx context.Context, subjectID string, from, to time.Time, limit int) ([]domain.DistanceLogEntry, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, subject_id, meters,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       recorded_at
		FROM distance_log
		WHERE subject_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at DESC
		LIMIT $4
	`, subjectID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DistanceLogEntry
	for rows.Next() {
		var e domain.DistanceLogEntry
		var lat, lon *float64
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.Meters, &lat, &lon, &e.Time); err != nil {
			return nil, err
		}
		if lat != nil && lon != nil {
			e.Location = &domain.GeoPoint{Lat: *lat, Lon: *lon}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
