package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/core/ports"
)

// ScheduleService handles visit planning.
type ScheduleService struct {
	schedules ports.ScheduleRepository
}

// NewScheduleService creates a new ScheduleService.
func NewScheduleService(schedules ports.ScheduleRepository) *ScheduleService {
	return &ScheduleService{schedules: schedules}
}

// Create validates and stores a visit.
func (s *ScheduleService) Create(ctx context.Context, v *domain.Schedule) error {
	if v.CaregiverID == "" || v.PatientID == "" {
		return fmt.Errorf("schedule needs caregiver and patient ids")
	}
	if !v.EndsAt.After(v.StartsAt) {
		return fmt.Errorf("schedule must end after it starts")
	}
	return s.schedules.Create(ctx, v)
}

// GetByID returns a single visit.
func (s *ScheduleService) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	return s.schedules.GetByID(ctx, id)
}

// ListByCaregiver returns a caregiver's visits in [from, to). A zero range
// defaults to the coming week.
func (s *ScheduleService) ListByCaregiver(ctx context.Context, caregiverID string, from, to time.Time) ([]domain.Schedule, error) {
	if from.IsZero() {
		from = time.Now()
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, 7)
	}
	return s.schedules.ListByCaregiver(ctx, caregiverID, from, to)
}

// Delete removes a visit.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	return s.schedules.Delete(ctx, id)
}
