package ports

import (
	"context"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
)

// CaregiverRepository persists caregivers.
type CaregiverRepository interface {
	Create(ctx context.Context, c *domain.Caregiver) error
	GetByID(ctx context.Context, id string) (*domain.Caregiver, error)
	List(ctx context.Context) ([]domain.Caregiver, error)
	Update(ctx context.Context, c *domain.Caregiver) error
	Delete(ctx context.Context, id string) error
}

// PatientRepository persists patients.
type PatientRepository interface {
	Create(ctx context.Context, p *domain.Patient) error
	GetByID(ctx context.Context, id string) (*domain.Patient, error)
	List(ctx context.Context) ([]domain.Patient, error)
	Update(ctx context.Context, p *domain.Patient) error
	Delete(ctx context.Context, id string) error
}

// DeviceRepository persists bracelet devices.
type DeviceRepository interface {
	Create(ctx context.Context, d *domain.Device) error
	GetByID(ctx context.Context, id string) (*domain.Device, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*domain.Device, error)
	List(ctx context.Context) ([]domain.Device, error)
	TouchLastSeen(ctx context.Context, deviceID string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// AssignmentRepository persists device-to-patient assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, a *domain.Assignment) error
	GetByID(ctx context.Context, id string) (*domain.Assignment, error)
	GetLiveTracked(ctx context.Context) (*domain.Assignment, error)
	ListByPatient(ctx context.Context, patientID string) ([]domain.Assignment, error)
	Release(ctx context.Context, id string, at time.Time) error
}

// ScheduleRepository persists visit schedules.
type ScheduleRepository interface {
	Create(ctx context.Context, s *domain.Schedule) error
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	ListByCaregiver(ctx context.Context, caregiverID string, from, to time.Time) ([]domain.Schedule, error)
	Delete(ctx context.Context, id string) error
}

// NotificationRepository persists caregiver notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListByCaregiver(ctx context.Context, caregiverID string, limit int) ([]domain.Notification, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkRead(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// DistanceLogRepository appends accepted distance samples.
type DistanceLogRepository interface {
	Insert(ctx context.Context, e *domain.DistanceLogEntry) error
	ListBySubject(ctx context.Context, subjectID string, from, to time.Time, limit int) ([]domain.DistanceLogEntry, error)
}
