package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/core/ports"
)

// DeviceService handles bracelet registration and assignment logic.
type DeviceService struct {
	devices     ports.DeviceRepository
	assignments ports.AssignmentRepository
}

// NewDeviceService creates a new DeviceService.
func NewDeviceService(devices ports.DeviceRepository, assignments ports.AssignmentRepository) *DeviceService {
	return &DeviceService{devices: devices, assignments: assignments}
}

// Register validates and stores a new bracelet.
func (s *DeviceService) Register(ctx context.Context, d *domain.Device) error {
	if d.DeviceID == "" {
		return fmt.Errorf("device id must not be empty")
	}
	return s.devices.Create(ctx, d)
}

// GetByID returns a device by UUID.
func (s *DeviceService) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	return s.devices.GetByID(ctx, id)
}

// GetByDeviceID returns a device by its hardware identifier.
func (s *DeviceService) GetByDeviceID(ctx context.Context, deviceID string) (*domain.Device, error) {
	return s.devices.GetByDeviceID(ctx, deviceID)
}

// List returns all devices.
func (s *DeviceService) List(ctx context.Context) ([]domain.Device, error) {
	return s.devices.List(ctx)
}

// TouchLastSeen records telemetry liveness for a device.
func (s *DeviceService) TouchLastSeen(ctx context.Context, deviceID string, at time.Time) error {
	return s.devices.TouchLastSeen(ctx, deviceID, at)
}

// Delete removes a device.
func (s *DeviceService) Delete(ctx context.Context, id string) error {
	return s.devices.Delete(ctx, id)
}

// Assign binds a device to a patient under a responsible caregiver. At most
// one assignment may be live-tracked, so a new live-tracked assignment
// releases the previous one.
func (s *DeviceService) Assign(ctx context.Context, a *domain.Assignment) error {
	if a.DeviceID == "" || a.PatientID == "" || a.CaregiverID == "" {
		return fmt.Errorf("assignment needs device, patient, and caregiver ids")
	}
	if a.LiveTracked {
		if prev, err := s.assignments.GetLiveTracked(ctx); err == nil && prev != nil {
			if err := s.assignments.Release(ctx, prev.ID, time.Now()); err != nil {
				return fmt.Errorf("release previous live assignment: %w", err)
			}
		}
	}
	return s.assignments.Create(ctx, a)
}

// GetLiveTracked returns the assignment the proximity pipeline follows.
func (s *DeviceService) GetLiveTracked(ctx context.Context) (*domain.Assignment, error) {
	return s.assignments.GetLiveTracked(ctx)
}

// ListAssignments returns a patient's assignment history.
func (s *DeviceService) ListAssignments(ctx context.Context, patientID string) ([]domain.Assignment, error) {
	return s.assignments.ListByPatient(ctx, patientID)
}

// Release closes an assignment.
func (s *DeviceService) Release(ctx context.Context, assignmentID string) error {
	return s.assignments.Release(ctx, assignmentID, time.Now())
}
