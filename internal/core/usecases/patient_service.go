package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/core/ports"
)

// PatientService handles patient-related business logic.
type PatientService struct {
	patients ports.PatientRepository
	cache    ports.CacheService
}

// NewPatientService creates a new PatientService.
func NewPatientService(patients ports.PatientRepository, cache ports.CacheService) *PatientService {
	return &PatientService{patients: patients, cache: cache}
}

// Create validates and stores a new patient.
func (s *PatientService) Create(ctx context.Context, p *domain.Patient) error {
	if p.Name == "" {
		return fmt.Errorf("patient name must not be empty")
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return err
	}
	s.invalidate(ctx, "")
	return nil
}

// GetByID returns a single patient.
func (s *PatientService) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	cacheKey := "patients:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var p domain.Patient
			if err := json.Unmarshal(data, &p); err == nil {
				return &p, nil
			}
		}
	}

	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(p); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}
	return p, nil
}

// List returns all patients.
func (s *PatientService) List(ctx context.Context) ([]domain.Patient, error) {
	cacheKey := "patients:all"
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var out []domain.Patient
			if err := json.Unmarshal(data, &out); err == nil {
				return out, nil
			}
		}
	}

	out, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(out); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}
	return out, nil
}

// Update validates and stores patient changes.
func (s *PatientService) Update(ctx context.Context, p *domain.Patient) error {
	if p.ID == "" {
		return fmt.Errorf("patient id must not be empty")
	}
	if p.Name == "" {
		return fmt.Errorf("patient name must not be empty")
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return err
	}
	s.invalidate(ctx, p.ID)
	return nil
}

// Delete removes a patient.
func (s *PatientService) Delete(ctx context.Context, id string) error {
	if err := s.patients.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *PatientService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, "patients:all")
	if id != "" {
		_ = s.cache.Delete(ctx, "patients:id:"+id)
	}
}
