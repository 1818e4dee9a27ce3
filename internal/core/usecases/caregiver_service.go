package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/core/ports"
)

var caregiverRoles = map[string]bool{
	"nurse":  true,
	"family": true,
	"admin":  true,
}

// CaregiverService handles caregiver-related business logic.
type CaregiverService struct {
	caregivers ports.CaregiverRepository
	cache      ports.CacheService
}

// NewCaregiverService creates a new CaregiverService.
func NewCaregiverService(caregivers ports.CaregiverRepository, cache ports.CacheService) *CaregiverService {
	return &CaregiverService{caregivers: caregivers, cache: cache}
}

// Create validates and stores a new caregiver.
func (s *CaregiverService) Create(ctx context.Context, c *domain.Caregiver) error {
	if err := validateCaregiver(c); err != nil {
		return err
	}
	if err := s.caregivers.Create(ctx, c); err != nil {
		return err
	}
	s.invalidate(ctx, "")
	return nil
}

// GetByID returns a single caregiver.
func (s *CaregiverService) GetByID(ctx context.Context, id string) (*domain.Caregiver, error) {
	cacheKey := "caregivers:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var c domain.Caregiver
			if err := json.Unmarshal(data, &c); err == nil {
				return &c, nil
			}
		}
	}

	c, err := s.caregivers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(c); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}
	return c, nil
}

// List returns all caregivers.
func (s *CaregiverService) List(ctx context.Context) ([]domain.Caregiver, error) {
	return s.caregivers.List(ctx)
}

// Update validates and stores caregiver changes.
func (s *CaregiverService) Update(ctx context.Context, c *domain.Caregiver) error {
	if c.ID == "" {
		return fmt.Errorf("caregiver id must not be empty")
	}
	if err := validateCaregiver(c); err != nil {
		return err
	}
	if err := s.caregivers.Update(ctx, c); err != nil {
		return err
	}
	s.invalidate(ctx, c.ID)
	return nil
}

// Delete removes a caregiver.
func (s *CaregiverService) Delete(ctx context.Context, id string) error {
	if err := s.caregivers.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func validateCaregiver(c *domain.Caregiver) error {
	if c.Name == "" {
		return fmt.Errorf("caregiver name must not be empty")
	}
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("caregiver email %q is not valid", c.Email)
	}
	if !caregiverRoles[c.Role] {
		return fmt.Errorf("caregiver role %q is not one of nurse, family, admin", c.Role)
	}
	return nil
}

func (s *CaregiverService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if id != "" {
		_ = s.cache.Delete(ctx, "caregivers:id:"+id)
	}
}
