package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/core/ports"
)

// NotificationService stores caregiver notifications and hands them to the
// push channel.
type NotificationService struct {
	notifications ports.NotificationRepository
	push          ports.NotificationService
}

// NewNotificationService creates a new NotificationService. push may be nil
// when no push channel is configured; notifications are then stored only.
func NewNotificationService(notifications ports.NotificationRepository, push ports.NotificationService) *NotificationService {
	return &NotificationService{notifications: notifications, push: push}
}

// Notify stores a notification and attempts push delivery. A push failure
// leaves the stored row unsent for a later retry.
func (s *NotificationService) Notify(ctx context.Context, n *domain.Notification) error {
	if n.CaregiverID == "" {
		return fmt.Errorf("notification needs a caregiver id")
	}
	if n.Title == "" {
		return fmt.Errorf("notification title must not be empty")
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return err
	}

	if s.push == nil {
		return nil
	}
	if err := s.push.SendPush(ctx, n.CaregiverID, n.Title, n.Body); err != nil {
		return fmt.Errorf("push delivery: %w", err)
	}
	now := time.Now()
	if err := s.notifications.MarkSent(ctx, n.ID, now); err != nil {
		return err
	}
	n.SentAt = &now
	return nil
}

// ListByCaregiver returns recent notifications, newest first.
func (s *NotificationService) ListByCaregiver(ctx context.Context, caregiverID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notifications.ListByCaregiver(ctx, caregiverID, limit)
}

// MarkRead records that a caregiver saw a notification.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	return s.notifications.MarkRead(ctx, id, time.Now())
}

// Delete removes a notification.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	return s.notifications.Delete(ctx, id)
}
