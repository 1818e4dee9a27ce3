package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/core/ports"
)

// EscalationActivities holds the activity implementations for the escalation
// workflow.
type EscalationActivities struct {
	Assignments   ports.AssignmentRepository
	Notifications ports.NotificationRepository
	Notifier      ports.NotificationService
}

// FindResponsibleCaregiver returns the caregiver bound to the live-tracked
// assignment.
func (a *EscalationActivities) FindResponsibleCaregiver(ctx context.Context, subjectID string) (string, error) {
	assignment, err := a.Assignments.GetLiveTracked(ctx)
	if err != nil {
		return "", fmt.Errorf("get live-tracked assignment: %w", err)
	}
	if assignment.CaregiverID == "" {
		return "", fmt.Errorf("live-tracked assignment %s has no caregiver", assignment.ID)
	}
	return assignment.CaregiverID, nil
}

// CreateAlertNotification records the alert and returns the notification ID.
func (a *EscalationActivities) CreateAlertNotification(ctx context.Context, caregiverID string, input EscalationInput) (string, error) {
	n := &domain.Notification{
		CaregiverID: caregiverID,
		SubjectID:   input.SubjectID,
		Title:       "Proximity alert",
		Body:        fmt.Sprintf("Subject %s is %.2f m away (measured %s).", input.SubjectID, input.DistanceMeters, input.At.Format(time.RFC3339)),
	}
	if err := a.Notifications.Create(ctx, n); err != nil {
		return "", fmt.Errorf("create notification: %w", err)
	}
	return n.ID, nil
}

// SendAlertPush pushes the alert to the caregiver and marks it sent.
func (a *EscalationActivities) SendAlertPush(ctx context.Context, caregiverID, notificationID string, input EscalationInput) error {
	title := "Proximity alert"
	body := fmt.Sprintf("Subject %s is %.2f m away.", input.SubjectID, input.DistanceMeters)

	if a.Notifier == nil {
		slog.Info("push (no notifier configured)", "caregiver", caregiverID, "body", body)
	} else if err := a.Notifier.SendPush(ctx, caregiverID, title, body); err != nil {
		return fmt.Errorf("send push: %w", err)
	}

	if err := a.Notifications.MarkSent(ctx, notificationID, time.Now()); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// DeleteNotification removes a notification record (saga compensation).
func (a *EscalationActivities) DeleteNotification(ctx context.Context, notificationID string) error {
	if err := a.Notifications.Delete(ctx, notificationID); err != nil {
		return fmt.Errorf("delete notification %s: %w", notificationID, err)
	}
	slog.Info("notification deleted after failed push", "id", notificationID)
	return nil
}
