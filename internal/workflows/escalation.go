package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// EscalationInput is the input for the alert escalation workflow.
type EscalationInput struct {
	SubjectID      string
	DistanceMeters float64
	At             time.Time
}

// EscalationWorkflow orchestrates turning a proximity alert into a caregiver
// notification: find the caregiver responsible for the live-tracked subject,
// record a notification, and push it. If the push fails the notification
// record is deleted (saga compensation) so retries start clean.
func EscalationWorkflow(ctx workflow.Context, input EscalationInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting escalation workflow", "subject", input.SubjectID, "meters", input.DistanceMeters)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Find the responsible caregiver
	var caregiverID string
	err := workflow.ExecuteActivity(ctx, "FindResponsibleCaregiver", input.SubjectID).Get(ctx, &caregiverID)
	if err != nil {
		return err
	}

	// Step 2: Record the notification
	var notificationID string
	err = workflow.ExecuteActivity(ctx, "CreateAlertNotification", caregiverID, input).Get(ctx, &notificationID)
	if err != nil {
		return err
	}

	// Step 3: Push it to the caregiver
	err = workflow.ExecuteActivity(ctx, "SendAlertPush", caregiverID, notificationID, input).Get(ctx, nil)
	if err != nil {
		logger.Warn("push failed, compensating", "error", err)
		// Compensate: delete the notification record
		_ = workflow.ExecuteActivity(ctx, "DeleteNotification", notificationID).Get(ctx, nil)
		return err
	}

	logger.Info("Escalation delivered", "caregiver", caregiverID, "notification", notificationID)
	return nil
}
