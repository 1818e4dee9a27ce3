package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samudrap/carelink/internal/adapters/nats"
	"github.com/samudrap/carelink/internal/adapters/postgres"
	"github.com/samudrap/carelink/internal/pkg/config"
	"github.com/samudrap/carelink/internal/pkg/logging"
	"github.com/samudrap/carelink/internal/workflows"
)

// The escalator turns proximity alerts into caregiver notifications. It runs
// a Temporal worker for the escalation workflow and bridges the durable NATS
// alert stream into workflow executions.
func main() {
	cfg, err := config.Load("carelink-escalator")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("carelink-escalator", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.EscalationWorkflow)
	w.RegisterActivity(&workflows.EscalationActivities{
		Assignments:   postgres.NewAssignmentRepo(db),
		Notifications: postgres.NewNotificationRepo(db),
		// Notifier is nil until a push gateway is configured; SendAlertPush
		// logs instead of pushing.
	})

	// Bridge durable alerts into workflow executions
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeAlerts(ctx, func(ctx context.Context, alert *natsadapter.Alert) error {
		input := workflows.EscalationInput{
			SubjectID:      alert.SubjectID,
			DistanceMeters: alert.Meters,
			At:             alert.At,
		}
		opts := client.StartWorkflowOptions{
			ID:        fmt.Sprintf("escalation-%s-%d", alert.SubjectID, alert.At.UnixNano()),
			TaskQueue: cfg.Temporal.TaskQueue,
		}
		run, err := c.ExecuteWorkflow(ctx, opts, workflows.EscalationWorkflow, input)
		if err != nil {
			return fmt.Errorf("start escalation workflow: %w", err)
		}
		slog.Info("escalation workflow started", "workflow", run.GetID(), "subject", alert.SubjectID)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe alerts: %v", err)
	}

	slog.Info("escalator worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
