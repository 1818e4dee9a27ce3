package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samudrap/carelink/internal/adapters/postgres"
	valkeyadapter "github.com/samudrap/carelink/internal/adapters/valkey"
	"github.com/samudrap/carelink/internal/core/ports"
	"github.com/samudrap/carelink/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Patients      *usecases.PatientService
	Caregivers    *usecases.CaregiverService
	Devices       *usecases.DeviceService
	Schedules     *usecases.ScheduleService
	Notifications *usecases.NotificationService
	Tracking      *usecases.TrackStateService
	DistanceLog   ports.DistanceLogRepository
	NATS          *nats.Conn
	DB            *postgres.DB
	Cache         *valkeyadapter.Cache
}
