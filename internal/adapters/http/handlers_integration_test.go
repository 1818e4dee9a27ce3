//go:build integration
// +build integration

package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	handler "github.com/samudrap/carelink/internal/adapters/http"
	"github.com/samudrap/carelink/internal/adapters/postgres"
	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/core/usecases"
	"github.com/samudrap/carelink/internal/pkg/config"
)

// setupTestDB connects to the test database.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("carelink-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	db := &postgres.DB{Pool: pool}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	return db
}

// setupRealDeps creates dependencies with real repos and no cache.
func setupRealDeps(t *testing.T, db *postgres.DB) *handler.Dependencies {
	caregiverRepo := postgres.NewCaregiverRepo(db)
	patientRepo := postgres.NewPatientRepo(db)
	deviceRepo := postgres.NewDeviceRepo(db)
	assignmentRepo := postgres.NewAssignmentRepo(db)
	scheduleRepo := postgres.NewScheduleRepo(db)
	notificationRepo := postgres.NewNotificationRepo(db)
	distanceLogRepo := postgres.NewDistanceLogRepo(db)

	return &handler.Dependencies{
		Caregivers:    usecases.NewCaregiverService(caregiverRepo, nil),
		Patients:      usecases.NewPatientService(patientRepo, nil),
		Devices:       usecases.NewDeviceService(deviceRepo, assignmentRepo),
		Schedules:     usecases.NewScheduleService(scheduleRepo),
		Notifications: usecases.NewNotificationService(notificationRepo, nil),
		Tracking:      usecases.NewTrackStateService("BRC-001", nil, nil),
		DistanceLog:   distanceLogRepo,
		DB:            db,
	}
}

// seedTestCaregiver inserts a caregiver and returns its UUID.
func seedTestCaregiver(t *testing.T, db *postgres.DB, email string) string {
	ctx := context.Background()
	var id string
	if err := db.Pool.QueryRow(ctx, `
		INSERT INTO caregivers (name, email, role)
		VALUES ('Integration Caregiver', $1, 'nurse')
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, email).Scan(&id); err != nil {
		t.Fatalf("seed caregiver: %v", err)
	}
	return id
}

// seedTestPatient inserts a patient and returns its UUID.
func seedTestPatient(t *testing.T, db *postgres.DB, name string) string {
	ctx := context.Background()
	var id string
	if err := db.Pool.QueryRow(ctx, `
		INSERT INTO patients (name, condition)
		VALUES ($1, 'dementia, early stage')
		RETURNING id
	`, name).Scan(&id); err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	return id
}

// seedTestDevice inserts a bracelet and returns its UUID.
func seedTestDevice(t *testing.T, db *postgres.DB, deviceID string) string {
	ctx := context.Background()
	var id string
	if err := db.Pool.QueryRow(ctx, `
		INSERT INTO devices (device_id, label, active)
		VALUES ($1, 'Integration bracelet', TRUE)
		ON CONFLICT (device_id) DO UPDATE SET label = EXCLUDED.label
		RETURNING id
	`, deviceID).Scan(&id); err != nil {
		t.Fatalf("seed device: %v", err)
	}
	return id
}

// TestListCaregivers_Integration lists caregivers against a real database.
func TestListCaregivers_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	seedTestCaregiver(t, db, "integ-a@example.com")
	seedTestCaregiver(t, db, "integ-b@example.com")

	deps := setupRealDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/caregivers", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Caregiver  `json:"data"`
		Pagination struct{ Total int } `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Pagination.Total < 2 {
		t.Errorf("expected at least 2 caregivers, got %d", result.Pagination.Total)
	}
}

// TestGetPatient_Integration looks up a seeded patient through the API.
func TestGetPatient_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	name := "Integ Patient " + time.Now().Format("20060102150405")
	id := seedTestPatient(t, db, name)

	deps := setupRealDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/patients/"+id, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var p domain.Patient
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if p.Name != name {
		t.Errorf("expected name %s, got %s", name, p.Name)
	}
}

// TestAssignmentLifecycle_Integration binds a bracelet to a patient and
// releases it through the API.
func TestAssignmentLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	caregiverID := seedTestCaregiver(t, db, "integ-assign@example.com")
	patientID := seedTestPatient(t, db, "Integ Assignment Patient")
	deviceUUID := seedTestDevice(t, db, "BRC-INTEG-001")

	deps := setupRealDeps(t, db)
	app := setupApp(deps)

	body, _ := json.Marshal(domain.Assignment{
		DeviceID:    deviceUUID,
		PatientID:   patientID,
		CaregiverID: caregiverID,
		LiveTracked: false,
	})
	req := httptest.NewRequest("POST", "/v1/assignments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created domain.Assignment
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected assignment id to be set")
	}

	req = httptest.NewRequest("POST", "/v1/assignments/"+created.ID+"/release", nil)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("release request: %v", err)
	}
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}
