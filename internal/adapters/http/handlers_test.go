package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samudrap/carelink/internal/adapters/http"
	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/core/usecases"
)

// ---- Mock repositories ----

type mockCaregiverRepo struct {
	createFn  func(ctx context.Context, c *domain.Caregiver) error
	getByIDFn func(ctx context.Context, id string) (*domain.Caregiver, error)
	listFn    func(ctx context.Context) ([]domain.Caregiver, error)
}

func (m *mockCaregiverRepo) Create(ctx context.Context, c *domain.Caregiver) error {
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	c.ID = "cg-1"
	return nil
}
func (m *mockCaregiverRepo) GetByID(ctx context.Context, id string) (*domain.Caregiver, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockCaregiverRepo) List(ctx context.Context) ([]domain.Caregiver, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}
func (m *mockCaregiverRepo) Update(ctx context.Context, c *domain.Caregiver) error { return nil }
func (m *mockCaregiverRepo) Delete(ctx context.Context, id string) error           { return nil }

type mockPatientRepo struct {
	createFn  func(ctx context.Context, p *domain.Patient) error
	getByIDFn func(ctx context.Context, id string) (*domain.Patient, error)
	listFn    func(ctx context.Context) ([]domain.Patient, error)
}

func (m *mockPatientRepo) Create(ctx context.Context, p *domain.Patient) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	p.ID = "p-1"
	return nil
}
func (m *mockPatientRepo) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockPatientRepo) List(ctx context.Context) ([]domain.Patient, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}
func (m *mockPatientRepo) Update(ctx context.Context, p *domain.Patient) error { return nil }
func (m *mockPatientRepo) Delete(ctx context.Context, id string) error         { return nil }

type mockDeviceRepoHTTP struct {
	listFn func(ctx context.Context) ([]domain.Device, error)
}

func (m *mockDeviceRepoHTTP) Create(ctx context.Context, d *domain.Device) error { return nil }
func (m *mockDeviceRepoHTTP) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	return nil, fmt.Errorf("not found")
}
func (m *mockDeviceRepoHTTP) GetByDeviceID(ctx context.Context, deviceID string) (*domain.Device, error) {
	return nil, nil
}
func (m *mockDeviceRepoHTTP) List(ctx context.Context) ([]domain.Device, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}
func (m *mockDeviceRepoHTTP) TouchLastSeen(ctx context.Context, deviceID string, at time.Time) error {
	return nil
}
func (m *mockDeviceRepoHTTP) Delete(ctx context.Context, id string) error { return nil }

type mockAssignmentRepoHTTP struct {
	listByPatientFn func(ctx context.Context, patientID string) ([]domain.Assignment, error)
}

func (m *mockAssignmentRepoHTTP) Create(ctx context.Context, a *domain.Assignment) error { return nil }
func (m *mockAssignmentRepoHTTP) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	return nil, nil
}
func (m *mockAssignmentRepoHTTP) GetLiveTracked(ctx context.Context) (*domain.Assignment, error) {
	return nil, fmt.Errorf("no live assignment")
}
func (m *mockAssignmentRepoHTTP) ListByPatient(ctx context.Context, patientID string) ([]domain.Assignment, error) {
	if m.listByPatientFn != nil {
		return m.listByPatientFn(ctx, patientID)
	}
	return nil, nil
}
func (m *mockAssignmentRepoHTTP) Release(ctx context.Context, id string, at time.Time) error {
	return nil
}

type mockScheduleRepo struct{}

func (m *mockScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error { return nil }
func (m *mockScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	return nil, nil
}
func (m *mockScheduleRepo) ListByCaregiver(ctx context.Context, caregiverID string, from, to time.Time) ([]domain.Schedule, error) {
	return nil, nil
}
func (m *mockScheduleRepo) Delete(ctx context.Context, id string) error { return nil }

type mockNotificationRepoHTTP struct{}

func (m *mockNotificationRepoHTTP) Create(ctx context.Context, n *domain.Notification) error {
	return nil
}
func (m *mockNotificationRepoHTTP) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	return nil, nil
}
func (m *mockNotificationRepoHTTP) ListByCaregiver(ctx context.Context, caregiverID string, limit int) ([]domain.Notification, error) {
	return nil, nil
}
func (m *mockNotificationRepoHTTP) MarkSent(ctx context.Context, id string, at time.Time) error {
	return nil
}
func (m *mockNotificationRepoHTTP) MarkRead(ctx context.Context, id string, at time.Time) error {
	return nil
}
func (m *mockNotificationRepoHTTP) Delete(ctx context.Context, id string) error { return nil }

type mockDistanceLogRepo struct {
	listFn func(ctx context.Context, subjectID string, from, to time.Time, limit int) ([]domain.DistanceLogEntry, error)
}

func (m *mockDistanceLogRepo) Insert(ctx context.Context, e *domain.DistanceLogEntry) error {
	return nil
}
func (m *mockDistanceLogRepo) ListBySubject(ctx context.Context, subjectID string, from, to time.Time, limit int) ([]domain.DistanceLogEntry, error) {
	if m.listFn != nil {
		return m.listFn(ctx, subjectID, from, to, limit)
	}
	return nil, nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	d := &handler.Dependencies{
		Caregivers:    usecases.NewCaregiverService(&mockCaregiverRepo{}, nil),
		Patients:      usecases.NewPatientService(&mockPatientRepo{}, nil),
		Devices:       usecases.NewDeviceService(&mockDeviceRepoHTTP{}, &mockAssignmentRepoHTTP{}),
		Schedules:     usecases.NewScheduleService(&mockScheduleRepo{}),
		Notifications: usecases.NewNotificationService(&mockNotificationRepoHTTP{}, nil),
		Tracking:      usecases.NewTrackStateService("BRC-001", nil, nil),
		DistanceLog:   &mockDistanceLogRepo{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---- Patient handler tests ----

func TestListPatients_Pagination(t *testing.T) {
	patients := make([]domain.Patient, 5)
	for i := range patients {
		patients[i] = domain.Patient{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Patient %d", i)}
	}

	deps := makeDeps(func(d *handler.Dependencies) {
		d.Patients = usecases.NewPatientService(&mockPatientRepo{
			listFn: func(ctx context.Context) ([]domain.Patient, error) { return patients, nil },
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/patients?offset=2&limit=2", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Patient `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 patients in page, got %d", len(result.Data))
	}
	if result.Pagination.Offset != 2 {
		t.Errorf("expected offset 2, got %d", result.Pagination.Offset)
	}
}

func TestGetPatient_NotFound(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Patients = usecases.NewPatientService(&mockPatientRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Patient, error) {
				return nil, fmt.Errorf("not found")
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/patients/nonexistent-id", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Status int    `json:"status"`
		Code   string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "not_found" {
		t.Errorf("expected not_found error, got %s", apiErr.Code)
	}
}

func TestGetPatient_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Patients = usecases.NewPatientService(&mockPatientRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Patient, error) {
				return &domain.Patient{ID: id, Name: "Ibu Sari"}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/patients/abc-123", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var p domain.Patient
	json.NewDecoder(resp.Body).Decode(&p)
	if p.Name != "Ibu Sari" {
		t.Errorf("expected Ibu Sari, got %s", p.Name)
	}
}

func TestCreatePatient_MissingName(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/patients", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreatePatient_Success(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/patients", strings.NewReader(`{"name":"Ibu Sari"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var p domain.Patient
	json.NewDecoder(resp.Body).Decode(&p)
	if p.ID != "p-1" {
		t.Errorf("expected generated id, got %q", p.ID)
	}
}

// ---- Caregiver handler tests ----

func TestCreateCaregiver_InvalidRole(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{"name":"Dewi","email":"dewi@example.com","role":"janitor"}`
	req := httptest.NewRequest("POST", "/v1/caregivers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateCaregiver_Success(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{"name":"Dewi","email":"dewi@example.com","role":"nurse"}`
	req := httptest.NewRequest("POST", "/v1/caregivers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
}

// ---- Tracking handler tests ----

func TestTrackingState_DefaultDistance(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/tracking/current", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		SubjectID      string  `json:"subject_id"`
		DistanceMeters float64 `json:"distance_meters"`
		DistanceKnown  bool    `json:"distance_known"`
		Connectivity   string  `json:"connectivity"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.DistanceMeters != 50 {
		t.Errorf("expected default distance 50, got %v", result.DistanceMeters)
	}
	if result.DistanceKnown {
		t.Error("fresh tracker must not claim a known distance")
	}
	if result.Connectivity != "disconnected" {
		t.Errorf("expected disconnected, got %q", result.Connectivity)
	}
}

func TestTrackingState_AfterUpdate(t *testing.T) {
	deps := makeDeps()
	deps.Tracking.SaveDistance(context.Background(), 12.345)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/tracking/current", nil)
	resp, _ := app.Test(req, -1)

	var result struct {
		DistanceMeters float64 `json:"distance_meters"`
		DistanceKnown  bool    `json:"distance_known"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.DistanceMeters != 12.35 {
		t.Errorf("expected rounded 12.35, got %v", result.DistanceMeters)
	}
	if !result.DistanceKnown {
		t.Error("distance must be marked known after an update")
	}
}

func TestTrackingState_NoCacheHeader(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/tracking/current", nil)
	resp, _ := app.Test(req, -1)
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store for live tracking, got %q", cc)
	}
}

func TestDistanceLog_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.DistanceLog = &mockDistanceLogRepo{
			listFn: func(ctx context.Context, subjectID string, from, to time.Time, limit int) ([]domain.DistanceLogEntry, error) {
				return []domain.DistanceLogEntry{
					{ID: "e1", SubjectID: subjectID, Meters: 10.5, Time: time.Now()},
				}, nil
			},
		}
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/tracking/BRC-001/distance-log", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		SubjectID string                   `json:"subject_id"`
		Entries   []domain.DistanceLogEntry `json:"entries"`
		Count     int                      `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 1 {
		t.Errorf("expected 1 entry, got %d", result.Count)
	}
}

func TestDistanceLog_BadTimeRange(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/tracking/BRC-001/distance-log?from=yesterday", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Deprecated alias ----

func TestDeprecatedDistanceEndpoint(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/distance", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header on legacy endpoint")
	}
	if resp.Header.Get("Sunset") == "" {
		t.Error("expected Sunset header on legacy endpoint")
	}
}

// ---- Health handler tests ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_NoDB(t *testing.T) {
	deps := makeDeps()
	// DB, NATS, Cache are nil → should report not ready
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/ready", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

// ---- X-API-Version header ----

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	v := resp.Header.Get("X-API-Version")
	if v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

// ---- Link header on pagination ----

func TestListPatients_LinkHeader(t *testing.T) {
	patients := make([]domain.Patient, 10)
	for i := range patients {
		patients[i] = domain.Patient{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Patient %d", i)}
	}

	deps := makeDeps(func(d *handler.Dependencies) {
		d.Patients = usecases.NewPatientService(&mockPatientRepo{
			listFn: func(ctx context.Context) ([]domain.Patient, error) { return patients, nil },
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/patients?offset=0&limit=3", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	link := resp.Header.Get("Link")
	if link == "" {
		t.Fatal("expected Link header, got empty")
	}
	if !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %s", link)
	}
	if !strings.Contains(link, `rel="first"`) {
		t.Errorf("expected first link, got %s", link)
	}
	if !strings.Contains(link, `rel="last"`) {
		t.Errorf("expected last link, got %s", link)
	}
}

// TestAccessLogMiddleware verifies structured access logging is emitted.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()

	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}
