package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samudrap/carelink/internal/core/domain"
)

// --- Caregivers ---

// CreateCaregiverHandler registers a new caregiver.
func CreateCaregiverHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cg domain.Caregiver
		if err := c.BodyParser(&cg); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Caregivers.Create(c.UserContext(), &cg); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(201).JSON(cg)
	}
}

// ListCaregiversHandler returns all caregivers, paginated.
func ListCaregiversHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caregivers, err := deps.Caregivers.List(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg, start, end := paginate(c, len(caregivers), 200)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: caregivers[start:end], Pagination: pg})
	}
}

// GetCaregiverHandler returns a single caregiver.
func GetCaregiverHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "caregiver id is required")
		}
		cg, err := deps.Caregivers.GetByID(c.UserContext(), id)
		if err != nil {
			return errNotFound(c, "caregiver not found")
		}
		return c.JSON(cg)
	}
}

// UpdateCaregiverHandler replaces a caregiver's mutable fields.
func UpdateCaregiverHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cg domain.Caregiver
		if err := c.BodyParser(&cg); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		cg.ID = c.Params("id")
		if err := deps.Caregivers.Update(c.UserContext(), &cg); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(cg)
	}
}

// DeleteCaregiverHandler removes a caregiver.
func DeleteCaregiverHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Caregivers.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// --- Patients ---

// CreatePatientHandler registers a new patient.
func CreatePatientHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p domain.Patient
		if err := c.BodyParser(&p); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Patients.Create(c.UserContext(), &p); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(201).JSON(p)
	}
}

// ListPatientsHandler returns all patients, paginated.
func ListPatientsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		patients, err := deps.Patients.List(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg, start, end := paginate(c, len(patients), 200)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: patients[start:end], Pagination: pg})
	}
}

// GetPatientHandler returns a single patient.
func GetPatientHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "patient id is required")
		}
		p, err := deps.Patients.GetByID(c.UserContext(), id)
		if err != nil {
			return errNotFound(c, "patient not found")
		}
		return c.JSON(p)
	}
}

// UpdatePatientHandler replaces a patient's mutable fields.
func UpdatePatientHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p domain.Patient
		if err := c.BodyParser(&p); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		p.ID = c.Params("id")
		if err := deps.Patients.Update(c.UserContext(), &p); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(p)
	}
}

// DeletePatientHandler removes a patient.
func DeletePatientHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Patients.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// PatientAssignmentsHandler returns a patient's device assignment history.
func PatientAssignmentsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "patient id is required")
		}
		assignments, err := deps.Devices.ListAssignments(c.UserContext(), id)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(assignments)
	}
}

// --- Devices & assignments ---

// RegisterDeviceHandler registers a new bracelet.
func RegisterDeviceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var d domain.Device
		if err := c.BodyParser(&d); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Devices.Register(c.UserContext(), &d); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(201).JSON(d)
	}
}

// ListDevicesHandler returns all registered bracelets.
func ListDevicesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		devices, err := deps.Devices.List(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(devices)
	}
}

// GetDeviceHandler returns a device by UUID.
func GetDeviceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "device id is required")
		}
		d, err := deps.Devices.GetByID(c.UserContext(), id)
		if err != nil {
			return errNotFound(c, "device not found")
		}
		return c.JSON(d)
	}
}

// DeleteDeviceHandler removes a device.
func DeleteDeviceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Devices.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// CreateAssignmentHandler binds a device to a patient.
func CreateAssignmentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var a domain.Assignment
		if err := c.BodyParser(&a); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Devices.Assign(c.UserContext(), &a); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(201).JSON(a)
	}
}

// ReleaseAssignmentHandler closes an assignment.
func ReleaseAssignmentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "assignment id is required")
		}
		if err := deps.Devices.Release(c.UserContext(), id); err != nil {
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// --- Schedules ---

// CreateScheduleHandler plans a caregiver visit.
func CreateScheduleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var s domain.Schedule
		if err := c.BodyParser(&s); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Schedules.Create(c.UserContext(), &s); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(201).JSON(s)
	}
}

// CaregiverSchedulesHandler returns a caregiver's visits in a time range.
// GET /v1/caregivers/:id/schedules?from=2026-01-02T00:00:00Z&to=...
func CaregiverSchedulesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "caregiver id is required")
		}

		from, to, err := parseTimeRange(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		schedules, err := deps.Schedules.ListByCaregiver(c.UserContext(), id, from, to)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(schedules)
	}
}

// DeleteScheduleHandler cancels a visit.
func DeleteScheduleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Schedules.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// --- Notifications ---

// CaregiverNotificationsHandler returns recent notifications for a caregiver.
func CaregiverNotificationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "caregiver id is required")
		}
		limit := c.QueryInt("limit", 50)

		notifications, err := deps.Notifications.ListByCaregiver(c.UserContext(), id, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(notifications)
	}
}

// MarkNotificationReadHandler records that a caregiver saw a notification.
func MarkNotificationReadHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "notification id is required")
		}
		if err := deps.Notifications.MarkRead(c.UserContext(), id); err != nil {
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// --- Tracking ---

// TrackingStateHandler returns the live tracked-subject state: last
// distance (or the documented default), connectivity, and coordinates.
func TrackingStateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Tracking == nil {
			return errNotFound(c, "no subject is being tracked")
		}

		state := deps.Tracking.State()
		resp := fiber.Map{
			"subject_id":      state.SubjectID,
			"distance_meters": deps.Tracking.GetDistanceOrDefault(),
			"distance_known":  state.Distance != nil,
			"connectivity":    state.Connectivity,
			"updated_at":      state.UpdatedAt,
		}
		if state.Coordinates != nil {
			resp["coordinates"] = state.Coordinates
		}
		return c.JSON(resp)
	}
}

// DistanceLogHandler returns the historical distance log for a subject.
// GET /v1/tracking/:subjectID/distance-log?from=...&to=...&limit=200
func DistanceLogHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subjectID := c.Params("subjectID")
		if subjectID == "" {
			return errBadRequest(c, "subject id is required")
		}
		if deps.DistanceLog == nil {
			return errInternal(c, "distance log not available")
		}

		from, to, err := parseTimeRange(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if from.IsZero() {
			from = time.Now().Add(-24 * time.Hour)
		}
		if to.IsZero() {
			to = time.Now()
		}
		limit := c.QueryInt("limit", 200)
		if limit <= 0 || limit > 1000 {
			limit = 200
		}

		entries, err := deps.DistanceLog.ListBySubject(c.UserContext(), subjectID, from, to, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{
			"subject_id": subjectID,
			"entries":    entries,
			"count":      len(entries),
		})
	}
}

// parseTimeRange reads optional RFC 3339 from/to query params.
func parseTimeRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, fiber.NewError(400, "from must be RFC 3339")
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, fiber.NewError(400, "to must be RFC 3339")
		}
		to = t
	}
	return from, to, nil
}
