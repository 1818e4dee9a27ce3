package domain

import "time"

// ConnectivityState describes the bracelet stream connection.
type ConnectivityState string

const (
	ConnDisconnected ConnectivityState = "disconnected"
	ConnConnecting   ConnectivityState = "connecting"
	ConnConnected    ConnectivityState = "connected"
	ConnError        ConnectivityState = "error"
)

// Vec3 is a 3-axis sensor reading.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// TelemetryRecord is one decoded frame from a bracelet.
// Position is nil for sensor-only frames that carried no coordinates;
// such frames are still valid and are forwarded downstream.
type TelemetryRecord struct {
	DeviceID      string         `json:"device_id,omitempty"`
	Position      *GeoPoint      `json:"position,omitempty"`
	Accelerometer *Vec3          `json:"accelerometer,omitempty"`
	Gyroscope     *Vec3          `json:"gyroscope,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	ButtonPressed *bool          `json:"button_pressed,omitempty"`
	ButtonCount   *int           `json:"button_count,omitempty"`
	Timestamp     any            `json:"timestamp,omitempty"` // opaque device timestamp, passed through as-is
	ReceivedAt    time.Time      `json:"received_at"`
	Extras        map[string]any `json:"extras,omitempty"` // unrecognized fields, kept for diagnostics
}

// DistanceSample is an accepted observer-to-subject distance.
type DistanceSample struct {
	Meters     float64   `json:"meters"` // rounded to 2 decimals
	ComputedAt time.Time `json:"computed_at"`
}

// TrackedSubjectState is the durable last-known state for one tracked subject.
type TrackedSubjectState struct {
	SubjectID    string            `json:"subject_id"`
	Distance     *float64          `json:"distance,omitempty"`
	Connectivity ConnectivityState `json:"connectivity"`
	Coordinates  *GeoPoint         `json:"coordinates,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// DistanceLogEntry is one accepted distance sample appended to the log.
type DistanceLogEntry struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	Meters    float64   `json:"meters"`
	Location  *GeoPoint `json:"location,omitempty"`
	Time      time.Time `json:"time"`
}
