package domain

import (
	"time"
)

// Caregiver is a nurse or family member coordinating a patient's care.
type Caregiver struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"` // nurse | family | admin
	CreatedAt time.Time `json:"created_at"`
}

// Patient is a person under care.
type Patient struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	DateOfBirth *time.Time     `json:"date_of_birth,omitempty"`
	Address     string         `json:"address,omitempty"`
	Condition   string         `json:"condition,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Device is a wearable bracelet pushing telemetry.
type Device struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"` // hardware identifier carried in telemetry frames
	Label      string    `json:"label,omitempty"`
	StreamURL  string    `json:"stream_url,omitempty"`
	Active     bool      `json:"active"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Assignment binds a device to a patient and a responsible caregiver.
// The live-tracked assignment is the one the proximity pipeline follows.
type Assignment struct {
	ID          string     `json:"id"`
	DeviceID    string     `json:"device_id"`
	PatientID   string     `json:"patient_id"`
	CaregiverID string     `json:"caregiver_id"`
	LiveTracked bool       `json:"live_tracked"`
	AssignedAt  time.Time  `json:"assigned_at"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`
}

// Schedule is a planned caregiver visit.
type Schedule struct {
	ID          string    `json:"id"`
	CaregiverID string    `json:"caregiver_id"`
	PatientID   string    `json:"patient_id"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notification is an alert delivered to a caregiver.
type Notification struct {
	ID          string     `json:"id"`
	CaregiverID string     `json:"caregiver_id"`
	SubjectID   string     `json:"subject_id,omitempty"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
