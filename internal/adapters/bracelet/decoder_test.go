package bracelet

import (
	"errors"
	"testing"
)

func TestDecode_FullFrame(t *testing.T) {
	raw := []byte(`{
		"deviceId": "BRC-001",
		"lastLat": -6.2088, "lastLon": 106.8456,
		"accelX": 0.1, "accelY": -0.2, "accelZ": 9.8,
		"gyroX": 1.5, "gyroY": 0.0, "gyroZ": -0.7,
		"temperature": 36.6,
		"buttonPressed": true,
		"buttonCount": 3,
		"timestamp": "2026-08-30T10:00:00Z",
		"firmware": "2.1.0"
	}`)

	rec, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.DeviceID != "BRC-001" {
		t.Errorf("device id = %q", rec.DeviceID)
	}
	if rec.Position == nil || rec.Position.Lat != -6.2088 || rec.Position.Lon != 106.8456 {
		t.Errorf("position = %+v", rec.Position)
	}
	if rec.Accelerometer == nil || rec.Accelerometer.Z != 9.8 {
		t.Errorf("accelerometer = %+v", rec.Accelerometer)
	}
	if rec.Gyroscope == nil || rec.Gyroscope.X != 1.5 {
		t.Errorf("gyroscope = %+v", rec.Gyroscope)
	}
	if rec.Temperature == nil || *rec.Temperature != 36.6 {
		t.Errorf("temperature = %v", rec.Temperature)
	}
	if rec.ButtonPressed == nil || !*rec.ButtonPressed {
		t.Errorf("buttonPressed = %v", rec.ButtonPressed)
	}
	if rec.ButtonCount == nil || *rec.ButtonCount != 3 {
		t.Errorf("buttonCount = %v", rec.ButtonCount)
	}
	if rec.Timestamp != "2026-08-30T10:00:00Z" {
		t.Errorf("timestamp = %v", rec.Timestamp)
	}
	if rec.Extras["firmware"] != "2.1.0" {
		t.Errorf("extras = %+v", rec.Extras)
	}
	if rec.ReceivedAt.IsZero() {
		t.Error("ReceivedAt not set")
	}
}

func TestDecode_RepairsMissingBraces(t *testing.T) {
	rec, err := Decode([]byte(`"lastLat":1.0,"lastLon":2.0`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Position == nil || rec.Position.Lat != 1.0 || rec.Position.Lon != 2.0 {
		t.Errorf("position = %+v", rec.Position)
	}
}

func TestDecode_RepairsUnterminatedObject(t *testing.T) {
	rec, err := Decode([]byte(`{"lastLat":1.0,"lastLon":2.0`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Position == nil || rec.Position.Lon != 2.0 {
		t.Errorf("position = %+v", rec.Position)
	}
}

func TestDecode_GarbageFails(t *testing.T) {
	_, err := Decode([]byte("not json at all"))
	if err == nil {
		t.Fatal("expected error")
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
	if de.Raw != "not json at all" {
		t.Errorf("raw = %q", de.Raw)
	}
}

func TestDecode_SensorOnlyFrameIsValid(t *testing.T) {
	rec, err := Decode([]byte(`{"deviceId":"BRC-001","temperature":"37.1"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Position != nil {
		t.Errorf("expected nil position, got %+v", rec.Position)
	}
	if rec.Temperature == nil || *rec.Temperature != 37.1 {
		t.Errorf("temperature = %v", rec.Temperature)
	}
}

func TestDecode_PartialCoordinatesDropped(t *testing.T) {
	rec, err := Decode([]byte(`{"lastLat":1.0}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Position != nil {
		t.Errorf("lat without lon must not produce a position, got %+v", rec.Position)
	}
}

func TestRepairJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`"a":1`, `{"a":1}`, true},
		{`{"a":1`, `{"a":1}`, true},
		{`garbage`, "", false},
		{``, "", false},
	}
	for _, tc := range cases {
		got, ok := repairJSON(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("repairJSON(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
