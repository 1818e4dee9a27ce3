package bracelet

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/pkg/metrics"
)

// DecodeError reports a frame that could not be decoded even after the
// repair fallback. It is not fatal to the stream; callers log it and keep
// the connection alive.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode telemetry frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Fields recognized by the typed contract. Anything else is passed through
// in Extras for diagnostic display.
var knownFields = map[string]struct{}{
	"deviceId": {}, "lastLat": {}, "lastLon": {},
	"accelX": {}, "accelY": {}, "accelZ": {},
	"gyroX": {}, "gyroY": {}, "gyroZ": {},
	"temperature": {}, "buttonPressed": {}, "buttonCount": {},
	"timestamp": {},
}

// Decode turns one raw inbound frame (UTF-8 text or binary decoded as text)
// into a TelemetryRecord. Malformed frames go through a best-effort repair
// pass before being rejected; every applied repair is logged, because a
// sudden stream of repairs usually means the device protocol changed.
func Decode(raw []byte) (*domain.TelemetryRecord, error) {
	text := strings.TrimSpace(string(raw))

	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		repaired, ok := repairJSON(text)
		if !ok {
			return nil, &DecodeError{Raw: text, Err: err}
		}
		if err2 := json.Unmarshal([]byte(repaired), &fields); err2 != nil {
			return nil, &DecodeError{Raw: text, Err: err}
		}
		metrics.JSONRepairs.Inc()
		slog.Warn("telemetry frame recovered by JSON repair", "raw", truncate(text, 256))
	}

	return FromFields(fields), nil
}

// repairJSON attempts to recover a truncated JSON object. A string that does
// not open with '{' or '[' but contains ':' or ',' is treated as an object
// missing its braces.
func repairJSON(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	opens := strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
	if !opens && !strings.ContainsAny(s, ":,") {
		return "", false
	}
	if !opens {
		s = "{" + s
	}
	if !strings.HasSuffix(s, "}") && !strings.HasSuffix(s, "]") {
		s = s + "}"
	}
	return s, true
}

// FromFields maps an already-parsed frame into a TelemetryRecord.
// A frame with no parsable coordinates is still valid: Position stays nil
// and only the proximity engine treats that as "wait".
func FromFields(fields map[string]any) *domain.TelemetryRecord {
	rec := &domain.TelemetryRecord{ReceivedAt: time.Now()}

	if v, ok := asString(fields["deviceId"]); ok {
		rec.DeviceID = v
	}

	lat, okLat := asFloat(fields["lastLat"])
	lon, okLon := asFloat(fields["lastLon"])
	if okLat && okLon {
		rec.Position = &domain.GeoPoint{Lat: lat, Lon: lon}
	}

	if v, ok := vec3(fields, "accelX", "accelY", "accelZ"); ok {
		rec.Accelerometer = v
	}
	if v, ok := vec3(fields, "gyroX", "gyroY", "gyroZ"); ok {
		rec.Gyroscope = v
	}

	if v, ok := asFloat(fields["temperature"]); ok {
		rec.Temperature = &v
	}
	if v, ok := fields["buttonPressed"].(bool); ok {
		rec.ButtonPressed = &v
	}
	if v, ok := asFloat(fields["buttonCount"]); ok {
		n := int(v)
		rec.ButtonCount = &n
	}
	if v, ok := fields["timestamp"]; ok {
		rec.Timestamp = v
	}

	for k, v := range fields {
		if _, known := knownFields[k]; known {
			continue
		}
		if rec.Extras == nil {
			rec.Extras = make(map[string]any)
		}
		rec.Extras[k] = v
	}

	return rec
}

func vec3(fields map[string]any, kx, ky, kz string) (*domain.Vec3, bool) {
	x, okX := asFloat(fields[kx])
	y, okY := asFloat(fields[ky])
	z, okZ := asFloat(fields[kz])
	if !okX && !okY && !okZ {
		return nil, false
	}
	return &domain.Vec3{X: x, Y: y, Z: z}, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return "", false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
