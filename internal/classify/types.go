package classify

import (
	"time"

	"github.com/hearthwatch/hearthwatch-core/internal/directory"
)

// Persistence names shared between the classifier's threshold lookup and the
// tracker's event appends.
const (
	// EventsTable is the sink table every classified event is appended to.
	EventsTable = "sensor_events"

	// ReadingField is the column holding plug/meter numeric readings.
	ReadingField = "reading"
)

// SemanticState is the meaning of a raw sensor report after classification.
type SemanticState string

// Semantic states per device category.
const (
	// StateDetected means a motion sensor sees activity.
	StateDetected SemanticState = "detected"

	// StateClear means a motion sensor no longer sees activity.
	StateClear SemanticState = "clear"

	// StateOpen means a contact sensor reports open.
	StateOpen SemanticState = "open"

	// StateClose means a contact sensor reports closed.
	StateClose SemanticState = "close"

	// StateTimeoutNotClosed means a contact sensor reports it was left open
	// past its hardware timeout.
	StateTimeoutNotClosed SemanticState = "timeout_not_closed"

	// StateReading means a plug or meter reported a value with no threshold
	// crossing.
	StateReading SemanticState = "reading"

	// StateThresholdUp means a plug/meter reading crossed the configured
	// threshold going up since the previous reading.
	StateThresholdUp SemanticState = "threshold_crossed_up"

	// StateThresholdDown means a plug/meter reading crossed the configured
	// threshold going down since the previous reading.
	StateThresholdDown SemanticState = "threshold_crossed_down"
)

// IsActivation reports whether the state begins a device activation.
func (s SemanticState) IsActivation() bool {
	return s == StateDetected || s == StateOpen || s == StateThresholdUp
}

// IsDeactivation reports whether the state ends a device activation.
func (s SemanticState) IsDeactivation() bool {
	return s == StateClear || s == StateClose || s == StateThresholdDown
}

// RawPayload is the inbound webhook body after JSON decoding.
//
// Sensors are loose about which optional fields they include, so everything
// beyond the three required fields is best-effort. The ingest handler checks
// the required fields are present; the classifier interprets them.
type RawPayload struct {
	// DeviceMAC identifies the reporting device. Required.
	DeviceMAC string `json:"device_mac"`

	// DetectionState is the category-specific raw value: "detected"/"clear"
	// for motion, "open"/"close" for contact, a numeric string for plugs and
	// meters. Required.
	DetectionState string `json:"detection_state"`

	// EventType is the sensor's own event label. Required but only recorded,
	// never trusted for classification.
	EventType string `json:"event_type"`

	// DeviceType is an optional hint used for unregistered hardware.
	DeviceType string `json:"device_type,omitempty"`

	// Brightness is an optional illuminance reading some motion sensors
	// attach. Recorded as raw detail only.
	Brightness string `json:"brightness,omitempty"`
}

// Event is an immutable classified sensor event.
//
// Produced by the Classifier, consumed by the tracker and the persistence
// sink. DeviceName and Location are always populated, falling back to
// placeholder values for unregistered hardware.
type Event struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// DeviceID is the normalised MAC of the reporting device.
	DeviceID string `json:"device_id"`

	// DeviceName is the directory display name, or "Unknown_<mac>" for
	// unregistered hardware.
	DeviceName string `json:"device_name"`

	// Location is the directory location, or "unregistered".
	Location string `json:"location"`

	// Category is the device category driving tracker policy.
	Category directory.Category `json:"category"`

	// SemanticState is the classified meaning of the report.
	SemanticState SemanticState `json:"semantic_state"`

	// Reading is the numeric value for plug/meter events, zero otherwise.
	Reading float64 `json:"reading,omitempty"`

	// RawDetail preserves the original payload fields for persistence.
	RawDetail RawPayload `json:"raw_detail"`

	// Timestamp is when the event was classified (UTC).
	Timestamp time.Time `json:"timestamp"`
}
