package classify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hearthwatch/hearthwatch-core/internal/directory"
	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/config"
	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/influxdb"
)

// Resolver looks up directory metadata for a device.
// Satisfied by *directory.Registry.
type Resolver interface {
	Resolve(ctx context.Context, mac string) (*directory.Device, error)
}

// ReadingSource returns the most recent numeric reading for a device.
// Satisfied by *influxdb.Client.
type ReadingSource interface {
	LastReading(ctx context.Context, table, deviceID, field string) (float64, error)
}

// Logger is the minimal logging interface the classifier needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Classifier turns raw webhook payloads into classified events.
//
// It resolves the device through the directory, maps the category-specific
// raw fields to a semantic state, and for plugs and meters derives threshold
// crossings by comparing against the previous recorded reading.
type Classifier struct {
	resolver Resolver
	readings ReadingSource
	policy   config.TrackerConfig
	logger   Logger
}

// New creates a Classifier.
//
// Parameters:
//   - resolver: directory lookup for device metadata
//   - readings: previous-reading source for threshold detection (may be nil
//     when the sink is disabled; threshold detection then degrades to plain
//     readings)
//   - policy: per-category tracker policy (thresholds)
func New(resolver Resolver, readings ReadingSource, policy config.TrackerConfig) *Classifier {
	return &Classifier{
		resolver: resolver,
		readings: readings,
		policy:   policy,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the classifier.
func (c *Classifier) SetLogger(logger Logger) {
	c.logger = logger
}

// Classify maps a raw payload to a classified event.
//
// Unregistered hardware does not fail: the event gets a placeholder name
// ("Unknown_<mac>") and location "unregistered" so new sensors are still
// observable before anyone registers them.
//
// Parameters:
//   - ctx: Context for the directory and reading lookups
//   - raw: Decoded webhook payload (shape already validated at the boundary)
//
// Returns:
//   - *Event: The classified event
//   - error: ErrUnclassified (or the wrapping ErrMissingField) when the
//     payload cannot be mapped; callers persist the raw record and skip the
//     notification path
func (c *Classifier) Classify(ctx context.Context, raw RawPayload) (*Event, error) {
	mac := directory.NormalizeMAC(raw.DeviceMAC)

	event := &Event{
		ID:        uuid.NewString(),
		DeviceID:  mac,
		RawDetail: raw,
		Timestamp: time.Now().UTC(),
	}

	dev, err := c.resolver.Resolve(ctx, mac)
	switch {
	case err == nil:
		event.DeviceName = dev.Name
		event.Location = dev.Location
		event.Category = dev.Category
	case errors.Is(err, directory.ErrDeviceNotFound):
		// Unregistered hardware must still be observable.
		event.DeviceName = "Unknown_" + mac
		event.Location = "unregistered"
		event.Category = directory.Category(strings.ToLower(raw.DeviceType))
		c.logger.Debug("classifying unregistered device", "device_id", mac, "hint", raw.DeviceType)
	default:
		return nil, fmt.Errorf("resolving device %s: %w", mac, err)
	}

	state, reading, err := c.mapState(ctx, event.Category, mac, raw)
	if err != nil {
		return nil, err
	}
	event.SemanticState = state
	event.Reading = reading

	return event, nil
}

// mapState applies the category-specific field mapping.
func (c *Classifier) mapState(ctx context.Context, category directory.Category, mac string, raw RawPayload) (SemanticState, float64, error) {
	if raw.DetectionState == "" {
		return "", 0, ErrMissingField
	}

	switch category {
	case directory.CategoryMotion:
		return c.mapMotion(raw.DetectionState)
	case directory.CategoryContact:
		return c.mapContact(raw.DetectionState)
	case directory.CategoryPlug, directory.CategoryMeter:
		return c.mapReading(ctx, category, mac, raw.DetectionState)
	default:
		return "", 0, fmt.Errorf("%w: unknown category %q", ErrUnclassified, category)
	}
}

// mapMotion maps motion sensor detection values.
func (c *Classifier) mapMotion(detection string) (SemanticState, float64, error) {
	switch strings.ToLower(detection) {
	case "detected", "on", "true", "1":
		return StateDetected, 0, nil
	case "clear", "not_detected", "off", "false", "0":
		return StateClear, 0, nil
	default:
		return "", 0, fmt.Errorf("%w: motion detection %q", ErrUnclassified, detection)
	}
}

// mapContact maps contact sensor detection values.
func (c *Classifier) mapContact(detection string) (SemanticState, float64, error) {
	switch strings.ToLower(detection) {
	case "open", "opened":
		return StateOpen, 0, nil
	case "close", "closed":
		return StateClose, 0, nil
	case "timeout_not_closed":
		return StateTimeoutNotClosed, 0, nil
	default:
		return "", 0, fmt.Errorf("%w: contact detection %q", ErrUnclassified, detection)
	}
}

// mapReading parses a plug/meter numeric reading and derives threshold
// crossings by comparing against the previous recorded value.
func (c *Classifier) mapReading(ctx context.Context, category directory.Category, mac, detection string) (SemanticState, float64, error) {
	reading, err := strconv.ParseFloat(strings.TrimSpace(detection), 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: reading %q", ErrMissingField, detection)
	}

	threshold := c.policy.PolicyFor(string(category)).Threshold
	if threshold <= 0 || c.readings == nil {
		return StateReading, reading, nil
	}

	previous, err := c.readings.LastReading(ctx, EventsTable, mac, ReadingField)
	if err != nil {
		if !errors.Is(err, influxdb.ErrNoPreviousReading) {
			c.logger.Warn("previous reading unavailable, skipping threshold check",
				"device_id", mac, "error", err)
		}
		// First reading, or sink unavailable. No crossing can be derived.
		return StateReading, reading, nil
	}

	switch {
	case previous < threshold && reading >= threshold:
		return StateThresholdUp, reading, nil
	case previous >= threshold && reading < threshold:
		return StateThresholdDown, reading, nil
	default:
		return StateReading, reading, nil
	}
}
