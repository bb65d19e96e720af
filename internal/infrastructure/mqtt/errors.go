package mqtt

import "errors"

// Domain errors for the mqtt package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, mqtt.ErrNotConnected) {
//	    // broker is down, the router will fall back
//	}
var (
	// ErrDisabled is returned by Connect when MQTT is disabled in configuration.
	ErrDisabled = errors.New("mqtt: disabled in configuration")

	// ErrConnectionFailed is returned when the initial connection cannot be established.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrNotConnected is returned when an operation is attempted without a connection.
	ErrNotConnected = errors.New("mqtt: not connected")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when a topic is empty or malformed.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")
)
