package influxdb

import "errors"

// Domain errors for the influxdb package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, influxdb.ErrNoPreviousReading) {
//	    // first reading for this device
//	}
var (
	// ErrDisabled is returned by Connect when InfluxDB is disabled in configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed is returned when the initial connection cannot be established.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned when an operation is attempted without a connection.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrNoPreviousReading is returned by LastReading when the device has no
	// recorded history in the sink.
	ErrNoPreviousReading = errors.New("influxdb: no previous reading")
)
