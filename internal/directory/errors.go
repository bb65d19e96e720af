package directory

import "errors"

// Domain errors for the directory package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, directory.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a MAC address has no directory entry.
	ErrDeviceNotFound = errors.New("directory: device not found")

	// ErrDeviceExists is returned when registering a MAC that already exists.
	ErrDeviceExists = errors.New("directory: device already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("directory: invalid device")

	// ErrInvalidMAC is returned when a MAC address is empty or malformed.
	ErrInvalidMAC = errors.New("directory: invalid mac address")

	// ErrInvalidCategory is returned when a category value is not recognised.
	ErrInvalidCategory = errors.New("directory: invalid category")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("directory: invalid name")
)
