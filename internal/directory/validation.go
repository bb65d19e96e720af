package directory

import (
	"fmt"
	"regexp"
)

// Validation constants.
const (
	maxNameLength     = 100
	maxLocationLength = 100

	// macPattern accepts colon or hyphen separated six-octet addresses.
	macPattern = `^[0-9a-f]{2}([:-][0-9a-f]{2}){5}$`
)

var macRegex = regexp.MustCompile(macPattern)

// validCategories is a pre-computed set for O(1) lookups.
var validCategories map[Category]struct{}

func init() {
	validCategories = make(map[Category]struct{}, len(AllCategories()))
	for _, c := range AllCategories() {
		validCategories[c] = struct{}{}
	}
}

// ValidateDevice performs validation on a directory entry.
// Returns an error describing the first validation failure found.
// The MAC is expected to be normalised before validation.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if err := ValidateMAC(d.MAC); err != nil {
		return err
	}

	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(d.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}

	if len(d.Location) > maxLocationLength {
		return fmt.Errorf("%w: location exceeds %d characters", ErrInvalidDevice, maxLocationLength)
	}

	if err := ValidateCategory(d.Category); err != nil {
		return err
	}

	return nil
}

// ValidateMAC checks that a MAC address is a normalised six-octet address.
func ValidateMAC(mac string) error {
	if mac == "" {
		return fmt.Errorf("%w: mac is required", ErrInvalidMAC)
	}
	if !macRegex.MatchString(mac) {
		return fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}
	return nil
}

// ValidateCategory checks that a category is one of the known sensor kinds.
func ValidateCategory(c Category) error {
	if _, ok := validCategories[c]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, c)
	}
	return nil
}
