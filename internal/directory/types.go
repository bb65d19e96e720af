package directory

import (
	"strings"
	"time"
)

// Category classifies what kind of sensor a device is.
// The category decides which classification rules and tracker policy apply.
type Category string

// Device categories.
const (
	// CategoryMotion is a PIR or mmWave motion sensor.
	CategoryMotion Category = "motion"

	// CategoryContact is a door or window contact sensor.
	CategoryContact Category = "contact"

	// CategoryPlug is a smart plug reporting power draw.
	CategoryPlug Category = "plug"

	// CategoryMeter is a whole-circuit energy meter.
	CategoryMeter Category = "meter"
)

// AllCategories returns all valid device categories.
func AllCategories() []Category {
	return []Category{
		CategoryMotion,
		CategoryContact,
		CategoryPlug,
		CategoryMeter,
	}
}

// Device is a directory entry mapping a raw hardware identifier to
// human-friendly metadata.
//
// MAC is the primary key. Sensors identify themselves by MAC address in
// webhook payloads; everything else here exists so alerts can say
// "Front Door opened" instead of quoting hex.
type Device struct {
	// MAC is the device's hardware address, stored lowercase.
	MAC string `json:"mac"`

	// Name is the human-friendly display name (e.g. "Front Door").
	Name string `json:"name"`

	// Location is where the device is installed (e.g. "hallway").
	Location string `json:"location"`

	// Category determines classification and tracker policy.
	Category Category `json:"category"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeMAC lowercases a MAC address for use as a directory key.
// Sensors are inconsistent about case; the directory is not.
func NormalizeMAC(mac string) string {
	return strings.ToLower(strings.TrimSpace(mac))
}
