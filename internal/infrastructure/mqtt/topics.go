package mqtt

import "fmt"

// Topic prefixes for the Hearthwatch MQTT namespace.
//
// Alert topics use the flat scheme: hearthwatch/alert/{bucket}, where bucket
// is the alert grouping (security, power, fault). Wall panels subscribe to
// the buckets they care about, or to hearthwatch/alert/+ for everything.
const (
	// TopicPrefixAlert is the base for alert broadcast topics.
	TopicPrefixAlert = "hearthwatch/alert"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "hearthwatch/system"
)

// Topics provides builders for Hearthwatch MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	alertTopic := topics.Alert("security")
//	// Returns: "hearthwatch/alert/security"
type Topics struct {
	// AlertPrefix overrides TopicPrefixAlert when non-empty. The alert
	// namespace is configurable (notify.mqtt.topic_prefix); everything else
	// is fixed.
	AlertPrefix string
}

// alertPrefix returns the effective alert namespace.
func (t Topics) alertPrefix() string {
	if t.AlertPrefix != "" {
		return t.AlertPrefix
	}
	return TopicPrefixAlert
}

// Alert returns the broadcast topic for alerts in a bucket.
//
// Example: hearthwatch/alert/security
func (t Topics) Alert(bucket string) string {
	return fmt.Sprintf("%s/%s", t.alertPrefix(), bucket)
}

// AllAlerts returns a pattern matching every alert bucket.
// Intended for wall panels that display the full feed.
//
// Pattern: hearthwatch/alert/+
func (t Topics) AllAlerts() string {
	return fmt.Sprintf("%s/+", t.alertPrefix())
}

// SystemStatus returns the system status topic.
// Carries the online/offline/LWT payloads for the service.
//
// Example: hearthwatch/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
