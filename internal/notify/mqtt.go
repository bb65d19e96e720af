package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/config"
	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/mqtt"
)

// Publisher is the broker-side interface the MQTT channel needs.
// Satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// MQTTChannel broadcasts notifications to wall panels over MQTT.
//
// Alerts publish to {topic_prefix}/{bucket} as JSON. The broker fans out to
// however many panels are subscribed; delivery to individual panels is the
// broker's problem, so a successful publish counts as accepted.
type MQTTChannel struct {
	cfg       config.MQTTChannelConfig
	topics    mqtt.Topics
	publisher Publisher
	qos       byte
}

// mqttAlertPayload is the wire format panels consume.
type mqttAlertPayload struct {
	Message   string    `json:"message"`
	Bucket    string    `json:"bucket"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMQTTChannel creates an MQTT broadcast channel.
//
// Parameters:
//   - cfg: Channel configuration (enabled flag, topic prefix)
//   - publisher: Connected broker client (may be nil when MQTT is disabled)
//   - qos: QoS level for alert publishes
func NewMQTTChannel(cfg config.MQTTChannelConfig, publisher Publisher, qos byte) *MQTTChannel {
	return &MQTTChannel{
		cfg:       cfg,
		topics:    mqtt.Topics{AlertPrefix: cfg.TopicPrefix},
		publisher: publisher,
		qos:       qos,
	}
}

// Name returns the channel identity.
func (m *MQTTChannel) Name() ChannelName { return ChannelMQTT }

// SupportsAttachments reports attachment capability. Panels render text
// only; attachments route elsewhere.
func (m *MQTTChannel) SupportsAttachments() bool { return false }

// Send publishes the request's text to the bucket topic.
//
// Returns:
//   - error: ErrChannelUnavailable if disabled or disconnected, a transient
//     error if the publish fails
func (m *MQTTChannel) Send(_ context.Context, req Request) error {
	if !m.cfg.Enabled || m.publisher == nil {
		return fmt.Errorf("%w: mqtt disabled", ErrChannelUnavailable)
	}
	if !m.publisher.IsConnected() {
		return fmt.Errorf("%w: broker disconnected", ErrChannelUnavailable)
	}

	payload, err := json.Marshal(mqttAlertPayload{
		Message:   req.Text(),
		Bucket:    req.Bucket,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: marshalling alert: %w", ErrPermanent, err)
	}

	topic := m.topics.Alert(req.Bucket)
	if err := m.publisher.Publish(topic, payload, m.qos, false); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}

	return nil
}
