package api

import (
	"encoding/json"
	"net/http"

	"github.com/hearthwatch/hearthwatch-core/internal/classify"
)

// wsChannelSensorEvents is the WebSocket channel accepted ingest events are
// relayed on.
const wsChannelSensorEvents = "sensor.event"

// handleIngestEvent accepts a sensor webhook payload.
//
// The sensor bridge fires and forgets: it gets a 200 as soon as the payload
// has the fields needed to route it, and all classification, persistence and
// notification happen asynchronously. A slow notification channel must never
// back up into the sensor network.
//
// Missing required fields are the only 400 case. Unknown devices, unparseable
// state values and queue pressure are all accepted here and resolved (or
// logged) downstream.
func (s *Server) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	var raw classify.RawPayload
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if raw.DeviceMAC == "" || raw.DetectionState == "" || raw.EventType == "" {
		writeBadRequest(w, "device_mac, detection_state and event_type are required")
		return
	}

	// Acknowledge before any downstream work is observable.
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})

	if !s.events.Enqueue(raw) {
		s.logger.Warn("ingest queue rejected event", "device_mac", raw.DeviceMAC)
	}

	if s.hub != nil {
		s.hub.Broadcast(wsChannelSensorEvents, raw)
	}
}
