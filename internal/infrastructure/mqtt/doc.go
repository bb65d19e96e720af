// Package mqtt provides the wall-panel broadcast side of Hearthwatch Core.
//
// The service only publishes: alerts go out on hearthwatch/alert/{bucket}
// topics and wall panels subscribe to whichever buckets they display. The
// client handles connection lifecycle, Last Will and Testament on the system
// status topic, and automatic reconnection with exponential backoff, so the
// notification router can treat the channel as fire-and-forget.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil { ... }
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Alert("security")
//	err = client.Publish(topic, payload, 1, false)
package mqtt
