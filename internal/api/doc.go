// Package api provides the HTTP surface of Hearthwatch Core.
//
// It exposes the sensor webhook ingest endpoint, the device directory admin
// API, a health check, and a WebSocket feed that relays alert notifications
// to connected dashboards. The ingest endpoint is deliberately unauthenticated
// and always acknowledges well-formed payloads immediately; all processing
// happens asynchronously in the tracker. The directory admin routes are
// protected by JWT bearer authentication.
package api
