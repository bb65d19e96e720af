// Package influxdb provides the append-only event sink for Hearthwatch Core.
//
// Every classified sensor event is appended here, whether or not it produced
// a notification. Writes are batched and non-blocking so the sink can never
// stall event processing; write failures are logged through an error
// callback and otherwise ignored (fail-soft).
//
// The sink also answers one read query: the most recent numeric reading for
// a device, which the classifier uses for plug/meter threshold detection.
//
// # Usage
//
//	sink, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil { ... }
//	defer sink.Close()
//
//	sink.Append("sensor_events",
//	    []string{"device_id", "state", "reading"},
//	    []any{"a4:c1:38:00:11:22", "detected", 0.0},
//	    time.Now().UTC())
//
//	prev, err := sink.LastReading(ctx, "sensor_events", "a4:c1:38:00:11:22", "reading")
package influxdb
